package msgs

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

// PWMControl is the actuation command published on the pwm_control topic.
// It is passed by value and never modified after construction.
type PWMControl struct {
	// Timestamp is the capture time in microseconds, see hrt.AbsoluteTime.
	Timestamp uint64
	// Port is the 1-based output channel.
	Port int32
	// Duty is the normalized duty in [0, 1]. It is not validated on parse.
	Duty float32
	// Frequency is carried through but not applied to hardware.
	Frequency int32
}

// String implements fmt.Stringer.
func (m PWMControl) String() string {
	return fmt.Sprintf("ts=%d port=%d duty=%.2f freq=%d", m.Timestamp, m.Port, m.Duty, m.Frequency)
}

// PWMControlTelemetry is the outbound telemetry form of PWMControl.
type PWMControlTelemetry struct {
	TimeUsec  uint64  `protobuf:"varint,1,opt,name=time_usec,proto3" json:"time_usec,omitempty"`
	Port      int32   `protobuf:"varint,2,opt,name=port,proto3" json:"port,omitempty"`
	Duty      float32 `protobuf:"fixed32,3,opt,name=duty,proto3" json:"duty,omitempty"`
	Frequency int32   `protobuf:"varint,4,opt,name=frequency,proto3" json:"frequency,omitempty"`
}

// NewPWMControlTelemetry re-encodes a command for telemetry.
func NewPWMControlTelemetry(cmd PWMControl) *PWMControlTelemetry {
	return &PWMControlTelemetry{
		TimeUsec:  cmd.Timestamp,
		Port:      cmd.Port,
		Duty:      cmd.Duty,
		Frequency: cmd.Frequency,
	}
}

// Command converts the telemetry message back into a command value.
func (m *PWMControlTelemetry) Command() PWMControl {
	return PWMControl{
		Timestamp: m.TimeUsec,
		Port:      m.Port,
		Duty:      m.Duty,
		Frequency: m.Frequency,
	}
}

// TypeID implements SerializableMessage.
func (m *PWMControlTelemetry) TypeID() uint32 { return PWMControlTypeID }

// ProtoMessage implements proto.Message.
func (m *PWMControlTelemetry) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PWMControlTelemetry) Reset() { *m = PWMControlTelemetry{} }

// String implements proto.Message.
func (m *PWMControlTelemetry) String() string { return proto.CompactTextString(m) }

// TypeID groups
const (
	GroupPWM    uint32 = 0x00030000
	GroupCustom uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	PWMControlTypeID uint32 = TypeIDKindEvent | GroupPWM | 0x0001
)

func init() {
	Register(PWMControlTypeID, func() SerializableMessage { return &PWMControlTelemetry{} })
}
