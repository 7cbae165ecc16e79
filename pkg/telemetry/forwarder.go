package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/pwmlink/pkg/bus"
	fx "github.com/robotalks/pwmlink/pkg/framework"
	"github.com/robotalks/pwmlink/pkg/msgs"
)

// DefaultInterval is the poll interval of the forwarder loop.
const DefaultInterval = 20 * time.Millisecond

// Forwarder sends each new command on a topic as a typed telemetry packet.
// Intermediate values published between two polls are not sent.
type Forwarder struct {
	Interval time.Duration

	topic    *bus.Topic
	sub      *bus.Subscription
	writer   PacketWriter
	sequence uint32
}

// NewForwarder creates a Forwarder.
func NewForwarder(topic *bus.Topic, w PacketWriter) *Forwarder {
	return &Forwarder{
		Interval: DefaultInterval,
		topic:    topic,
		sub:      topic.Subscribe(),
		writer:   w,
	}
}

// Name implements Named.
func (f *Forwarder) Name() string {
	return "telemetry"
}

// Sequence returns the number of packets sent.
func (f *Forwarder) Sequence() uint32 {
	return f.sequence
}

func (f *Forwarder) envelope(cmd msgs.PWMControl, seq uint32) (*msgs.Typed, error) {
	typed, err := msgs.TypedFrom(msgs.NewPWMControlTelemetry(cmd))
	if err != nil {
		return nil, err
	}
	typed.Sequence = seq
	return typed, nil
}

// Size returns the encoded size of the next packet, or 0 if the topic
// has never been published.
func (f *Forwarder) Size() int {
	cmd, ok := f.topic.Latest()
	if !ok {
		return 0
	}
	typed, err := f.envelope(cmd, f.sequence+1)
	if err != nil {
		return 0
	}
	return proto.Size(typed)
}

// Send writes the latest command if it is new to this forwarder.
func (f *Forwarder) Send() (bool, error) {
	cmd, updated := f.sub.Update()
	if !updated {
		return false, nil
	}
	typed, err := f.envelope(cmd, f.sequence+1)
	if err != nil {
		return false, err
	}
	pkt, err := typed.Encode()
	if err != nil {
		return false, err
	}
	if err = f.writer.WritePacket(pkt); err != nil {
		return false, fmt.Errorf("write telemetry: %w", err)
	}
	f.sequence = typed.Sequence
	if glog.V(4) {
		glog.Infof("telemetry: #%d %s", f.sequence, cmd)
	}
	return true, nil
}

// Control implements Controller.
func (f *Forwarder) Control(fx.ControlContext) error {
	_, err := f.Send()
	return err
}

// AddToLoop implements LoopAdder.
func (f *Forwarder) AddToLoop(loop *fx.Loop) {
	loop.AddController(f)
}

// Run implements Runnable.
func (f *Forwarder) Run(ctx context.Context) error {
	glog.Infof("telemetry: forwarding %s", f.topic.Name())
	return fx.NewLoop(f.Name(), f.Interval).Add(f).Run(ctx)
}
