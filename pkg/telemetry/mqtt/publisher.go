package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/robotalks/pwmlink/pkg/bus"
)

// Topic suffixes under <prefix><device-id>/.
const (
	MetaTopic      = "meta"
	TelemetryTopic = bus.TopicPWMControl
)

// DefaultConnectTimeout bounds the initial broker connection.
const DefaultConnectTimeout = 5 * time.Second

// Meta is published retained on the meta topic while the device is
// connected, and cleared by the broker when it goes away.
type Meta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Publisher writes telemetry packets to <prefix><device-id>/pwm_control.
type Publisher struct {
	Queue    *Queue
	DeviceID string

	metaJSON []byte
}

// DeviceTopic returns the topic of a device, relative to the prefix.
func DeviceTopic(deviceID, suffix string) string {
	return deviceID + "/" + suffix
}

// NewPublisher creates a Publisher. It does not connect.
func NewPublisher(brokerURL, deviceID string, meta Meta) (*Publisher, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("mqtt: device id required")
	}
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+DeviceTopic(deviceID, MetaTopic), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("pwmlink:" + deviceID)
	}
	p := &Publisher{
		Queue:    NewQueue(opts, topicPrefix),
		DeviceID: deviceID,
		metaJSON: metaJSON,
	}
	p.Queue.OnConnect = func(*Queue) { p.publishMeta(p.metaJSON) }
	return p, nil
}

// Dial creates a Publisher and waits for the broker connection.
func Dial(brokerURL, deviceID string, meta Meta) (*Publisher, error) {
	p, err := NewPublisher(brokerURL, deviceID, meta)
	if err != nil {
		return nil, err
	}
	token := p.Queue.Connect()
	if !token.WaitTimeout(DefaultConnectTimeout) {
		p.Queue.Close()
		return nil, fmt.Errorf("mqtt: connect %s: timeout", brokerURL)
	}
	if err = token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", brokerURL, err)
	}
	return p, nil
}

func (p *Publisher) publishMeta(payload []byte) {
	p.Queue.PubWith(DeviceTopic(p.DeviceID, MetaTopic), payload, 1, true)
}

// WritePacket implements PacketWriter.
func (p *Publisher) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(DeviceTopic(p.DeviceID, TelemetryTopic), pkt)
	token.Wait()
	return token.Error()
}

// Close clears the meta and disconnects.
func (p *Publisher) Close() error {
	p.publishMeta(nil)
	return p.Queue.Close()
}
