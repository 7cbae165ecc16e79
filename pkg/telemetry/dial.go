package telemetry

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/robotalks/pwmlink/pkg/telemetry/mqtt"
	"github.com/robotalks/pwmlink/pkg/telemetry/stream"
	"github.com/robotalks/pwmlink/pkg/telemetry/websocket"
)

// ErrUnknownScheme rejects a telemetry URL with an unsupported scheme.
var ErrUnknownScheme = errors.New("unknown telemetry scheme")

type nopCloser struct {
	PacketWriter
}

func (nopCloser) Close() error { return nil }

// Dial opens a telemetry link:
//
//	mqtt://host:port/prefix/   publish to <prefix><device-id>/pwm_control
//	tcp://host:port            length-prefixed packets
//	ws://host:port/path        binary websocket messages
//	stdout:                    length-prefixed packets on stdout
func Dial(rawURL, deviceID string) (Link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "mqtt", "ssl", "tls":
		pub, err := mqtt.Dial(rawURL, deviceID, mqtt.Meta{
			Description: "pwmlink telemetry",
			Labels:      map[string]string{"topic": mqtt.TelemetryTopic},
		})
		if err != nil {
			return nil, err
		}
		return pub, nil
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return stream.New(conn), nil
	case "ws", "wss":
		ws, err := websocket.Dial(rawURL)
		if err != nil {
			return nil, err
		}
		return ws, nil
	case "stdout":
		return nopCloser{stream.New(os.Stdout)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, u.Scheme)
}
