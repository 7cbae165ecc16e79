// Package serial opens the UART carrying command frames.
package serial

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tarm/serial"
)

// Defaults.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 10 * time.Millisecond
)

// Port is an open serial device.
type Port interface {
	io.ReadWriteCloser
	// Flush discards unread input and untransmitted output.
	Flush() error
}

// Config selects the device and line settings. Framing is always 8N1.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// DefaultConfig returns defaults for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Open opens the port. A positive ReadTimeout makes Read return 0 bytes
// when nothing arrives in time; some platforms round it up to 100ms.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("serial: config cannot be nil")
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}
	return port, nil
}

// IsTimeout reports whether a Read error only means no data arrived.
func IsTimeout(err error) bool {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
