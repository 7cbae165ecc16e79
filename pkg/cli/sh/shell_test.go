package sh

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/pwmlink/pkg/serial"
)

type testPort struct {
	bytes.Buffer
	closed bool
}

func (p *testPort) Close() error {
	p.closed = true
	return nil
}

func (p *testPort) Flush() error { return nil }

func TestShellSend(t *testing.T) {
	port := &testPort{}
	s := &Shell{
		Config:   serial.DefaultConfig("/dev/ttyTEST"),
		OpenPort: func(*serial.Config) (serial.Port, error) { return port, nil },
	}
	assert.Error(t, s.Send([]byte("x")))
	assert.False(t, s.IsOpen())

	require.NoError(t, s.Open())
	assert.True(t, s.IsOpen())
	require.NoError(t, s.SendFrame("-prints:AA0150255"))
	require.NoError(t, s.SendFrame("-prints:AA0150255;"))
	assert.Equal(t, "-prints:AA0150255;-prints:AA0150255;", port.String())

	require.NoError(t, s.Close())
	assert.True(t, port.closed)
	assert.False(t, s.IsOpen())
	require.NoError(t, s.Close())
}

func TestShellOpenFailure(t *testing.T) {
	s := &Shell{
		Config:   serial.DefaultConfig("/dev/ttyTEST"),
		OpenPort: func(*serial.Config) (serial.Port, error) { return nil, errors.New("busy") },
	}
	assert.Error(t, s.Open())
	assert.False(t, s.IsOpen())
}
