package pwm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPulseWidth(t *testing.T) {
	testCases := []struct {
		duty float32
		us   uint16
	}{
		{0, 1000},
		{0.5, 1500},
		{0.25, 1250},
		{0.999, 1999},
		{1, 2000},
		{-1, 1000},
		{5, 2000},
		{float32(math.NaN()), 1000},
		{float32(math.Inf(1)), 2000},
		{float32(math.Inf(-1)), 1000},
	}
	for _, tc := range testCases {
		us := PulseWidth(tc.duty)
		assert.Equal(t, tc.us, us, "duty %v", tc.duty)
		assert.Equal(t, us, SafetyClamp(us))
	}
}

func TestPulseWidthRange(t *testing.T) {
	for n := -200; n <= 300; n++ {
		us := PulseWidth(float32(n) / 100)
		assert.True(t, us >= PulseMin && us <= PulseMax, "duty %d%% => %d", n, us)
	}
}

func TestSafetyClamp(t *testing.T) {
	assert.Equal(t, uint16(SafePulseMin), SafetyClamp(0))
	assert.Equal(t, uint16(SafePulseMin), SafetyClamp(499))
	assert.Equal(t, uint16(1500), SafetyClamp(1500))
	assert.Equal(t, uint16(SafePulseMax), SafetyClamp(2501))
	assert.Equal(t, uint16(SafePulseMax), SafetyClamp(math.MaxUint16))
}

func TestChannelMask(t *testing.T) {
	assert.Equal(t, uint32(0), ChannelMask(0))
	assert.Equal(t, uint32(0x01), ChannelMask(1))
	assert.Equal(t, uint32(0xff), ChannelMask(8))
	assert.Equal(t, uint32(0xff), AllMask)
	assert.Equal(t, uint32(math.MaxUint32), ChannelMask(32))
}

func TestNullServo(t *testing.T) {
	var s Servo = NullServo{}
	_, err := s.Init(AllMask)
	assert.ErrorIs(t, err, ErrNoHardware)
	assert.NoError(t, s.Deinit(AllMask))
}
