// Package pwm drives hardware PWM servo outputs from bus commands.
package pwm

import (
	"errors"
	"math"
)

// MaxPorts is the number of output channels driven by default.
const MaxPorts = 8

// AllMask selects channels 0..MaxPorts-1.
var AllMask = ChannelMask(MaxPorts)

// Pulse widths in microseconds.
const (
	PulseMin = 1000
	PulseMax = 2000

	SafePulseMin = 500
	SafePulseMax = 2500
)

// ErrNoHardware is returned by servos without outputs.
var ErrNoHardware = errors.New("no pwm hardware")

// Servo is a hardware PWM output bank. Channels are 0-based and masks
// select channels by bit.
type Servo interface {
	// Init prepares the channels in mask and returns the mask actually
	// initialized.
	Init(mask uint32) (uint32, error)
	// Set stages the pulse width of a channel.
	Set(ch int, us uint16) error
	// Update commits the staged values of the channels in mask.
	Update(mask uint32) error
	// Arm enables or disables the outputs in mask.
	Arm(arm bool, mask uint32) error
	// Deinit releases the channels in mask.
	Deinit(mask uint32) error
}

// ChannelMask returns a mask with the lowest n bits set.
func ChannelMask(n int) uint32 {
	switch {
	case n <= 0:
		return 0
	case n >= 32:
		return math.MaxUint32
	}
	return uint32(1)<<uint(n) - 1
}

// MapDuty clamps duty to [0, 1]. NaN maps to 0.
func MapDuty(duty float32) float32 {
	switch {
	case math.IsNaN(float64(duty)):
		return 0
	case duty < 0:
		return 0
	case duty > 1:
		return 1
	}
	return duty
}

// PulseWidth maps a duty fraction onto the standard servo range
// [PulseMin, PulseMax], rounding to the nearest microsecond.
func PulseWidth(duty float32) uint16 {
	return uint16(PulseMin + MapDuty(duty)*(PulseMax-PulseMin) + 0.5)
}

// SafetyClamp bounds a pulse width to [SafePulseMin, SafePulseMax].
func SafetyClamp(us uint16) uint16 {
	if us < SafePulseMin {
		return SafePulseMin
	}
	if us > SafePulseMax {
		return SafePulseMax
	}
	return us
}

// NullServo has no outputs. Init always fails so a Driver using it stays
// in dry mode.
type NullServo struct{}

// Init implements Servo.
func (NullServo) Init(uint32) (uint32, error) { return 0, ErrNoHardware }

// Set implements Servo.
func (NullServo) Set(int, uint16) error { return ErrNoHardware }

// Update implements Servo.
func (NullServo) Update(uint32) error { return ErrNoHardware }

// Arm implements Servo.
func (NullServo) Arm(bool, uint32) error { return ErrNoHardware }

// Deinit implements Servo.
func (NullServo) Deinit(uint32) error { return nil }
