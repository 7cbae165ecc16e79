package pwm

import "time"

// Defaults for the sysfs backend.
const (
	DefaultSysfsBase = "/sys/class/pwm"
	// DefaultServoPeriod is the standard 50Hz servo frame.
	DefaultServoPeriod = 20 * time.Millisecond
)

// SysfsConfig selects a pwmchip exposed under /sys/class/pwm and an
// optional GPIO line gating the outputs.
type SysfsConfig struct {
	Base   string
	Chip   int
	Period time.Duration

	// EnableChip names the gpiochip carrying the output enable line, empty
	// when outputs are not gated.
	EnableChip      string
	EnableLine      int
	EnableActiveLow bool
}

// DefaultSysfsConfig returns the defaults for pwmchip0.
func DefaultSysfsConfig() SysfsConfig {
	return SysfsConfig{
		Base:   DefaultSysfsBase,
		Period: DefaultServoPeriod,
	}
}
