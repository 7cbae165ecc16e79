//go:build !linux

package pwm

import "fmt"

// OpenSysfs is only available on Linux.
func OpenSysfs(conf SysfsConfig) (Servo, error) {
	return nil, fmt.Errorf("pwm: sysfs unsupported on this platform: %w", ErrNoHardware)
}
