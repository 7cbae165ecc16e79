// Package hrt provides the monotonic time base used to stamp commands.
package hrt

import "time"

var boot = time.Now()

// AbsoluteTime returns the microseconds elapsed since process start.
// It reads the monotonic clock and never goes backwards.
func AbsoluteTime() uint64 {
	return uint64(time.Since(boot) / time.Microsecond)
}

// Elapsed returns the time passed since an AbsoluteTime stamp.
func Elapsed(stamp uint64) time.Duration {
	return time.Duration(AbsoluteTime()-stamp) * time.Microsecond
}
