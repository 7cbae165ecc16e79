// Package pwmtest provides an in-memory pwm.Servo for tests.
package pwmtest

import (
	"fmt"
	"sync"
)

// Call is a recorded Servo call.
type Call struct {
	Op   string
	Ch   int
	US   uint16
	Arm  bool
	Mask uint32
}

func (c Call) String() string {
	switch c.Op {
	case "set":
		return fmt.Sprintf("set(%d, %d)", c.Ch, c.US)
	case "arm":
		return fmt.Sprintf("arm(%v, 0x%x)", c.Arm, c.Mask)
	}
	return fmt.Sprintf("%s(0x%x)", c.Op, c.Mask)
}

// Recorder records every call and keeps the committed channel values.
// InitErr, SetErr and UpdateErr make the matching call fail.
type Recorder struct {
	InitErr   error
	SetErr    error
	UpdateErr error

	lock    sync.Mutex
	calls   []Call
	staged  map[int]uint16
	outputs map[int]uint16
	armed   uint32
}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		staged:  make(map[int]uint16),
		outputs: make(map[int]uint16),
	}
}

func (r *Recorder) record(c Call) {
	r.lock.Lock()
	r.calls = append(r.calls, c)
	r.lock.Unlock()
}

// Init implements pwm.Servo.
func (r *Recorder) Init(mask uint32) (uint32, error) {
	r.record(Call{Op: "init", Mask: mask})
	if r.InitErr != nil {
		return 0, r.InitErr
	}
	return mask, nil
}

// Set implements pwm.Servo.
func (r *Recorder) Set(ch int, us uint16) error {
	r.record(Call{Op: "set", Ch: ch, US: us})
	if r.SetErr != nil {
		return r.SetErr
	}
	r.lock.Lock()
	r.staged[ch] = us
	r.lock.Unlock()
	return nil
}

// Update implements pwm.Servo.
func (r *Recorder) Update(mask uint32) error {
	r.record(Call{Op: "update", Mask: mask})
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for ch, us := range r.staged {
		if mask&(1<<uint(ch)) != 0 {
			r.outputs[ch] = us
		}
	}
	return nil
}

// Arm implements pwm.Servo.
func (r *Recorder) Arm(arm bool, mask uint32) error {
	r.record(Call{Op: "arm", Arm: arm, Mask: mask})
	r.lock.Lock()
	if arm {
		r.armed |= mask
	} else {
		r.armed &^= mask
	}
	r.lock.Unlock()
	return nil
}

// Deinit implements pwm.Servo.
func (r *Recorder) Deinit(mask uint32) error {
	r.record(Call{Op: "deinit", Mask: mask})
	return nil
}

// Calls returns the recorded calls.
func (r *Recorder) Calls() []Call {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the names of the recorded calls.
func (r *Recorder) Ops() []string {
	calls := r.Calls()
	ops := make([]string, len(calls))
	for n, c := range calls {
		ops[n] = c.Op
	}
	return ops
}

// Output returns the committed pulse width of a channel.
func (r *Recorder) Output(ch int) (uint16, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	us, ok := r.outputs[ch]
	return us, ok
}

// Armed returns the mask of armed channels.
func (r *Recorder) Armed() uint32 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.armed
}
