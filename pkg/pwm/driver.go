package pwm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/pwmlink/pkg/bus"
	fx "github.com/robotalks/pwmlink/pkg/framework"
	"github.com/robotalks/pwmlink/pkg/msgs"
)

// DefaultInterval is the poll interval of the driver loop.
const DefaultInterval = 5 * time.Millisecond

// ErrInvalidPort rejects a command addressing a port outside [1, MaxPorts].
var ErrInvalidPort = errors.New("invalid port")

// State is the lifecycle state of a Driver.
type State int32

// Driver states.
const (
	StateUninitialized State = iota
	StateArmed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateArmed:
		return "armed"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Driver applies commands from a bus subscription to a Servo.
// If the hardware can not be initialized the driver keeps running in dry
// mode: commands are validated, mapped and logged but never written.
type Driver struct {
	MaxPorts int
	Interval time.Duration

	servo  Servo
	sub    *bus.Subscription
	state  atomic.Int32
	pulses []uint16
}

// NewDriver creates a Driver.
func NewDriver(servo Servo, sub *bus.Subscription) *Driver {
	return &Driver{
		MaxPorts: MaxPorts,
		Interval: DefaultInterval,
		servo:    servo,
		sub:      sub,
	}
}

// Name implements Named.
func (d *Driver) Name() string {
	return "pwm"
}

// State returns the current state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// PulseWidths returns the last pulse width written to each channel, 0 for
// channels never written.
func (d *Driver) PulseWidths() []uint16 {
	pulses := make([]uint16, d.MaxPorts)
	copy(pulses, d.pulses)
	return pulses
}

func (d *Driver) mask() uint32 {
	return ChannelMask(d.MaxPorts)
}

// Start initializes and arms the outputs.
func (d *Driver) Start() {
	if d.State() != StateUninitialized {
		return
	}
	d.pulses = make([]uint16, d.MaxPorts)
	glog.Infof("pwm: started, init ports 1..%d", d.MaxPorts)
	mask, err := d.servo.Init(d.mask())
	if err != nil {
		glog.Errorf("pwm: init failed, running dry: %v", err)
		return
	}
	if err = d.servo.Arm(true, d.mask()); err != nil {
		glog.Errorf("pwm: arm failed, running dry: %v", err)
		if err = d.servo.Deinit(d.mask()); err != nil {
			glog.Errorf("pwm: deinit: %v", err)
		}
		return
	}
	d.state.Store(int32(StateArmed))
	glog.Infof("pwm: armed, mask=0x%02x", mask)
}

// Stop disarms and releases the outputs. It is safe to call more than once.
func (d *Driver) Stop() error {
	if d.State() == StateStopped {
		return nil
	}
	var errs fx.AggregatedError
	if d.State() == StateArmed {
		errs.Add(d.servo.Arm(false, d.mask()))
		errs.Add(d.servo.Deinit(d.mask()))
	}
	d.state.Store(int32(StateStopped))
	glog.Info("pwm: stopped")
	return errs.Aggregate()
}

// Apply validates and maps a command and writes it when armed. It returns
// the pulse width computed for the command.
func (d *Driver) Apply(cmd msgs.PWMControl) (uint16, error) {
	if cmd.Port < 1 || int(cmd.Port) > d.MaxPorts {
		return 0, fmt.Errorf("%w %d", ErrInvalidPort, cmd.Port)
	}
	us := SafetyClamp(PulseWidth(cmd.Duty))
	if d.State() == StateArmed {
		if err := d.write(int(cmd.Port)-1, us); err != nil {
			glog.Errorf("pwm_control recv: %s => %d us: %v", cmd, us, err)
			return us, err
		}
	}
	glog.Infof("pwm_control recv: %s => %d us (freq ignored)", cmd, us)
	return us, nil
}

func (d *Driver) write(ch int, us uint16) error {
	if err := d.servo.Set(ch, us); err != nil {
		return fmt.Errorf("set channel %d: %w", ch, err)
	}
	if err := d.servo.Update(d.mask()); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	d.pulses[ch] = us
	return nil
}

// Control implements Controller.
func (d *Driver) Control(fx.ControlContext) error {
	cmd, updated := d.sub.Update()
	if !updated {
		return nil
	}
	_, err := d.Apply(cmd)
	if errors.Is(err, ErrInvalidPort) {
		glog.Warningf("pwm_control: %v", err)
		return nil
	}
	return err
}

// AddToLoop implements LoopAdder.
func (d *Driver) AddToLoop(loop *fx.Loop) {
	loop.AddController(d)
}

// Run implements Runnable.
func (d *Driver) Run(ctx context.Context) error {
	d.Start()
	err := fx.NewLoop(d.Name(), d.Interval).Add(d).Run(ctx)
	if serr := d.Stop(); serr != nil {
		glog.Errorf("pwm: stop: %v", serr)
	}
	return err
}
