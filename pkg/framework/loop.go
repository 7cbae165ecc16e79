package framework

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the idle sleep between iterations when Loop.Interval
// is not set.
const DefaultInterval = 10 * time.Millisecond

// Loop runs controllers in a bounded polling loop. Each iteration runs every
// controller once and then sleeps for Interval. Cancellation of the context
// is observed only between iterations.
type Loop struct {
	Interval time.Duration

	name        string
	controllers []Controller
}

type loopIteration struct {
	ctx   context.Context
	time  time.Time
	count uint64
}

// NewLoop creates a Loop.
func NewLoop(name string, interval time.Duration) *Loop {
	return &Loop{name: name, Interval: interval}
}

// Name implements Named.
func (l *Loop) Name() string {
	return l.name
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop. Controllers run in
// registration order.
func (l *Loop) AddController(ctls ...Controller) *Loop {
	l.controllers = append(l.controllers, ctls...)
	return l
}

// Run implements Runnable. It returns ctx.Err() once the context is
// canceled, or the first fatal controller error.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	iter := &loopIteration{ctx: ctx}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		iter.count++
		iter.time = time.Now()
		if err := l.runIteration(iter); err != nil {
			return err
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Loop) runIteration(iter *loopIteration) error {
	for _, ctl := range l.controllers {
		err := ctl.Control(iter)
		if err == nil {
			continue
		}
		if IsFatal(err) {
			glog.Errorf("loop %s: %v", l.name, err)
			return err
		}
		glog.Warningf("loop %s: controller error: %v", l.name, err)
	}
	return nil
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) Iteration() uint64 {
	return t.count
}
