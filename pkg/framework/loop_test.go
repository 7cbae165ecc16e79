package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsControllersInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var order []string
	var iterations []uint64
	loop := NewLoop("test", time.Millisecond).
		AddController(ControlFunc(func(cc ControlContext) error {
			order = append(order, "a")
			iterations = append(iterations, cc.Iteration())
			return nil
		})).
		AddController(ControlFunc(func(cc ControlContext) error {
			order = append(order, "b")
			if cc.Iteration() == 3 {
				cancel()
			}
			return nil
		}))

	err := loop.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, order)
	assert.Equal(t, []uint64{1, 2, 3}, iterations)
	assert.Equal(t, "test", loop.Name())
}

func TestLoopSurvivesControllerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	loop := NewLoop("errors", time.Millisecond).
		AddController(ControlFunc(func(cc ControlContext) error {
			calls++
			if calls >= 2 {
				cancel()
			}
			return errors.New("transient")
		}))
	err := loop.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, calls)
}

func TestLoopStopsOnFatalError(t *testing.T) {
	cause := errors.New("device gone")
	var second bool
	loop := NewLoop("fatal", time.Millisecond).
		AddController(ControlFunc(func(cc ControlContext) error {
			return Fatal(cause)
		})).
		AddController(ControlFunc(func(cc ControlContext) error {
			second = true
			return nil
		}))
	err := loop.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, second)
}

func TestLoopCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var called bool
	err := NewLoop("idle", 0).
		AddController(ControlFunc(func(cc ControlContext) error {
			called = true
			return nil
		})).
		Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	assert.False(t, called)
}

func TestFatalNil(t *testing.T) {
	assert.NoError(t, Fatal(nil))
	assert.False(t, IsFatal(errors.New("plain")))
}
