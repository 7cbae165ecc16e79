package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerWaitIgnoresCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx)
	for i := 0; i < 3; i++ {
		r.Go(RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	}
	cancel()
	assert.NoError(t, r.Wait())
}

func TestRunnerAggregatesErrors(t *testing.T) {
	openErr := errors.New("open /dev/ttyS4 failed")
	r := NewRunner().Go(
		NamedRun("serial", RunFunc(func(context.Context) error { return openErr })),
		NamedRun("pwm", RunFunc(func(context.Context) error { return nil })),
	)
	err := r.Wait()
	require.Error(t, err)
	assert.True(t, errors.Is(err, openErr))

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "serial", runErr.Name)
	assert.Equal(t, "serial: open /dev/ttyS4 failed", err.Error())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	assert.NoError(t, errs.Add(nil, nil).Aggregate())
	errs.Add(errors.New("a"), nil, errors.New("b"))
	err := errs.Aggregate()
	require.Error(t, err)
	assert.Equal(t, "2 errors:\n  a\n  b", err.Error())
}
