package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesAndRecovers(t *testing.T) {
	calls := 0
	var observed []int
	err := Do(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(attempt int, err error) {
		observed = append(observed, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, observed)
}

func TestDoReturnsLastErrorAfterExhaustion(t *testing.T) {
	first := errors.New("first")
	last := errors.New("last")
	calls := 0
	err := Do(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		if calls == 1 {
			return first
		}
		return last
	}, nil)

	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, last)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, 5, time.Second, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	}, nil)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}
