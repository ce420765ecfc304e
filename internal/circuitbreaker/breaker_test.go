package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(threshold int, open time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := New(threshold, open)
	b.now = clock.Now
	return b, clock
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure("explorer")
	b.RecordFailure("explorer")
	assert.True(t, b.Allow("explorer"))

	b.RecordFailure("explorer")
	assert.False(t, b.Allow("explorer"))
	assert.Equal(t, StateOpen, b.State("explorer"))

	// keys are independent
	assert.True(t, b.Allow("coingecko"))
}

func TestBreaker_HalfOpenSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)
	b.RecordFailure("rpc")
	require.False(t, b.Allow("rpc"))

	clock.Advance(time.Minute)
	assert.True(t, b.Allow("rpc"))
	assert.Equal(t, StateHalfOpen, b.State("rpc"))
	assert.False(t, b.Allow("rpc"), "only one probe while half-open")
}

func TestBreaker_ProbeOutcome(t *testing.T) {
	t.Run("success closes", func(t *testing.T) {
		b, clock := newTestBreaker(1, time.Second)
		b.RecordFailure("k")
		clock.Advance(time.Second)
		require.True(t, b.Allow("k"))

		b.RecordSuccess("k")
		assert.Equal(t, StateClosed, b.State("k"))
		assert.True(t, b.Allow("k"))
	})

	t.Run("failure reopens", func(t *testing.T) {
		b, clock := newTestBreaker(3, time.Second)
		for i := 0; i < 3; i++ {
			b.RecordFailure("k")
		}
		clock.Advance(time.Second)
		require.True(t, b.Allow("k"))

		b.RecordFailure("k")
		assert.Equal(t, StateOpen, b.State("k"))
		assert.False(t, b.Allow("k"))
	})
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	b.RecordFailure("k")
	b.RecordFailure("k")
	b.RecordSuccess("k")
	b.RecordFailure("k")
	b.RecordFailure("k")
	assert.Equal(t, StateClosed, b.State("k"))
}

func TestBreaker_Do(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)
	boom := errors.New("boom")

	assert.ErrorIs(t, b.Do("k", func() error { return boom }), boom)
	assert.ErrorIs(t, b.Do("k", func() error { return boom }), boom)

	called := false
	err := b.Do("k", func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_DoIgnoresAbandoned(t *testing.T) {
	b, _ := newTestBreaker(1, time.Minute)
	abandoned := fmt.Errorf("%w: %w", ErrAbandoned, context.Canceled)

	for i := 0; i < 3; i++ {
		err := b.Do("k", func() error { return abandoned })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, StateClosed, b.State("k"))
}

func TestBreaker_AbandonedProbeIsReleased(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)
	b.RecordFailure("k")
	clock.Advance(time.Minute)

	err := b.Do("k", func() error { return ErrAbandoned })
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.Equal(t, StateOpen, b.State("k"))

	// cool-down already elapsed, so the next call is the probe
	called := false
	require.NoError(t, b.Do("k", func() error { called = true; return nil }))
	assert.True(t, called)
	assert.Equal(t, StateClosed, b.State("k"))
}

func TestBreaker_NilRunsFn(t *testing.T) {
	var b *Breaker
	called := false
	require.NoError(t, b.Do("k", func() error { called = true; return nil }))
	assert.True(t, called)
}

func TestBreaker_Defaults(t *testing.T) {
	b := New(0, 0)
	assert.Equal(t, 5, b.threshold)
	assert.Equal(t, 30*time.Second, b.openDuration)
}

func TestBreaker_ConcurrentUse(t *testing.T) {
	b := New(1000, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				b.RecordFailure("k")
			} else {
				b.RecordSuccess("k")
			}
			b.Allow("k")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, StateClosed, b.State("k"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
