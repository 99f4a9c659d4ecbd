package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker(t *testing.T) {
	t.Run("opens after consecutive failures", func(t *testing.T) {
		b := NewBreaker("text_analyst", 5, 30*time.Second, nil)
		for i := 0; i < 4; i++ {
			b.RecordFailure()
			assert.Equal(t, StateClosed, b.State())
		}
		b.RecordFailure()
		assert.Equal(t, StateOpen, b.State())
		assert.False(t, b.Allow())
	})

	t.Run("success resets the count", func(t *testing.T) {
		b := NewBreaker("reporter", 5, 30*time.Second, nil)
		for i := 0; i < 4; i++ {
			b.RecordFailure()
		}
		b.RecordSuccess()
		for i := 0; i < 4; i++ {
			b.RecordFailure()
		}
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("single probe after cooldown", func(t *testing.T) {
		b := NewBreaker("guide", 2, 30*time.Second, nil)
		current := time.Now()
		b.now = func() time.Time { return current }

		b.RecordFailure()
		b.RecordFailure()
		require.Equal(t, StateOpen, b.State())
		require.False(t, b.Allow())

		current = current.Add(31 * time.Second)
		assert.True(t, b.Allow(), "first caller after cooldown wins the probe")
		assert.Equal(t, StateHalfOpen, b.State())
		assert.False(t, b.Allow(), "probe already granted")

		b.RecordSuccess()
		assert.Equal(t, StateClosed, b.State())
		assert.True(t, b.Allow())
	})

	t.Run("failed probe reopens", func(t *testing.T) {
		b := NewBreaker("praiser", 2, 30*time.Second, nil)
		current := time.Now()
		b.now = func() time.Time { return current }

		b.RecordFailure()
		b.RecordFailure()
		current = current.Add(31 * time.Second)
		require.True(t, b.Allow())

		b.RecordFailure()
		assert.Equal(t, StateOpen, b.State())
		assert.False(t, b.Allow())

		// o cooldown reinicia a partir da falha da prova
		assert.InDelta(t, float64(30*time.Second), float64(b.RetryAfter()), float64(time.Second))
	})

	t.Run("registry isolates agents", func(t *testing.T) {
		r := NewRegistry(2, 30*time.Second, nil)
		a := r.For("text_analyst")
		a.RecordFailure()
		a.RecordFailure()

		assert.Equal(t, StateOpen, r.For("text_analyst").State())
		assert.Equal(t, StateClosed, r.For("reporter").State())
		assert.Same(t, a, r.For("text_analyst"))

		states := r.States()
		assert.Equal(t, StateOpen, states["text_analyst"])
		assert.Equal(t, StateClosed, states["reporter"])
	})
}
