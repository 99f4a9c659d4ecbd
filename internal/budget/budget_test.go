package budget

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBudget(t *testing.T) {
	t.Run("per request ceiling", func(t *testing.T) {
		b := New(10000, 2000, nil)
		assert.False(t, b.CanConsume(2001))
		assert.True(t, b.CanConsume(2000))
	})

	t.Run("consume is atomic", func(t *testing.T) {
		b := New(3000, 2000, nil)
		require.True(t, b.Consume(2000))
		require.False(t, b.Consume(1500))
		// rejeição não pode ter mexido no saldo
		assert.Equal(t, 1000, b.Remaining())
		assert.True(t, b.Consume(1000))
		assert.Equal(t, 0, b.Remaining())
	})

	t.Run("window resets lazily", func(t *testing.T) {
		b := New(10000, 2000, nil)
		current := time.Now()
		b.now = func() time.Time { return current }
		b.windowStart = current

		require.True(t, b.Consume(2000))
		require.True(t, b.Consume(2000))
		assert.Equal(t, 6000, b.Remaining())

		current = current.Add(61 * time.Second)
		assert.Equal(t, 10000, b.Remaining())
		assert.Equal(t, 0, b.Used())
	})

	t.Run("estimate wait", func(t *testing.T) {
		b := New(3000, 2000, nil)
		current := time.Now()
		b.now = func() time.Time { return current }
		b.windowStart = current

		assert.Equal(t, time.Duration(0), b.EstimateWait(1000))

		require.True(t, b.Consume(2000))
		// não cabe na janela corrente; espera até a próxima
		assert.Equal(t, time.Minute, b.EstimateWait(1500))

		current = current.Add(40 * time.Second)
		assert.Equal(t, 20*time.Second, b.EstimateWait(1500))

		// acima do teto por chamada esperar não resolve
		assert.Equal(t, time.Duration(0), b.EstimateWait(2500))
		assert.False(t, b.CanConsume(2500))
	})

	t.Run("concurrent consumers never overspend", func(t *testing.T) {
		b := New(1000, 100, nil)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Consume(100)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1000, b.Used())
	})
}
