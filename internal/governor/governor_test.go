package governor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoX451/mentor/internal/breaker"
	"github.com/diogoX451/mentor/internal/budget"
	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/internal/core/ports"
	"github.com/diogoX451/mentor/internal/scheduler"
	"github.com/diogoX451/mentor/pkg/types"
)

type fakeSampler struct {
	cpu, mem float64
	err      error
}

func (f fakeSampler) Sample(context.Context) (float64, float64, error) {
	return f.cpu, f.mem, f.err
}

func newTestGovernor(t *testing.T, exec ports.AgentExecutor, sampler Sampler) (*Governor, *scheduler.Scheduler) {
	t.Helper()
	tb := budget.New(10000, 2000, nil)
	reg := breaker.NewRegistry(5, 30*time.Second, nil)
	sched := scheduler.New(scheduler.Config{Workers: 3}, exec, nil)
	sched.Start(context.Background())
	t.Cleanup(func() { _ = sched.Shutdown(context.Background()) })

	g := New(Config{BackoffDelay: 10 * time.Millisecond}, tb, reg, sched, exec, sampler, nil)
	return g, sched
}

func okExecutor(tokens int) ports.ExecutorFunc {
	return func(_ context.Context, _ string, _ types.Data) (domain.ExecutorResult, error) {
		return domain.ExecutorResult{Success: true, Output: types.Data(`{}`), TokensConsumed: tokens}, nil
	}
}

func TestEstimateTokens(t *testing.T) {
	input := types.Data(`{"essay_content":"aaaaaaaaaaaaaaaaaaaa","grade_level":"grade_5"}`)

	t.Run("scales with agent multiplier", func(t *testing.T) {
		analyst := estimateTokens("text_analyst", input)
		praiser := estimateTokens("praiser", input)
		assert.Greater(t, analyst, praiser)
	})

	t.Run("unknown agent uses base multiplier", func(t *testing.T) {
		// 20 + 7 caracteres de string, metade, mais overhead fixo
		got := estimateTokens("someone_else", input)
		assert.Equal(t, 200+(20+7)/2, got)
	})

	t.Run("non json counts raw bytes", func(t *testing.T) {
		got := estimateTokens("someone_else", types.Data("plain text"))
		assert.Equal(t, 200+len("plain text")/2, got)
	})
}

func TestGovernorExecute(t *testing.T) {
	calm := fakeSampler{cpu: 10, mem: 20}

	t.Run("light agent runs inline and consumes tokens", func(t *testing.T) {
		g, sched := newTestGovernor(t, okExecutor(150), calm)

		res, err := g.Execute(context.Background(), types.AgentGuide, types.Data(`{"essay_content":"ok"}`))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 10000-150, g.BudgetRemaining())
		assert.Zero(t, sched.Status().CompletedTasks, "guide must not touch the scheduler")
	})

	t.Run("heavy agent goes through the scheduler", func(t *testing.T) {
		g, sched := newTestGovernor(t, okExecutor(100), calm)

		res, err := g.Execute(context.Background(), types.AgentAnalyst, types.Data(`{"essay_content":"ok"}`))
		require.NoError(t, err)
		assert.True(t, res.Success)
		require.Eventually(t, func() bool {
			return sched.Status().CompletedTasks == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("fallback mode bypasses the scheduler", func(t *testing.T) {
		g, sched := newTestGovernor(t, okExecutor(100), calm)
		g.SetFallbackMode(true)

		_, err := g.Execute(context.Background(), types.AgentAnalyst, types.Data(`{"essay_content":"ok"}`))
		require.NoError(t, err)
		assert.Zero(t, sched.Status().CompletedTasks)
	})

	t.Run("timeout marks the scheduled unit as failed", func(t *testing.T) {
		slow := ports.ExecutorFunc(func(ctx context.Context, _ string, _ types.Data) (domain.ExecutorResult, error) {
			select {
			case <-ctx.Done():
				return domain.ExecutorResult{}, ctx.Err()
			case <-time.After(10 * time.Second):
				return domain.ExecutorResult{Success: true}, nil
			}
		})
		g, sched := newTestGovernor(t, slow, calm)
		g.SetTimeout(50 * time.Millisecond)

		_, err := g.Execute(context.Background(), types.AgentAnalyst, types.Data(`{"essay_content":"ok"}`))
		require.Error(t, err)
		var ee *domain.ExecutionError
		require.ErrorAs(t, err, &ee)
		assert.True(t, ee.TimedOut)

		// o prazo acompanha a unidade até dentro do scheduler: a métrica
		// dela regista falha, não um sucesso tardio
		require.Eventually(t, func() bool {
			return len(sched.Metrics()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.False(t, sched.Metrics()[0].Success)
	})

	t.Run("open breaker rejects with retry hint", func(t *testing.T) {
		g, _ := newTestGovernor(t, okExecutor(100), calm)
		br := g.breakers.For(types.AgentGuide)
		for i := 0; i < 5; i++ {
			br.RecordFailure()
		}

		_, err := g.Execute(context.Background(), types.AgentGuide, types.Data(`{}`))
		require.True(t, domain.IsAdmissionRejected(err))
		var ae *domain.AdmissionError
		require.ErrorAs(t, err, &ae)
		assert.Greater(t, ae.RetryAfter, time.Duration(0))
	})

	t.Run("execution failures trip the breaker", func(t *testing.T) {
		failing := ports.ExecutorFunc(func(context.Context, string, types.Data) (domain.ExecutorResult, error) {
			return domain.ExecutorResult{}, errors.New("upstream down")
		})
		g, _ := newTestGovernor(t, failing, calm)

		for i := 0; i < 5; i++ {
			_, err := g.Execute(context.Background(), types.AgentGuide, types.Data(`{}`))
			require.Error(t, err)
			assert.False(t, domain.IsAdmissionRejected(err))
		}
		_, err := g.Execute(context.Background(), types.AgentGuide, types.Data(`{}`))
		assert.True(t, domain.IsAdmissionRejected(err), "breaker opens after the fifth failure")
	})

	t.Run("over ceiling estimate rejected without waiting", func(t *testing.T) {
		g, _ := newTestGovernor(t, okExecutor(100), calm)
		slept := false
		g.sleepFn = func(context.Context, time.Duration) error {
			slept = true
			return nil
		}

		big := make([]byte, 8000)
		for i := range big {
			big[i] = 'a'
		}
		input := types.Data(`{"essay_content":"` + string(big) + `"}`)

		_, err := g.Execute(context.Background(), types.AgentGuide, input)
		require.True(t, domain.IsAdmissionRejected(err))
		assert.False(t, slept)
	})

	t.Run("exhausted window waits once then retries", func(t *testing.T) {
		g, _ := newTestGovernor(t, okExecutor(100), calm)
		g.budget.Consume(9900)

		var sleeps int32
		g.sleepFn = func(context.Context, time.Duration) error {
			atomic.AddInt32(&sleeps, 1)
			// simula a passagem da janela
			g.budget = budget.New(10000, 2000, nil)
			return nil
		}

		res, err := g.Execute(context.Background(), types.AgentGuide, types.Data(`{"essay_content":"ok"}`))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, int32(1), atomic.LoadInt32(&sleeps))
	})

	t.Run("throttle on resource pressure backs off", func(t *testing.T) {
		g, _ := newTestGovernor(t, okExecutor(100), fakeSampler{cpu: 95, mem: 20})
		var sleeps int32
		g.sleepFn = func(context.Context, time.Duration) error {
			atomic.AddInt32(&sleeps, 1)
			return nil
		}

		_, err := g.Execute(context.Background(), types.AgentGuide, types.Data(`{}`))
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&sleeps))

		throttled, reason := g.ShouldThrottle(context.Background())
		assert.True(t, throttled)
		assert.Contains(t, reason, "cpu")
	})

	t.Run("sampler failure does not throttle", func(t *testing.T) {
		g, _ := newTestGovernor(t, okExecutor(100), fakeSampler{err: errors.New("no procfs")})
		throttled, _ := g.ShouldThrottle(context.Background())
		assert.False(t, throttled)
	})
}
