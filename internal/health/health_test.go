package health

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoX451/mentor/pkg/types"
)

type stubSampler struct {
	cpu, mem float64
}

func (s *stubSampler) Sample(context.Context) (float64, float64, error) {
	return s.cpu, s.mem, nil
}

type stubScheduler struct {
	status types.QueueStatus
}

func (s *stubScheduler) Status() types.QueueStatus    { return s.status }
func (s *stubScheduler) Metrics() []types.TaskMetrics { return nil }

func newTestMonitor(sampler *stubSampler) *Monitor {
	return NewMonitor(Config{
		Interval:      time.Minute,
		AlertCooldown: 5 * time.Minute,
	}, sampler, &stubScheduler{status: types.QueueStatus{Running: true, Workers: 3}}, prometheus.NewRegistry(), nil)
}

func TestMonitor(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy sample raises nothing", func(t *testing.T) {
		m := newTestMonitor(&stubSampler{cpu: 20, mem: 30})
		sample := m.Collect(ctx)

		assert.Empty(t, m.ActiveAlerts())
		assert.Equal(t, types.HealthHealthy, m.Overall())
		assert.Equal(t, types.HealthHealthy, sample.ComponentStatus["resources"])
	})

	t.Run("high cpu raises one deduplicated alert", func(t *testing.T) {
		sampler := &stubSampler{cpu: 92, mem: 30}
		m := newTestMonitor(sampler)
		current := time.Now()
		m.now = func() time.Time { return current }

		m.Collect(ctx)
		require.Len(t, m.ActiveAlerts(), 1)

		// mesma condição dentro do cool-down não duplica
		current = current.Add(time.Minute)
		m.Collect(ctx)
		assert.Len(t, m.ActiveAlerts(), 1)

		// alerta resolvido reabre mesmo dentro do cool-down
		m.Resolve("resources", "high cpu usage")
		current = current.Add(time.Minute)
		m.Collect(ctx)
		assert.Len(t, m.ActiveAlerts(), 1)

		assert.Equal(t, types.HealthDegraded, m.Overall())
	})

	t.Run("request stats feed error rate alerts", func(t *testing.T) {
		m := newTestMonitor(&stubSampler{cpu: 10, mem: 10})
		for i := 0; i < 8; i++ {
			m.RecordRequest(true, 100*time.Millisecond, "")
		}
		m.RecordRequest(false, 100*time.Millisecond, "template_generation")
		m.RecordRequest(false, 100*time.Millisecond, "template_generation")

		sample := m.Collect(ctx)
		assert.InDelta(t, 0.2, sample.ErrorRate, 0.001)

		alerts := m.ActiveAlerts()
		require.NotEmpty(t, alerts)

		stats := m.Stats()
		assert.Equal(t, int64(10), stats.TotalRequests)
		assert.Equal(t, 2, stats.ErrorCounts["template_generation"])
	})

	t.Run("on sample hook fires", func(t *testing.T) {
		var seen *types.HealthSample
		m := NewMonitor(Config{
			Interval: time.Minute,
			OnSample: func(s types.HealthSample) { seen = &s },
		}, &stubSampler{cpu: 10, mem: 10}, &stubScheduler{}, nil, nil)

		m.Collect(ctx)
		require.NotNil(t, seen)
		assert.Equal(t, 10.0, seen.CPUPercent)
	})

	t.Run("agent calls are counted", func(t *testing.T) {
		m := newTestMonitor(&stubSampler{})
		m.RecordAgentCall("text_analyst")
		m.RecordAgentCall("text_analyst")
		assert.Equal(t, 2, m.Stats().AgentCalls["text_analyst"])
	})
}

func TestDegradationController(t *testing.T) {
	t.Run("applies each condition once", func(t *testing.T) {
		reduced := 0
		c := NewController(Actions{
			ReduceConcurrency: func() { reduced++ },
		}, nil)

		hot := types.HealthSample{CPUPercent: 95}
		c.Evaluate(hot)
		c.Evaluate(hot)
		c.Evaluate(hot)

		assert.Equal(t, 1, reduced, "repeated evaluation must not re-apply")
		require.Len(t, c.Active(), 1)
		assert.Equal(t, CondHighCPU, c.Active()[0].Condition)
	})

	t.Run("recover reverts reversible actions", func(t *testing.T) {
		var fallback []bool
		c := NewController(Actions{
			FallbackMode: func(on bool) { fallback = append(fallback, on) },
		}, nil)

		c.Evaluate(types.HealthSample{ErrorRate: 0.5})
		require.Equal(t, []bool{true}, fallback)

		assert.True(t, c.Recover(CondHighErrorRate))
		assert.Equal(t, []bool{true, false}, fallback)
		assert.Empty(t, c.Active())

		assert.False(t, c.Recover(CondHighErrorRate), "nothing left to recover")
	})

	t.Run("recover restores scheduler concurrency", func(t *testing.T) {
		var transitions []string
		c := NewController(Actions{
			ReduceConcurrency:  func() { transitions = append(transitions, "reduced") },
			RestoreConcurrency: func() { transitions = append(transitions, "restored") },
		}, nil)

		c.Evaluate(types.HealthSample{CPUPercent: 95})
		assert.True(t, c.Recover(CondHighCPU))
		assert.Equal(t, []string{"reduced", "restored"}, transitions)
		assert.Empty(t, c.Active())
	})

	t.Run("good samples never auto recover", func(t *testing.T) {
		c := NewController(Actions{ClearCaches: func() {}}, nil)
		c.Evaluate(types.HealthSample{MemoryPercent: 95})
		require.Len(t, c.Active(), 1)

		c.Evaluate(types.HealthSample{MemoryPercent: 10})
		assert.Len(t, c.Active(), 1, "recovery is explicit")
	})

	t.Run("slow responses reduce timeouts until recover", func(t *testing.T) {
		var timeoutStates []bool
		c := NewController(Actions{
			ReduceTimeouts: func(on bool) { timeoutStates = append(timeoutStates, on) },
		}, nil)

		c.Evaluate(types.HealthSample{AvgResponseTime: 90 * time.Second})
		c.Recover(CondSlowResponses)
		assert.Equal(t, []bool{true, false}, timeoutStates)
	})
}
