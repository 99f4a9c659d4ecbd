package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/diogoX451/mentor/internal/config"
	"github.com/diogoX451/mentor/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Budget:    config.BudgetConfig{MaxTokensPerMinute: 100000, MaxTokensPerRequest: 20000},
		Breaker:   config.BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second},
		Cache:     config.CacheConfig{Dir: t.TempDir(), DefaultTTL: time.Hour, AgentTTL: 30 * time.Minute, SweepInterval: time.Hour},
		Scheduler: config.SchedulerConfig{Workers: 3, DrainTimeout: 5 * time.Second},
		Governor:  config.GovernorConfig{CPUMaxPercent: 100, MemoryMaxPercent: 100, BackoffDelay: 10 * time.Millisecond, AgentTimeout: 30 * time.Second},
		Health:    config.HealthConfig{Interval: time.Minute, AlertCooldown: 5 * time.Minute},
		App:       config.AppConfig{Port: "0", LogLevel: "error", StateDir: t.TempDir()},
	}
}

const serviceEssay = `Recycling at home changed how my family thinks about waste. We separate paper, ` +
	`glass and plastic every single day. My younger brother even started a compost bin in the yard. ` +
	`Small habits, repeated by everyone, can protect the environment for the next generations.`

func newRunningOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := New(testConfig(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	o.Start(ctx)
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = o.Stop(stopCtx)
		cancel()
	})
	return o
}

func TestOrchestratorEvaluate(t *testing.T) {
	o := newRunningOrchestrator(t)
	ctx := context.Background()
	input := types.Data(`{"essay_content":"` + serviceEssay + `","grade_level":"grade_6"}`)

	snap, err := o.Evaluate(ctx, types.RequestEssayEvaluation, input)
	require.NoError(t, err)
	require.NotEmpty(t, snap.FinalResult)

	doc := gjson.ParseBytes(snap.FinalResult)
	assert.Greater(t, doc.Get("evaluation.overall_score").Float(), 0.0)
	assert.NotEmpty(t, doc.Get("evaluation.strengths").Array())

	dash := o.Dashboard(ctx)
	assert.Equal(t, int64(1), dash.Stats.TotalRequests)
	assert.Positive(t, dash.Stats.AgentCalls[types.AgentAnalyst])
	assert.Positive(t, dash.TokensRemaining)

	// os agentes pesados passaram pelo scheduler
	assert.Positive(t, dash.Scheduler.CompletedTasks)
}

func TestOrchestratorMemoization(t *testing.T) {
	o := newRunningOrchestrator(t)
	ctx := context.Background()
	input := types.Data(`{"essay_content":"` + serviceEssay + `","grade_level":"grade_6"}`)

	_, err := o.Evaluate(ctx, types.RequestEssayEvaluation, input)
	require.NoError(t, err)
	coldStats := o.CacheStats(ctx)

	_, err = o.Evaluate(ctx, types.RequestEssayEvaluation, input)
	require.NoError(t, err)
	warmStats := o.CacheStats(ctx)

	assert.Greater(t, warmStats.HitCount, coldStats.HitCount,
		"second evaluation must be served from the result cache")
}

func TestOrchestratorCacheAccess(t *testing.T) {
	o := newRunningOrchestrator(t)
	ctx := context.Background()
	request := types.Data(`{"essay_content":"short text","grade_level":"grade_4"}`)

	_, ok := o.CacheGet(ctx, types.AgentAnalyst, request)
	assert.False(t, ok)

	o.CacheSet(ctx, types.AgentAnalyst, request, types.Data(`{"score":7.5}`), time.Minute)
	value, ok := o.CacheGet(ctx, types.AgentAnalyst, request)
	require.True(t, ok)
	assert.Equal(t, 7.5, gjson.GetBytes(value, "score").Float())

	// ttl não positivo cai no TTL de agente configurado
	o.CacheSet(ctx, types.AgentGuide, request, types.Data(`{"ok":true}`), 0)
	_, ok = o.CacheGet(ctx, types.AgentGuide, request)
	assert.True(t, ok)

	// a entrada manual serve um CallAgent subsequente
	res, err := o.CallAgent(ctx, types.AgentAnalyst, request)
	require.NoError(t, err)
	assert.Equal(t, 7.5, gjson.GetBytes(res.Output, "score").Float())
}

func TestOrchestratorWorkflowStatus(t *testing.T) {
	o := newRunningOrchestrator(t)
	ctx := context.Background()
	input := types.Data(`{"essay_content":"` + serviceEssay + `","grade_level":"grade_6"}`)

	snap, err := o.StartWorkflow(ctx, "svc_sess", types.RequestEssayEvaluation, input)
	require.NoError(t, err)

	status, err := o.WorkflowStatus(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, status.Progress)

	_, err = o.ExecuteWorkflow(ctx, snap.SessionID)
	require.NoError(t, err)

	status, err = o.WorkflowStatus(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.True(t, status.Done)
}

func TestOrchestratorSweep(t *testing.T) {
	o := newRunningOrchestrator(t)
	ctx := context.Background()
	input := types.Data(`{"essay_content":"` + serviceEssay + `","grade_level":"grade_6"}`)

	_, err := o.Evaluate(ctx, types.RequestEssayEvaluation, input)
	require.NoError(t, err)
	require.Positive(t, o.CacheStats(ctx).DiskEntries)

	// nada expirou ainda
	assert.Zero(t, o.SweepCache(ctx))
}
