package governor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/diogoX451/mentor/internal/breaker"
	"github.com/diogoX451/mentor/internal/budget"
	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/internal/core/ports"
	"github.com/diogoX451/mentor/internal/scheduler"
	"github.com/diogoX451/mentor/pkg/types"
)

// baseTokens cobre o overhead fixo de prompt de qualquer chamada
const baseTokens = 200

type Config struct {
	CPUMaxPercent    float64
	MemoryMaxPercent float64
	BackoffDelay     time.Duration
	AgentTimeout     time.Duration
}

// Governor é o ponto único de admissão para chamadas de agente:
// verifica recursos do host, breaker e budget antes de executar, e
// encaminha agentes pesados pelo scheduler. Uma chamada admitida pode
// falhar na execução; o governor em si só rejeita, nunca falha.
type Governor struct {
	cfg       Config
	budget    *budget.TokenBudget
	breakers  *breaker.Registry
	scheduler *scheduler.Scheduler
	executor  ports.AgentExecutor
	sampler   Sampler
	logger    *slog.Logger

	mu       sync.Mutex
	fallback bool
	timeout  time.Duration
	sleepFn  func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, tb *budget.TokenBudget, reg *breaker.Registry, sched *scheduler.Scheduler, exec ports.AgentExecutor, sampler Sampler, logger *slog.Logger) *Governor {
	if cfg.CPUMaxPercent <= 0 {
		cfg.CPUMaxPercent = 80
	}
	if cfg.MemoryMaxPercent <= 0 {
		cfg.MemoryMaxPercent = 85
	}
	if cfg.BackoffDelay <= 0 {
		cfg.BackoffDelay = time.Second
	}
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = 60 * time.Second
	}
	if sampler == nil {
		sampler = SystemSampler{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Governor{
		cfg:       cfg,
		budget:    tb,
		breakers:  reg,
		scheduler: sched,
		executor:  exec,
		sampler:   sampler,
		logger:    logger,
		timeout:   cfg.AgentTimeout,
		sleepFn:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// estimateTokens aproxima o custo da chamada: overhead fixo mais
// metade dos caracteres de string do payload, escalado pelo
// multiplicador estático do agente.
func estimateTokens(agentName string, input types.Data) int {
	chars := 0
	if gjson.ValidBytes(input) {
		gjson.ParseBytes(input).ForEach(func(_, value gjson.Result) bool {
			chars += countChars(value)
			return true
		})
	} else {
		chars = len(input)
	}
	estimate := float64(baseTokens+chars/2) * types.TokenMultiplier(agentName)
	return int(estimate)
}

func countChars(v gjson.Result) int {
	switch v.Type {
	case gjson.String:
		return len(v.Str)
	case gjson.JSON:
		total := 0
		v.ForEach(func(_, child gjson.Result) bool {
			total += countChars(child)
			return true
		})
		return total
	default:
		return 0
	}
}

// ShouldThrottle avalia os limiares de CPU, memória e carga do
// scheduler. Falha de amostragem conta como não-throttle.
func (g *Governor) ShouldThrottle(ctx context.Context) (bool, string) {
	cpuPct, memPct, err := g.sampler.Sample(ctx)
	if err != nil {
		g.logger.Warn("resource sample failed", slog.String("error", err.Error()))
	} else {
		if cpuPct > g.cfg.CPUMaxPercent {
			return true, fmt.Sprintf("cpu %.1f%% above %.1f%%", cpuPct, g.cfg.CPUMaxPercent)
		}
		if memPct > g.cfg.MemoryMaxPercent {
			return true, fmt.Sprintf("memory %.1f%% above %.1f%%", memPct, g.cfg.MemoryMaxPercent)
		}
	}

	limit := int(float64(g.scheduler.Workers()) * 1.5)
	if active := g.scheduler.ActiveTasks(); active > limit {
		return true, fmt.Sprintf("%d active tasks above limit %d", active, limit)
	}
	return false, ""
}

// Execute passa a chamada por todos os portões de admissão e invoca o
// executor (via scheduler para agentes pesados, inline para os
// restantes). O consumo real de tokens é registado após a execução.
func (g *Governor) Execute(ctx context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	if throttled, reason := g.ShouldThrottle(ctx); throttled {
		g.logger.Warn("throttling before agent call",
			slog.String("agent", agentName),
			slog.String("reason", reason))
		if err := g.sleepFn(ctx, g.cfg.BackoffDelay); err != nil {
			return domain.ExecutorResult{}, err
		}
	}

	estimate := estimateTokens(agentName, input)

	br := g.breakers.For(agentName)
	if !br.Allow() {
		return domain.ExecutorResult{}, &domain.AdmissionError{
			AgentName:  agentName,
			Reason:     fmt.Sprintf("circuit breaker %s", br.State()),
			RetryAfter: br.RetryAfter(),
		}
	}

	if !g.budget.CanConsume(estimate) {
		wait := g.budget.EstimateWait(estimate)
		if wait <= 0 {
			// acima do teto por chamada; esperar não ajuda
			return domain.ExecutorResult{}, &domain.AdmissionError{
				AgentName: agentName,
				Reason:    fmt.Sprintf("estimated %d tokens exceeds per-request ceiling", estimate),
			}
		}
		g.logger.Info("token budget exhausted, waiting for window",
			slog.String("agent", agentName),
			slog.Int("estimate", estimate),
			slog.Duration("wait", wait))
		if err := g.sleepFn(ctx, wait); err != nil {
			return domain.ExecutorResult{}, err
		}
		if !g.budget.CanConsume(estimate) {
			return domain.ExecutorResult{}, &domain.AdmissionError{
				AgentName:  agentName,
				Reason:     fmt.Sprintf("token budget still exhausted for estimate %d", estimate),
				RetryAfter: g.budget.EstimateWait(estimate),
			}
		}
	}

	res, err := g.dispatch(ctx, agentName, input)

	if err != nil || !res.Success {
		br.RecordFailure()
	} else {
		br.RecordSuccess()
	}
	if res.TokensConsumed > 0 {
		g.budget.Consume(res.TokensConsumed)
	} else if err == nil {
		g.budget.Consume(estimate)
	}

	if err != nil {
		return res, err
	}
	return res, nil
}

func (g *Governor) dispatch(ctx context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.currentTimeout())
	defer cancel()

	var res domain.ExecutorResult
	var err error
	if types.IsHeavyAgent(agentName) && !g.inFallback() {
		// o mesmo callCtx limita a espera e a execução da unidade no
		// scheduler; a expiração conta como falha nas métricas dela
		var h *scheduler.TaskHandle
		h, err = g.scheduler.Submit(callCtx, types.WorkUnit{
			ID:        types.TaskID(uuid.NewString()),
			AgentName: agentName,
			Priority:  types.AgentPriority(agentName),
			Payload:   input,
		})
		if err != nil {
			return domain.ExecutorResult{}, err
		}
		res, err = h.Wait(callCtx)
	} else {
		res, err = g.executor.Execute(callCtx, agentName, input)
	}

	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded)
		var ee *domain.ExecutionError
		if errors.As(err, &ee) {
			return res, err
		}
		return res, &domain.ExecutionError{AgentName: agentName, TimedOut: timedOut, Err: err}
	}
	return res, nil
}

func (g *Governor) currentTimeout() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timeout
}

func (g *Governor) inFallback() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fallback
}

// SetFallbackMode força todas as chamadas a execução inline,
// contornando o scheduler (usado pelo controlador de degradação)
func (g *Governor) SetFallbackMode(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fallback != on {
		g.fallback = on
		g.logger.Warn("fallback mode changed", slog.Bool("enabled", on))
	}
}

// SetTimeout ajusta o timeout por chamada em runtime
func (g *Governor) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timeout = d
}

// Timeout devolve o timeout corrente por chamada
func (g *Governor) Timeout() time.Duration { return g.currentTimeout() }

// BudgetRemaining expõe o saldo da janela corrente
func (g *Governor) BudgetRemaining() int { return g.budget.Remaining() }
