package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/diogoX451/mentor/internal/agents"
	"github.com/diogoX451/mentor/internal/breaker"
	"github.com/diogoX451/mentor/internal/budget"
	"github.com/diogoX451/mentor/internal/cache"
	"github.com/diogoX451/mentor/internal/config"
	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/internal/core/ports"
	"github.com/diogoX451/mentor/internal/governor"
	"github.com/diogoX451/mentor/internal/health"
	"github.com/diogoX451/mentor/internal/scheduler"
	"github.com/diogoX451/mentor/internal/store/disk"
	"github.com/diogoX451/mentor/internal/workflow"
	"github.com/diogoX451/mentor/pkg/types"
)

// reducedTimeout aplicado quando a degradação timeout_reduction ativa
const reducedTimeout = 15 * time.Second

// Orchestrator é a fachada do core: compõe budget, breakers, cache,
// scheduler, governor, workflow engine e monitorização, e é dono do
// ciclo de vida de todos eles.
type Orchestrator struct {
	cfg        *config.Config
	budget     *budget.TokenBudget
	breakers   *breaker.Registry
	cache      *cache.ResultCache
	scheduler  *scheduler.Scheduler
	governor   *governor.Governor
	engine     *workflow.Engine
	monitor    *health.Monitor
	controller *health.Controller
	agentTTL   time.Duration
	prom       *prometheus.Registry
	logger     *slog.Logger

	sweepStop chan struct{}
	sweepDone chan struct{}
}

func New(cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	diskStore, err := disk.New(disk.Config{Dir: cfg.Cache.Dir}, logger)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:       cfg,
		budget:    budget.New(cfg.Budget.MaxTokensPerMinute, cfg.Budget.MaxTokensPerRequest, logger),
		breakers:  breaker.NewRegistry(cfg.Breaker.Threshold, cfg.Breaker.Cooldown, logger),
		cache:     cache.New(diskStore, cfg.Cache.DefaultTTL, logger),
		agentTTL:  cfg.Cache.AgentTTL,
		prom:      prometheus.NewRegistry(),
		logger:    logger,
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}

	registry := agents.NewRegistry()
	agents.RegisterBuiltins(registry)

	o.scheduler = scheduler.New(scheduler.Config{
		Workers:      cfg.Scheduler.Workers,
		DrainTimeout: cfg.Scheduler.DrainTimeout,
	}, registry, logger)

	o.governor = governor.New(governor.Config{
		CPUMaxPercent:    cfg.Governor.CPUMaxPercent,
		MemoryMaxPercent: cfg.Governor.MemoryMaxPercent,
		BackoffDelay:     cfg.Governor.BackoffDelay,
		AgentTimeout:     cfg.Governor.AgentTimeout,
	}, o.budget, o.breakers, o.scheduler, registry, nil, logger)

	o.engine = workflow.NewEngine(ports.ExecutorFunc(o.CallAgent), diskStore, logger)

	o.controller = health.NewController(health.Actions{
		ReduceConcurrency: func() {
			o.scheduler.SetConcurrency(o.scheduler.Workers() / 2)
		},
		RestoreConcurrency: func() {
			o.scheduler.SetConcurrency(o.scheduler.Workers())
		},
		ClearCaches: func() {
			o.cache.ClearExpired(context.Background())
		},
		FallbackMode: o.governor.SetFallbackMode,
		ReduceTimeouts: func(on bool) {
			if on {
				o.governor.SetTimeout(reducedTimeout)
			} else {
				o.governor.SetTimeout(cfg.Governor.AgentTimeout)
			}
		},
	}, logger)

	o.monitor = health.NewMonitor(health.Config{
		Interval:      cfg.Health.Interval,
		AlertCooldown: cfg.Health.AlertCooldown,
		OnSample:      o.controller.Evaluate,
	}, nil, o.scheduler, o.prom, logger)

	return o, nil
}

// Start lança scheduler, monitor e o sweeper periódico do cache
func (o *Orchestrator) Start(ctx context.Context) {
	o.scheduler.Start(ctx)
	o.monitor.Start(ctx)

	go func() {
		defer close(o.sweepDone)
		interval := o.cfg.Cache.SweepInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				o.cache.ClearExpired(ctx)
			case <-o.sweepStop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	o.logger.Info("orchestrator started")
}

// Stop encerra em ordem inversa; o scheduler drena até o DrainTimeout
func (o *Orchestrator) Stop(ctx context.Context) error {
	close(o.sweepStop)
	<-o.sweepDone
	o.monitor.Stop()
	return o.scheduler.Shutdown(ctx)
}

// CallAgent é a via única de invocação de agentes: consulta o cache,
// passa pelos portões do governor e memoiza apenas resultados com
// sucesso. É o runner injetado no workflow engine.
func (o *Orchestrator) CallAgent(ctx context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	o.monitor.RecordAgentCall(agentName)

	if value, ok := o.cache.Get(ctx, agentName, input); ok {
		return domain.ExecutorResult{Success: true, Output: value}, nil
	}

	res, err := o.governor.Execute(ctx, agentName, input)
	if err != nil {
		return res, err
	}
	if res.Success {
		o.cache.Set(ctx, agentName, input, res.Output, o.agentTTL)
	}
	return res, nil
}

// SubmitWork enfileira uma unidade avulsa diretamente no scheduler.
// Trabalho avulso não carrega prazo de chamador; corre até ao fim.
func (o *Orchestrator) SubmitWork(unit types.WorkUnit) (*scheduler.TaskHandle, error) {
	return o.scheduler.Submit(context.Background(), unit)
}

// StartWorkflow cria a sessão; Execute corre-a até ao fim ou à
// primeira falha
func (o *Orchestrator) StartWorkflow(ctx context.Context, sessionID types.SessionID, requestType string, input types.Data) (*types.ContextSnapshot, error) {
	return o.engine.Start(ctx, sessionID, requestType, input)
}

func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, sessionID types.SessionID) (*types.ContextSnapshot, error) {
	start := time.Now()
	snap, err := o.engine.Execute(ctx, sessionID)

	errKind := ""
	if err != nil {
		var se *domain.StepError
		if errors.As(err, &se) {
			errKind = string(se.Step)
		} else {
			errKind = "internal"
		}
	}
	o.monitor.RecordRequest(err == nil, time.Since(start), errKind)
	return snap, err
}

// Evaluate é o atalho de uma chamada: Start + Execute na mesma sessão
func (o *Orchestrator) Evaluate(ctx context.Context, requestType string, input types.Data) (*types.ContextSnapshot, error) {
	snap, err := o.engine.Start(ctx, "", requestType, input)
	if err != nil {
		return nil, err
	}
	return o.ExecuteWorkflow(ctx, snap.SessionID)
}

func (o *Orchestrator) WorkflowStatus(ctx context.Context, sessionID types.SessionID) (*types.WorkflowStatus, error) {
	return o.engine.Status(ctx, sessionID)
}

func (o *Orchestrator) SchedulerStatus() types.QueueStatus {
	return o.scheduler.Status()
}

func (o *Orchestrator) CacheStats(ctx context.Context) types.CacheStats {
	return o.cache.Stats(ctx)
}

// CacheGet consulta o resultado memoizado de um agente para um request
func (o *Orchestrator) CacheGet(ctx context.Context, agentName string, request types.Data) (types.Data, bool) {
	return o.cache.Get(ctx, agentName, request)
}

// CacheSet memoiza um resultado com TTL explícito; ttl zero usa o TTL
// de agente configurado
func (o *Orchestrator) CacheSet(ctx context.Context, agentName string, request, value types.Data, ttl time.Duration) {
	if ttl <= 0 {
		ttl = o.agentTTL
	}
	o.cache.Set(ctx, agentName, request, value, ttl)
}

// SweepCache remove entradas expiradas dos dois tiers imediatamente
func (o *Orchestrator) SweepCache(ctx context.Context) int {
	return o.cache.ClearExpired(ctx)
}

// Gatherer expõe o registo prometheus para o endpoint /metrics
func (o *Orchestrator) Gatherer() prometheus.Gatherer {
	return o.prom
}

// Dashboard agrega o estado de todos os componentes num payload único
func (o *Orchestrator) Dashboard(ctx context.Context) types.Dashboard {
	sample := o.monitor.LatestSample()
	componentHealth := map[string]types.SystemHealth{}
	if sample != nil {
		for k, v := range sample.ComponentStatus {
			componentHealth[k] = v
		}
	}

	return types.Dashboard{
		SystemHealth:    o.monitor.Overall(),
		CurrentSample:   sample,
		ActiveAlerts:    o.monitor.ActiveAlerts(),
		ComponentHealth: componentHealth,
		Stats:           o.monitor.Stats(),
		Scheduler:       o.scheduler.Status(),
		Cache:           o.cache.Stats(ctx),
		TokensRemaining: o.budget.Remaining(),
		Degradations:    o.controller.Active(),
		Uptime:          o.monitor.Uptime(),
	}
}
