package health

import (
	"log/slog"
	"sync"
	"time"

	"github.com/diogoX451/mentor/pkg/types"
)

// limiares de degradação, mais apertados que os de alerta: aqui o
// sistema age em vez de só avisar
const (
	degradeCPUPercent = 90.0
	degradeMemPercent = 90.0
	degradeErrRate    = 0.3
	degradeRespTime   = 60 * time.Second
)

// condições e ações conhecidas
const (
	CondHighCPU       = "high_cpu"
	CondHighMemory    = "high_memory"
	CondHighErrorRate = "high_error_rate"
	CondSlowResponses = "slow_responses"

	ActionReduceConcurrency = "reduce_concurrency"
	ActionClearCaches       = "clear_caches"
	ActionFallbackMode      = "fallback_mode"
	ActionTimeoutReduction  = "timeout_reduction"
)

// Actions são os ganchos injetados que as mitigações acionam. Cada
// função deve ser idempotente; o controlador pode repetir a avaliação
// enquanto a condição persistir.
type Actions struct {
	ReduceConcurrency  func()
	RestoreConcurrency func()
	ClearCaches        func()
	FallbackMode       func(on bool)
	ReduceTimeouts     func(on bool)
}

type activeDegradation struct {
	action      string
	description string
	since       time.Time
}

// Controller aplica e reverte mitigações conforme as amostras do
// monitor cruzam os limiares de degradação. Aplicações repetidas da
// mesma condição são no-op até Recover.
type Controller struct {
	mu      sync.Mutex
	active  map[string]activeDegradation
	actions Actions
	now     func() time.Time
	logger  *slog.Logger
}

func NewController(actions Actions, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		active:  make(map[string]activeDegradation),
		actions: actions,
		now:     time.Now,
		logger:  logger,
	}
}

// Evaluate olha para a amostra e aplica as mitigações cujas condições
// disparam. Recuperação é sempre explícita via Recover; uma amostra
// boa não desativa nada sozinha.
func (c *Controller) Evaluate(s types.HealthSample) {
	if s.CPUPercent > degradeCPUPercent {
		c.apply(CondHighCPU, ActionReduceConcurrency,
			"reduced scheduler concurrency due to cpu pressure", c.actions.ReduceConcurrency)
	}
	if s.MemoryPercent > degradeMemPercent {
		c.apply(CondHighMemory, ActionClearCaches,
			"cleared expired caches due to memory pressure", c.actions.ClearCaches)
	}
	if s.ErrorRate > degradeErrRate {
		c.apply(CondHighErrorRate, ActionFallbackMode,
			"fallback mode enabled due to error rate", func() {
				if c.actions.FallbackMode != nil {
					c.actions.FallbackMode(true)
				}
			})
	}
	if s.AvgResponseTime > degradeRespTime {
		c.apply(CondSlowResponses, ActionTimeoutReduction,
			"reduced agent timeouts due to slow responses", func() {
				if c.actions.ReduceTimeouts != nil {
					c.actions.ReduceTimeouts(true)
				}
			})
	}
}

func (c *Controller) apply(condition, action, description string, fn func()) {
	c.mu.Lock()
	if _, exists := c.active[condition]; exists {
		c.mu.Unlock()
		return
	}
	c.active[condition] = activeDegradation{
		action:      action,
		description: description,
		since:       c.now(),
	}
	c.mu.Unlock()

	c.logger.Warn("degradation applied",
		slog.String("condition", condition),
		slog.String("action", action))
	if fn != nil {
		fn()
	}
}

// Recover reverte a mitigação da condição. Devolve false se não havia
// nada ativo para essa condição.
func (c *Controller) Recover(condition string) bool {
	c.mu.Lock()
	deg, ok := c.active[condition]
	if ok {
		delete(c.active, condition)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}

	switch deg.action {
	case ActionReduceConcurrency:
		if c.actions.RestoreConcurrency != nil {
			c.actions.RestoreConcurrency()
		}
	case ActionFallbackMode:
		if c.actions.FallbackMode != nil {
			c.actions.FallbackMode(false)
		}
	case ActionTimeoutReduction:
		if c.actions.ReduceTimeouts != nil {
			c.actions.ReduceTimeouts(false)
		}
	}

	c.logger.Info("degradation recovered",
		slog.String("condition", condition),
		slog.String("action", deg.action),
		slog.Duration("duration", c.now().Sub(deg.since)))
	return true
}

// Active lista as mitigações em vigor
func (c *Controller) Active() []types.DegradationInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.DegradationInfo, 0, len(c.active))
	for cond, deg := range c.active {
		out = append(out, types.DegradationInfo{
			Condition:   cond,
			Action:      deg.action,
			Description: deg.description,
			Since:       deg.since,
		})
	}
	return out
}
