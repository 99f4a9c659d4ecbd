package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// Registry mantém um Breaker por identidade de agente
type Registry struct {
	mu        sync.Mutex
	breakers  map[string]*Breaker
	threshold int
	cooldown  time.Duration
	logger    *slog.Logger
}

func NewRegistry(threshold int, cooldown time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		breakers:  make(map[string]*Breaker),
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
	}
}

func (r *Registry) For(agentName string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[agentName]
	if !ok {
		b = NewBreaker(agentName, r.threshold, r.cooldown, r.logger)
		r.breakers[agentName] = b
	}
	return b
}

// States devolve o estado corrente de todos os breakers conhecidos
func (r *Registry) States() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}
