package breaker

import (
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker isola um agente que falha consecutivamente.
// CLOSED -> OPEN depois de threshold erros seguidos; OPEN -> HALF_OPEN
// quando o cooldown expira (transição feita dentro de Allow), com
// exatamente uma chamada de prova; a prova decide CLOSED ou OPEN.
type Breaker struct {
	mu                sync.Mutex
	agentName         string
	threshold         int
	cooldown          time.Duration
	consecutiveErrors int
	state             State
	reopenAt          time.Time
	now               func() time.Time
	logger            *slog.Logger
}

func NewBreaker(agentName string, threshold int, cooldown time.Duration, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		agentName: agentName,
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		now:       time.Now,
		logger:    logger,
	}
}

// Allow verifica admissão. A passagem OPEN -> HALF_OPEN acontece aqui
// como efeito colateral; só a primeira chamada depois do cooldown ganha
// a prova.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		// prova já concedida a outra chamada
		return false
	case StateOpen:
		if b.now().Before(b.reopenAt) {
			return false
		}
		b.state = StateHalfOpen
		b.logger.Info("circuit breaker half-open, granting probe",
			slog.String("agent", b.agentName))
		return true
	}
	return false
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		b.logger.Info("circuit breaker closed",
			slog.String("agent", b.agentName))
	}
	b.consecutiveErrors = 0
	b.state = StateClosed
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveErrors++

	if b.state == StateHalfOpen {
		// prova falhou, reabre
		b.state = StateOpen
		b.reopenAt = b.now().Add(b.cooldown)
		b.logger.Warn("circuit breaker probe failed, reopening",
			slog.String("agent", b.agentName))
		return
	}

	if b.consecutiveErrors >= b.threshold && b.state == StateClosed {
		b.state = StateOpen
		b.reopenAt = b.now().Add(b.cooldown)
		b.logger.Error("circuit breaker opened",
			slog.String("agent", b.agentName),
			slog.Int("consecutive_errors", b.consecutiveErrors))
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RetryAfter devolve quanto falta até o breaker aceitar uma prova
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return 0
	}
	wait := b.reopenAt.Sub(b.now())
	if wait < 0 {
		return 0
	}
	return wait
}
