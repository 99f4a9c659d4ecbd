package budget

import (
	"log/slog"
	"sync"
	"time"
)

const window = time.Minute

// TokenBudget limita consumo por janela deslizante de um minuto mais um
// teto por chamada. O reset da janela é lazy: recalculado no acesso,
// exatamente um reset por janela.
type TokenBudget struct {
	mu                  sync.Mutex
	maxTokensPerMinute  int
	maxTokensPerRequest int
	used                int
	windowStart         time.Time
	now                 func() time.Time
	logger              *slog.Logger
}

func New(maxPerMinute, maxPerRequest int, logger *slog.Logger) *TokenBudget {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenBudget{
		maxTokensPerMinute:  maxPerMinute,
		maxTokensPerRequest: maxPerRequest,
		windowStart:         time.Now(),
		now:                 time.Now,
		logger:              logger,
	}
}

// resetIfElapsed deve ser chamado com o lock tomado
func (b *TokenBudget) resetIfElapsed() {
	now := b.now()
	if now.Sub(b.windowStart) >= window {
		b.used = 0
		b.windowStart = now
	}
}

func (b *TokenBudget) CanConsume(amount int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canConsumeLocked(amount)
}

func (b *TokenBudget) canConsumeLocked(amount int) bool {
	b.resetIfElapsed()

	if amount > b.maxTokensPerRequest {
		b.logger.Warn("request exceeds per-call token ceiling",
			slog.Int("amount", amount),
			slog.Int("max_per_request", b.maxTokensPerRequest))
		return false
	}
	if b.used+amount > b.maxTokensPerMinute {
		b.logger.Warn("minute token budget exhausted",
			slog.Int("amount", amount),
			slog.Int("used", b.used),
			slog.Int("max_per_minute", b.maxTokensPerMinute))
		return false
	}
	return true
}

// Consume é check-then-commit atómico: nada muda quando devolve false.
func (b *TokenBudget) Consume(amount int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.canConsumeLocked(amount) {
		return false
	}
	b.used += amount
	b.logger.Debug("tokens consumed",
		slog.Int("amount", amount),
		slog.Int("window_total", b.used))
	return true
}

func (b *TokenBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfElapsed()
	return b.maxTokensPerMinute - b.used
}

// EstimateWait devolve 0 se o consumo é viável agora, senão o tempo até
// ao início da próxima janela. Acima do teto por chamada devolve 0
// também: esperar nunca torna esse consumo viável.
func (b *TokenBudget) EstimateWait(amount int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if amount > b.maxTokensPerRequest {
		return 0
	}
	if b.canConsumeLocked(amount) {
		return 0
	}
	wait := window - b.now().Sub(b.windowStart)
	if wait < 0 {
		return 0
	}
	return wait
}

// Used expõe o consumo da janela corrente (para o health monitor)
func (b *TokenBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfElapsed()
	return b.used
}
