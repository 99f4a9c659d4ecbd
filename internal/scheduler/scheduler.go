package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/internal/core/ports"
	"github.com/diogoX451/mentor/pkg/types"
)

const maxMetrics = 1000

// TaskHandle acompanha uma WorkUnit submetida até à conclusão
type TaskHandle struct {
	ID   types.TaskID
	unit types.WorkUnit
	ctx  context.Context

	done   chan struct{}
	result domain.ExecutorResult
	err    error
}

// Wait bloqueia até a unidade terminar ou o ctx expirar. Este ctx só
// afeta a espera; o prazo da execução em si é o ctx passado em Submit.
func (h *TaskHandle) Wait(ctx context.Context) (domain.ExecutorResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return domain.ExecutorResult{}, ctx.Err()
	}
}

func (h *TaskHandle) complete(res domain.ExecutorResult, err error) {
	h.result = res
	h.err = err
	close(h.done)
}

// item interno do heap; seq desempata submissões no mesmo instante
type queueItem struct {
	handle *TaskHandle
	seq    uint64
	index  int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i].handle.unit, pq[j].handle.unit
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

type Config struct {
	Workers      int
	DrainTimeout time.Duration
}

// Scheduler despacha WorkUnits por N workers em ordem
// (prioridade desc, submissão asc). Unidades iguais nunca reordenam.
type Scheduler struct {
	mu        sync.Mutex
	queue     priorityQueue
	seq       uint64
	active    int
	completed int
	running   bool

	wake      chan struct{}
	stop      chan struct{}
	wg        sync.WaitGroup
	workers   int
	maxActive int
	drain     time.Duration
	executor  ports.AgentExecutor
	metrics   []types.TaskMetrics
	logger    *slog.Logger
}

func New(cfg Config, executor ports.AgentExecutor, logger *slog.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		workers:   cfg.Workers,
		maxActive: cfg.Workers,
		drain:     cfg.DrainTimeout,
		executor:  executor,
		logger:    logger,
	}
}

// Start lança os workers. Chamar duas vezes é no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	heap.Init(&s.queue)
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.logger.Info("scheduler started", slog.Int("workers", s.workers))
}

// Submit enfileira a unidade e devolve o handle. O ctx limita a
// execução da unidade: se expirar enquanto ela corre (ou ainda na
// fila), a unidade falha e conta como falha nas métricas. Depois do
// shutdown devolve erro imediato.
func (s *Scheduler) Submit(ctx context.Context, unit types.WorkUnit) (*TaskHandle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if unit.SubmittedAt.IsZero() {
		unit.SubmittedAt = time.Now()
	}
	if unit.Priority == 0 {
		unit.Priority = types.PriorityNormal
	}

	h := &TaskHandle{ID: unit.ID, unit: unit, ctx: ctx, done: make(chan struct{})}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, domain.ErrSchedulerStopped
	}
	s.seq++
	heap.Push(&s.queue, &queueItem{handle: h, seq: s.seq})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return h, nil
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	for {
		h := s.next()
		if h == nil {
			select {
			case <-s.wake:
				continue
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
		s.run(ctx, h)
	}
}

func (s *Scheduler) next() *TaskHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 || s.active >= s.maxActive {
		return nil
	}
	item := heap.Pop(&s.queue).(*queueItem)
	s.active++
	if s.queue.Len() > 0 {
		// repõe o sinal consumido; sem isto um burst de Submits entre o
		// pop e o park do próximo worker podia deixar unidades paradas
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return item.handle
}

func (s *Scheduler) run(ctx context.Context, h *TaskHandle) {
	start := time.Now()
	var res domain.ExecutorResult
	var err error

	// o ctx da submissão prevalece sobre o do worker: o prazo de quem
	// submeteu acompanha a unidade até dentro da execução
	runCtx := ctx
	if h.ctx != nil {
		runCtx = h.ctx
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &domain.ExecutionError{
					AgentName: h.unit.AgentName,
					Err:       fmt.Errorf("panic: %v", r),
				}
				s.logger.Error("task panicked",
					slog.String("task_id", string(h.ID)),
					slog.String("agent", h.unit.AgentName),
					slog.Any("panic", r))
			}
		}()
		if cerr := runCtx.Err(); cerr != nil {
			err = cerr
			return
		}
		res, err = s.executor.Execute(runCtx, h.unit.AgentName, h.unit.Payload)
	}()

	m := types.TaskMetrics{
		TaskID:         h.ID,
		AgentName:      h.unit.AgentName,
		Start:          start,
		End:            time.Now(),
		TokensConsumed: res.TokensConsumed,
		Success:        err == nil && res.Success,
	}

	s.mu.Lock()
	s.active--
	s.completed++
	s.metrics = append(s.metrics, m)
	if len(s.metrics) > maxMetrics {
		s.metrics = s.metrics[len(s.metrics)-maxMetrics:]
	}
	s.mu.Unlock()

	// acorda workers que estavam travados pelo teto de concorrência
	select {
	case s.wake <- struct{}{}:
	default:
	}

	h.complete(res, err)
}

// SetConcurrency ajusta o teto de unidades ativas em simultâneo sem
// mexer no pool de goroutines. n fora de [1, workers] é normalizado.
func (s *Scheduler) SetConcurrency(n int) {
	s.mu.Lock()
	if n < 1 {
		n = 1
	}
	if n > s.workers {
		n = s.workers
	}
	changed := n != s.maxActive
	s.maxActive = n
	s.mu.Unlock()

	if changed {
		s.logger.Warn("scheduler concurrency adjusted", slog.Int("max_active", n))
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Shutdown fecha a admissão, abandona a fila e espera pelos workers
// ativos até DrainTimeout.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	abandoned := make([]*TaskHandle, 0, s.queue.Len())
	for s.queue.Len() > 0 {
		item := heap.Pop(&s.queue).(*queueItem)
		abandoned = append(abandoned, item.handle)
	}
	s.mu.Unlock()

	for _, h := range abandoned {
		h.complete(domain.ExecutorResult{}, domain.ErrSchedulerStopped)
	}
	if len(abandoned) > 0 {
		s.logger.Warn("queued tasks abandoned on shutdown", slog.Int("count", len(abandoned)))
	}

	close(s.stop)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	drain := s.drain
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < drain {
			drain = until
		}
	}

	select {
	case <-done:
		s.logger.Info("scheduler drained")
		return nil
	case <-time.After(drain):
		s.logger.Warn("drain timeout exceeded, abandoning active workers")
		return fmt.Errorf("scheduler drain timed out after %s", s.drain)
	}
}

// Metrics devolve uma cópia do log de métricas (mais recente no fim)
func (s *Scheduler) Metrics() []types.TaskMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.TaskMetrics, len(s.metrics))
	copy(out, s.metrics)
	return out
}

func (s *Scheduler) Status() types.QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.QueueStatus{
		Running:        s.running,
		QueueSize:      s.queue.Len(),
		ActiveTasks:    s.active,
		Workers:        s.workers,
		CompletedTasks: s.completed,
	}
}

// Workers devolve a dimensão do pool (usado pelo governor no limiar
// de tarefas ativas)
func (s *Scheduler) Workers() int { return s.workers }

// ActiveTasks devolve ativos + enfileirados
func (s *Scheduler) ActiveTasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active + s.queue.Len()
}
