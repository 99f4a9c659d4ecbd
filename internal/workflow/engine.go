package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/internal/core/ports"
	"github.com/diogoX451/mentor/internal/store"
	"github.com/diogoX451/mentor/pkg/types"
)

const maxHistory = 100

// StepHandler executa uma etapa sobre o contexto e devolve o
// resultado serializado dela. O handler nunca mexe em StepStatus.
type StepHandler func(ctx context.Context, snap *types.ContextSnapshot) (types.Data, error)

// Engine conduz o pipeline fixo de cinco etapas. O contexto é
// persistido depois de cada etapa, portanto qualquer sessão pode ser
// retomada após crash a partir do último snapshot em disco.
type Engine struct {
	mu      sync.Mutex
	active  map[types.SessionID]*types.ContextSnapshot
	history []*types.ContextSnapshot

	runner   ports.AgentExecutor
	store    store.StateStore
	handlers map[types.WorkflowStep]StepHandler
	now      func() time.Time
	logger   *slog.Logger
}

func NewEngine(runner ports.AgentExecutor, st store.StateStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		active: make(map[types.SessionID]*types.ContextSnapshot),
		runner: runner,
		store:  st,
		now:    time.Now,
		logger: logger,
	}
	e.handlers = map[types.WorkflowStep]StepHandler{
		types.StepInputValidation:    e.validateInput,
		types.StepTemplateGeneration: e.generateTemplate,
		types.StepParallelAnalysis:   e.parallelAnalysis,
		types.StepReportGeneration:   e.generateReport,
		types.StepOutputFormatting:   e.formatOutput,
	}
	return e
}

// Start cria uma sessão nova com todas as etapas PENDING e persiste o
// snapshot inicial. sessionID vazio gera um novo.
func (e *Engine) Start(ctx context.Context, sessionID types.SessionID, requestType string, input types.Data) (*types.ContextSnapshot, error) {
	if requestType != types.RequestEssayEvaluation && requestType != types.RequestTeachingConsultation {
		return nil, fmt.Errorf("unsupported request type: %s", requestType)
	}
	if sessionID == "" {
		sessionID = types.SessionID(uuid.NewString())
	}

	now := e.now()
	snap := &types.ContextSnapshot{
		SessionID:   sessionID,
		RequestType: requestType,
		InputData:   input,
		CurrentStep: types.StepInputValidation,
		StepResults: make(map[types.WorkflowStep]types.Data),
		StepStatus:  make(map[types.WorkflowStep]types.StepStatus),
		StartTime:   now,
		UpdatedAt:   now,
	}
	for _, step := range types.StandardWorkflow() {
		snap.StepStatus[step] = types.StepPending
	}

	e.mu.Lock()
	if _, exists := e.active[sessionID]; exists {
		e.mu.Unlock()
		return nil, domain.ErrSessionExists
	}
	e.active[sessionID] = snap
	e.mu.Unlock()

	e.persist(ctx, snap)

	e.logger.Info("workflow started",
		slog.String("session", string(sessionID)),
		slog.String("request_type", requestType))
	return e.snapshotCopy(snap), nil
}

// Execute corre as etapas pendentes da sessão, na ordem fixa, parando
// na primeira falha. Etapas COMPLETED ou SKIPPED não re-executam, o
// que torna Execute idempotente e também o mecanismo de resume. Em
// falha a sessão sai do mapa de ativas e entra no histórico; um retry
// recarrega o snapshot do disco e continua da etapa falhada.
func (e *Engine) Execute(ctx context.Context, sessionID types.SessionID) (*types.ContextSnapshot, error) {
	snap, err := e.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	executed := false
	for _, step := range types.StandardWorkflow() {
		e.mu.Lock()
		status := snap.StepStatus[step]
		if status == types.StepCompleted || status == types.StepSkipped {
			e.mu.Unlock()
			continue
		}
		snap.CurrentStep = step
		snap.StepStatus[step] = types.StepRunning
		e.mu.Unlock()
		executed = true
		e.persist(ctx, snap)

		result, err := e.handlers[step](ctx, snap)

		e.mu.Lock()
		if err != nil {
			snap.StepStatus[step] = types.StepFailed
			snap.UpdatedAt = e.now()
			e.mu.Unlock()
			e.persist(ctx, snap)
			e.finish(snap)
			e.logger.Error("workflow step failed",
				slog.String("session", string(sessionID)),
				slog.String("step", string(step)),
				slog.String("error", err.Error()))
			return e.snapshotCopy(snap), &domain.StepError{SessionID: sessionID, Step: step, Err: err}
		}
		if result == nil {
			// handler sinalizou skip (etapa não se aplica ao request type)
			snap.StepStatus[step] = types.StepSkipped
		} else {
			snap.StepResults[step] = result
			snap.StepStatus[step] = types.StepCompleted
			if step == types.StepOutputFormatting {
				snap.FinalResult = result
			}
		}
		snap.UpdatedAt = e.now()
		e.mu.Unlock()
		e.persist(ctx, snap)
	}

	if !executed {
		// sessão já estava terminada; sai do mapa de ativas sem
		// duplicar a entrada no histórico
		e.mu.Lock()
		delete(e.active, sessionID)
		e.mu.Unlock()
		return e.snapshotCopy(snap), nil
	}

	e.finish(snap)
	e.logger.Info("workflow completed",
		slog.String("session", string(sessionID)),
		slog.Duration("elapsed", e.now().Sub(snap.StartTime)))
	return e.snapshotCopy(snap), nil
}

// lookup resolve a sessão: memória primeiro, depois disco (recovery
// pós-crash). A sessão recuperada volta ao mapa de ativas.
func (e *Engine) lookup(ctx context.Context, sessionID types.SessionID) (*types.ContextSnapshot, error) {
	e.mu.Lock()
	if snap, ok := e.active[sessionID]; ok {
		e.mu.Unlock()
		return snap, nil
	}
	e.mu.Unlock()

	snap, err := e.store.LoadContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, domain.ErrSessionNotFound
	}

	e.mu.Lock()
	e.active[sessionID] = snap
	e.mu.Unlock()

	e.logger.Info("workflow session recovered from disk",
		slog.String("session", string(sessionID)),
		slog.String("current_step", string(snap.CurrentStep)))
	return snap, nil
}

// persist grava uma cópia do snapshot tirada sob o lock, para o
// marshal não ler os mapas ao mesmo tempo que Execute os escreve
func (e *Engine) persist(ctx context.Context, snap *types.ContextSnapshot) {
	e.mu.Lock()
	cp := copySnapshot(snap)
	e.mu.Unlock()
	if err := e.store.SaveContext(ctx, cp); err != nil {
		// persistência é best-effort; a execução em memória continua
		e.logger.Error("snapshot save failed",
			slog.String("session", string(snap.SessionID)),
			slog.String("error", err.Error()))
	}
}

func (e *Engine) finish(snap *types.ContextSnapshot) {
	e.mu.Lock()
	delete(e.active, snap.SessionID)
	e.history = append(e.history, snap)
	if len(e.history) > maxHistory {
		e.history = e.history[len(e.history)-maxHistory:]
	}
	e.mu.Unlock()
}

// CanResumeFrom devolve a primeira etapa ainda não concluída da
// sessão, ou done=true se nada resta
func (e *Engine) CanResumeFrom(ctx context.Context, sessionID types.SessionID) (types.WorkflowStep, bool, error) {
	snap, err := e.lookup(ctx, sessionID)
	if err != nil {
		return "", false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, step := range types.StandardWorkflow() {
		status := snap.StepStatus[step]
		if status != types.StepCompleted && status != types.StepSkipped {
			return step, false, nil
		}
	}
	return "", true, nil
}

// Status devolve a visão externa da sessão (ativa, histórica ou em
// disco)
func (e *Engine) Status(ctx context.Context, sessionID types.SessionID) (*types.WorkflowStatus, error) {
	e.mu.Lock()
	snap, ok := e.active[sessionID]
	if !ok {
		for i := len(e.history) - 1; i >= 0; i-- {
			if e.history[i].SessionID == sessionID {
				snap = e.history[i]
				ok = true
				break
			}
		}
	}
	if ok {
		// a leitura fica dentro do lock porque Execute pode estar a
		// escrever neste snapshot
		st := e.statusOf(snap)
		e.mu.Unlock()
		return st, nil
	}
	e.mu.Unlock()

	loaded, err := e.store.LoadContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if loaded == nil {
		return nil, domain.ErrSessionNotFound
	}
	return e.statusOf(loaded), nil
}

func (e *Engine) statusOf(snap *types.ContextSnapshot) *types.WorkflowStatus {
	total := len(types.StandardWorkflow())
	settled := 0
	done := true
	for _, step := range types.StandardWorkflow() {
		switch snap.StepStatus[step] {
		case types.StepCompleted, types.StepSkipped:
			settled++
		default:
			done = false
		}
	}

	return &types.WorkflowStatus{
		SessionID:   snap.SessionID,
		RequestType: snap.RequestType,
		CurrentStep: snap.CurrentStep,
		StepStatus:  copyStatus(snap.StepStatus),
		Progress:    float64(settled) / float64(total) * 100,
		Elapsed:     e.now().Sub(snap.StartTime),
		Done:        done,
	}
}

// ActiveSessions devolve os IDs das sessões ainda em curso
func (e *Engine) ActiveSessions() []types.SessionID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.SessionID, 0, len(e.active))
	for id := range e.active {
		out = append(out, id)
	}
	return out
}

func (e *Engine) snapshotCopy(snap *types.ContextSnapshot) *types.ContextSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copySnapshot(snap)
}

func copySnapshot(snap *types.ContextSnapshot) *types.ContextSnapshot {
	out := *snap
	out.StepResults = make(map[types.WorkflowStep]types.Data, len(snap.StepResults))
	for k, v := range snap.StepResults {
		out.StepResults[k] = v
	}
	out.StepStatus = copyStatus(snap.StepStatus)
	return &out
}

func copyStatus(in map[types.WorkflowStep]types.StepStatus) map[types.WorkflowStep]types.StepStatus {
	out := make(map[types.WorkflowStep]types.StepStatus, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
