package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/diogoX451/mentor/pkg/types"
)

// AdmissionError: o TokenBudget ou o CircuitBreaker bloqueou a chamada.
// Retryable depois de RetryAfter.
type AdmissionError struct {
	AgentName  string
	Reason     string
	RetryAfter time.Duration
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission rejected for %s: %s (retry after %s)", e.AgentName, e.Reason, e.RetryAfter)
}

// ExecutionError: o Agent Executor falhou ou expirou o timeout.
type ExecutionError struct {
	AgentName string
	TimedOut  bool
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("agent %s timed out: %v", e.AgentName, e.Err)
	}
	return fmt.Sprintf("agent %s failed: %v", e.AgentName, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// StepError: uma etapa do workflow falhou; o workflow pára aí e os
// resultados parciais ficam preservados no contexto.
type StepError struct {
	SessionID types.SessionID
	Step      types.WorkflowStep
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow %s failed at step %s: %v", e.SessionID, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

var (
	// ErrSchedulerStopped: unidade enfileirada abandonada no shutdown
	ErrSchedulerStopped = errors.New("scheduler stopped before task started")

	// ErrSessionNotFound: sessão desconhecida para o engine
	ErrSessionNotFound = errors.New("workflow session not found")

	// ErrSessionExists: Start chamado duas vezes para a mesma sessão ativa
	ErrSessionExists = errors.New("workflow session already active")
)

func IsAdmissionRejected(err error) bool {
	var ae *AdmissionError
	return errors.As(err, &ae)
}

func IsStepFailed(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}
