package ports

import (
	"context"

	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/pkg/types"
)

// AgentExecutor abstração da invocação de agentes externos (LLM).
// Implementado fora do core; o core só conhece esta interface.
// A chamada deve respeitar o timeout do ctx; retries internos são
// responsabilidade da implementação.
type AgentExecutor interface {
	Execute(ctx context.Context, agentName string, input types.Data) (domain.ExecutorResult, error)
}

// ExecutorFunc adapta uma função para AgentExecutor
type ExecutorFunc func(ctx context.Context, agentName string, input types.Data) (domain.ExecutorResult, error)

func (f ExecutorFunc) Execute(ctx context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	return f(ctx, agentName, input)
}
