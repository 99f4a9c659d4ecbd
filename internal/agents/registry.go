package agents

import (
	"context"
	"fmt"

	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/internal/core/ports"
	"github.com/diogoX451/mentor/pkg/types"
)

// Registry resolve nomes de agente para executores. Implementa
// ports.AgentExecutor para poder ser injetado direto no core.
type Registry struct {
	executors map[string]ports.ExecutorFunc
}

var _ ports.AgentExecutor = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]ports.ExecutorFunc),
	}
}

func (r *Registry) Register(agentName string, fn ports.ExecutorFunc) {
	r.executors[agentName] = fn
}

func (r *Registry) Execute(ctx context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	fn, ok := r.executors[agentName]
	if !ok {
		return domain.ExecutorResult{}, fmt.Errorf("unknown agent: %s", agentName)
	}
	if err := ctx.Err(); err != nil {
		return domain.ExecutorResult{}, err
	}
	return fn(ctx, agentName, input)
}

func RegisterBuiltins(r *Registry) {
	r.Register(types.AgentMaster, runMaster)
	r.Register(types.AgentDesigner, runDesigner)
	r.Register(types.AgentAnalyst, runAnalyst)
	r.Register(types.AgentPraiser, runPraiser)
	r.Register(types.AgentGuide, runGuide)
	r.Register(types.AgentReporter, runReporter)
}

// tokenCost aproxima o custo real consumido numa execução local
func tokenCost(agentName string, input types.Data, output types.Data) int {
	chars := len(input) + len(output)
	return int(float64(100+chars/4) * types.TokenMultiplier(agentName))
}
