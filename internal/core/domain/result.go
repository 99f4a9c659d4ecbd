package domain

import "github.com/diogoX451/mentor/pkg/types"

// ExecutorResult é o que o Agent Executor devolve por chamada.
// Output é opaco (bytes); o core nunca interpreta além do necessário.
type ExecutorResult struct {
	Success        bool       `json:"success"`
	Output         types.Data `json:"output,omitempty"`
	TokensConsumed int        `json:"tokens_consumed"`
}
