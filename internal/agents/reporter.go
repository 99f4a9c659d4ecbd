package agents

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/pkg/types"
)

// runReporter consolida as saídas dos agentes de análise num relatório
// único com nota final. O input traz os subdocumentos em "analysis",
// "praise" e "guidance".
func runReporter(_ context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	doc := gjson.ParseBytes(input)

	score := doc.Get("analysis.analysis.score").Float()
	if score == 0 {
		score = 5.0
	}

	strengths := collectStrings(doc.Get("praise.strengths"))
	suggestions := collectStrings(doc.Get("guidance.suggestions"))

	summary := "The essay was evaluated across clarity, structure and vocabulary."
	switch {
	case score >= 8:
		summary += " Overall performance is strong."
	case score >= 6:
		summary += " Overall performance is solid with room to grow."
	default:
		summary += " The essay needs focused revision."
	}

	out, err := json.Marshal(map[string]any{
		"agent":         agentName,
		"overall_score": score,
		"summary":       summary,
		"strengths":     strengths,
		"suggestions":   suggestions,
	})
	if err != nil {
		return domain.ExecutorResult{}, err
	}
	return domain.ExecutorResult{
		Success:        true,
		Output:         out,
		TokensConsumed: tokenCost(agentName, input, out),
	}, nil
}

func collectStrings(v gjson.Result) []string {
	out := []string{}
	v.ForEach(func(_, item gjson.Result) bool {
		out = append(out, item.String())
		return true
	})
	return out
}
