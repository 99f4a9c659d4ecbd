package agents

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/pkg/types"
)

// runDesigner monta o template de avaliação a partir do nível de
// ensino. O template orienta os agentes de análise a jusante.
func runDesigner(_ context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	gradeLevel := gjson.GetBytes(input, "grade_level").String()
	if gradeLevel == "" {
		gradeLevel = "default"
	}

	criteria := []string{"clarity", "structure", "vocabulary", "argumentation"}
	if strings.HasPrefix(gradeLevel, "grade_1") || strings.HasPrefix(gradeLevel, "grade_2") || strings.HasPrefix(gradeLevel, "grade_3") {
		// primeiros anos: foco em fundamentos, sem argumentação
		criteria = []string{"clarity", "structure", "vocabulary"}
	}

	out, err := json.Marshal(map[string]any{
		"agent":       agentName,
		"grade_level": gradeLevel,
		"template": map[string]any{
			"criteria":  criteria,
			"max_score": 10,
			"focus":     "constructive, age-appropriate feedback",
		},
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

// runMaster trata pedidos de consultoria pedagógica: devolve um plano
// a partir dos requisitos do utilizador
func runMaster(_ context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	requirements := gjson.GetBytes(input, "requirements").String()
	if strings.TrimSpace(requirements) == "" {
		return domain.ExecutorResult{Success: false}, nil
	}

	steps := []string{
		"clarify the learning objective behind: " + requirements,
		"select assessment criteria aligned with the objective",
		"draft exercises that target the identified gaps",
		"define how progress will be measured",
	}

	out, err := json.Marshal(map[string]any{
		"agent":        agentName,
		"requirements": requirements,
		"plan":         steps,
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
