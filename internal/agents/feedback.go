package agents

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/pkg/types"
)

// runPraiser identifica pontos fortes do texto. Devolve sempre pelo
// menos um ponto quando há conteúdo; elogio vazio não é feedback.
func runPraiser(_ context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	content := gjson.GetBytes(input, "essay_content").String()
	if strings.TrimSpace(content) == "" {
		return domain.ExecutorResult{Success: false}, nil
	}

	stats := analyze(content)
	strengths := make([]string, 0, 4)
	if stats.WordCount >= 50 {
		strengths = append(strengths, "the essay develops its ideas with substantial length")
	}
	if stats.UniqueWordRatio > 0.5 {
		strengths = append(strengths, "vocabulary is varied and avoids repetition")
	}
	if stats.AvgSentenceLen >= 8 && stats.AvgSentenceLen <= 25 {
		strengths = append(strengths, "sentences are well balanced in length")
	}
	if stats.SentenceCount >= 3 {
		strengths = append(strengths, "the text is organized into multiple complete sentences")
	}
	if len(strengths) == 0 {
		strengths = append(strengths, "the essay makes a clear attempt to address the topic")
	}

	out, err := json.Marshal(map[string]any{
		"agent":     agentName,
		"strengths": strengths,
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

// runGuide aponta caminhos de melhoria complementares ao praiser
func runGuide(_ context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	content := gjson.GetBytes(input, "essay_content").String()
	if strings.TrimSpace(content) == "" {
		return domain.ExecutorResult{Success: false}, nil
	}

	stats := analyze(content)
	suggestions := make([]string, 0, 4)
	if stats.WordCount < 50 {
		suggestions = append(suggestions, "expand the essay with supporting details and examples")
	}
	if stats.UniqueWordRatio <= 0.5 {
		suggestions = append(suggestions, "replace repeated words with synonyms to enrich vocabulary")
	}
	if stats.AvgSentenceLen > 25 {
		suggestions = append(suggestions, "break long sentences into shorter, clearer ones")
	}
	if stats.AvgSentenceLen < 8 && stats.SentenceCount > 1 {
		suggestions = append(suggestions, "combine short sentences to improve flow")
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, "review transitions between paragraphs for smoother flow")
	}

	out, err := json.Marshal(map[string]any{
		"agent":       agentName,
		"suggestions": suggestions,
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
