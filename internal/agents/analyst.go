package agents

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/pkg/types"
)

type textStats struct {
	WordCount       int     `json:"word_count"`
	SentenceCount   int     `json:"sentence_count"`
	AvgSentenceLen  float64 `json:"avg_sentence_length"`
	UniqueWordRatio float64 `json:"unique_word_ratio"`
	Score           float64 `json:"score"`
}

// runAnalyst produz métricas determinísticas do texto do ensaio.
// Sem conteúdo a análise falha; o pipeline trata isso como erro de
// etapa, não como resultado vazio.
func runAnalyst(_ context.Context, agentName string, input types.Data) (domain.ExecutorResult, error) {
	content := gjson.GetBytes(input, "essay_content").String()
	if strings.TrimSpace(content) == "" {
		return domain.ExecutorResult{Success: false}, nil
	}

	stats := analyze(content)
	out, err := json.Marshal(map[string]any{
		"agent":    agentName,
		"analysis": stats,
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

func analyze(content string) textStats {
	words := strings.FieldsFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	sentences := 0
	for _, r := range content {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 && len(words) > 0 {
		sentences = 1
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}

	stats := textStats{
		WordCount:     len(words),
		SentenceCount: sentences,
	}
	if sentences > 0 {
		stats.AvgSentenceLen = float64(len(words)) / float64(sentences)
	}
	if len(words) > 0 {
		stats.UniqueWordRatio = float64(len(unique)) / float64(len(words))
	}

	// pontuação 0..10: volume, variedade lexical e frases equilibradas
	score := 4.0
	if stats.WordCount >= 50 {
		score += 2
	} else if stats.WordCount >= 20 {
		score += 1
	}
	if stats.UniqueWordRatio > 0.6 {
		score += 2
	} else if stats.UniqueWordRatio > 0.4 {
		score += 1
	}
	if stats.AvgSentenceLen >= 8 && stats.AvgSentenceLen <= 25 {
		score += 2
	}
	if score > 10 {
		score = 10
	}
	stats.Score = score
	return stats
}
