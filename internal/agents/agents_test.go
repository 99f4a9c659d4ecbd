package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/diogoX451/mentor/pkg/types"
)

const sampleEssay = `The city park is my favorite place. I go there every weekend with my family. ` +
	`We play games, read books and watch the birds. The park teaches me that nature matters.`

func TestBuiltinAgents(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	ctx := context.Background()

	essayInput := types.Data(`{"essay_content":"` + sampleEssay + `","grade_level":"grade_5"}`)

	t.Run("unknown agent errors", func(t *testing.T) {
		_, err := r.Execute(ctx, "nobody", essayInput)
		assert.Error(t, err)
	})

	t.Run("analyst produces stats and score", func(t *testing.T) {
		res, err := r.Execute(ctx, types.AgentAnalyst, essayInput)
		require.NoError(t, err)
		require.True(t, res.Success)

		doc := gjson.ParseBytes(res.Output)
		assert.Greater(t, doc.Get("analysis.word_count").Int(), int64(20))
		assert.Greater(t, doc.Get("analysis.score").Float(), 0.0)
		assert.LessOrEqual(t, doc.Get("analysis.score").Float(), 10.0)
		assert.Greater(t, res.TokensConsumed, 0)
	})

	t.Run("analyst fails on empty essay", func(t *testing.T) {
		res, err := r.Execute(ctx, types.AgentAnalyst, types.Data(`{"essay_content":"  "}`))
		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("praiser always finds at least one strength", func(t *testing.T) {
		res, err := r.Execute(ctx, types.AgentPraiser, types.Data(`{"essay_content":"Short."}`))
		require.NoError(t, err)
		require.True(t, res.Success)
		strengths := gjson.GetBytes(res.Output, "strengths").Array()
		assert.NotEmpty(t, strengths)
	})

	t.Run("guide suggests improvements for short text", func(t *testing.T) {
		res, err := r.Execute(ctx, types.AgentGuide, types.Data(`{"essay_content":"Short text here."}`))
		require.NoError(t, err)
		require.True(t, res.Success)
		suggestions := gjson.GetBytes(res.Output, "suggestions").Array()
		require.NotEmpty(t, suggestions)
		assert.Contains(t, suggestions[0].String(), "expand")
	})

	t.Run("designer adapts criteria to early grades", func(t *testing.T) {
		early, err := r.Execute(ctx, types.AgentDesigner, types.Data(`{"grade_level":"grade_2"}`))
		require.NoError(t, err)
		late, err := r.Execute(ctx, types.AgentDesigner, types.Data(`{"grade_level":"grade_9"}`))
		require.NoError(t, err)

		earlyCriteria := gjson.GetBytes(early.Output, "template.criteria").Array()
		lateCriteria := gjson.GetBytes(late.Output, "template.criteria").Array()
		assert.Less(t, len(earlyCriteria), len(lateCriteria))
	})

	t.Run("master requires requirements", func(t *testing.T) {
		res, err := r.Execute(ctx, types.AgentMaster, types.Data(`{}`))
		require.NoError(t, err)
		assert.False(t, res.Success)

		res, err = r.Execute(ctx, types.AgentMaster, types.Data(`{"requirements":"help my students with persuasive writing"}`))
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.NotEmpty(t, gjson.GetBytes(res.Output, "plan").Array())
	})

	t.Run("reporter consolidates branch outputs", func(t *testing.T) {
		input := types.Data(`{
			"analysis": {"agent":"text_analyst","analysis":{"score":8.2}},
			"praise":   {"agent":"praiser","strengths":["varied vocabulary"]},
			"guidance": {"agent":"guide","suggestions":["add examples"]}
		}`)
		res, err := r.Execute(ctx, types.AgentReporter, input)
		require.NoError(t, err)
		require.True(t, res.Success)

		doc := gjson.ParseBytes(res.Output)
		assert.Equal(t, 8.2, doc.Get("overall_score").Float())
		assert.Contains(t, doc.Get("summary").String(), "strong")
		assert.Equal(t, "varied vocabulary", doc.Get("strengths.0").String())
		assert.Equal(t, "add examples", doc.Get("suggestions.0").String())
	})
}
