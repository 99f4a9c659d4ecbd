package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/diogoX451/mentor/pkg/types"
)

// requiredFields por request type; validação falha listando todos os
// campos em falta de uma vez
var requiredFields = map[string][]string{
	types.RequestEssayEvaluation:      {"essay_content", "grade_level"},
	types.RequestTeachingConsultation: {"requirements"},
}

func (e *Engine) validateInput(_ context.Context, snap *types.ContextSnapshot) (types.Data, error) {
	if !gjson.ValidBytes(snap.InputData) {
		return nil, fmt.Errorf("input is not valid JSON")
	}

	missing := []string{}
	for _, field := range requiredFields[snap.RequestType] {
		v := gjson.GetBytes(snap.InputData, field)
		if !v.Exists() || strings.TrimSpace(v.String()) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	return json.Marshal(map[string]any{
		"validated":    true,
		"request_type": snap.RequestType,
	})
}

// generateTemplate invoca o designer (avaliação de ensaio) ou o
// master agent (consultoria)
func (e *Engine) generateTemplate(ctx context.Context, snap *types.ContextSnapshot) (types.Data, error) {
	agent := types.AgentDesigner
	if snap.RequestType == types.RequestTeachingConsultation {
		agent = types.AgentMaster
	}

	res, err := e.runner.Execute(ctx, agent, snap.InputData)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("agent %s returned failure", agent)
	}
	return res.Output, nil
}

type branchResult struct {
	key    string
	output types.Data
	err    error
}

// parallelAnalysis lança analista, praiser e guide em paralelo e
// junta as três saídas. Um ramo falhado não derruba a etapa: entra
// como null no documento combinado, com o erro registado em
// analysis_metadata; a etapa só falha quando nenhum ramo sucede.
// Consultoria não tem análise de texto, a etapa é SKIPPED.
func (e *Engine) parallelAnalysis(ctx context.Context, snap *types.ContextSnapshot) (types.Data, error) {
	if snap.RequestType == types.RequestTeachingConsultation {
		return nil, nil
	}

	branches := []struct {
		key   string
		agent string
	}{
		{"analysis", types.AgentAnalyst},
		{"praise", types.AgentPraiser},
		{"guidance", types.AgentGuide},
	}

	p := pool.NewWithResults[branchResult]().WithContext(ctx)
	for _, b := range branches {
		b := b
		p.Go(func(ctx context.Context) (branchResult, error) {
			res, err := e.runner.Execute(ctx, b.agent, snap.InputData)
			if err != nil {
				return branchResult{key: b.key, err: err}, nil
			}
			if !res.Success {
				return branchResult{key: b.key, err: fmt.Errorf("agent %s returned failure", b.agent)}, nil
			}
			return branchResult{key: b.key, output: res.Output}, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	combined := []byte(`{}`)
	succeeded := 0
	for _, r := range results {
		if r.err != nil {
			combined, err = sjson.SetRawBytes(combined, r.key, []byte("null"))
			if err != nil {
				return nil, err
			}
			combined, err = sjson.SetBytes(combined, "analysis_metadata.failures."+r.key, r.err.Error())
			if err != nil {
				return nil, err
			}
			continue
		}
		combined, err = sjson.SetRawBytes(combined, r.key, r.output)
		if err != nil {
			return nil, err
		}
		succeeded++
	}
	combined, err = sjson.SetBytes(combined, "analysis_metadata.success_count", succeeded)
	if err != nil {
		return nil, err
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("all analysis branches failed")
	}
	return combined, nil
}

// generateReport alimenta o reporter com as três saídas da análise
func (e *Engine) generateReport(ctx context.Context, snap *types.ContextSnapshot) (types.Data, error) {
	if snap.RequestType == types.RequestTeachingConsultation {
		return nil, nil
	}

	e.mu.Lock()
	analysis, ok := snap.StepResults[types.StepParallelAnalysis]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("parallel analysis results missing")
	}

	res, err := e.runner.Execute(ctx, types.AgentReporter, analysis)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("agent %s returned failure", types.AgentReporter)
	}
	return res.Output, nil
}

// formatOutput monta o documento final; Execute grava-o em FinalResult
func (e *Engine) formatOutput(_ context.Context, snap *types.ContextSnapshot) (types.Data, error) {
	doc := []byte(`{}`)
	var err error

	doc, err = sjson.SetBytes(doc, "session_id", string(snap.SessionID))
	if err != nil {
		return nil, err
	}
	doc, err = sjson.SetBytes(doc, "request_type", snap.RequestType)
	if err != nil {
		return nil, err
	}

	switch snap.RequestType {
	case types.RequestEssayEvaluation:
		e.mu.Lock()
		report, ok := snap.StepResults[types.StepReportGeneration]
		e.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("report missing for essay evaluation")
		}
		doc, err = sjson.SetRawBytes(doc, "evaluation", report)
	case types.RequestTeachingConsultation:
		e.mu.Lock()
		plan, ok := snap.StepResults[types.StepTemplateGeneration]
		e.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("consultation plan missing")
		}
		doc, err = sjson.SetRawBytes(doc, "consultation", plan)
	}
	if err != nil {
		return nil, err
	}

	doc, err = sjson.SetBytes(doc, "completed_at", e.now().UTC())
	if err != nil {
		return nil, err
	}

	return doc, nil
}
