package types

import "time"

// WorkflowStep é uma etapa do pipeline fixo de cinco passos
type WorkflowStep string

const (
	StepInputValidation    WorkflowStep = "input_validation"
	StepTemplateGeneration WorkflowStep = "template_generation"
	StepParallelAnalysis   WorkflowStep = "parallel_analysis"
	StepReportGeneration   WorkflowStep = "report_generation"
	StepOutputFormatting   WorkflowStep = "output_formatting"
)

// StandardWorkflow retorna as etapas na ordem obrigatória de execução.
// Uma etapa só inicia depois que a anterior estiver COMPLETED.
func StandardWorkflow() []WorkflowStep {
	return []WorkflowStep{
		StepInputValidation,
		StepTemplateGeneration,
		StepParallelAnalysis,
		StepReportGeneration,
		StepOutputFormatting,
	}
}

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Request types aceitos pelo workflow
const (
	RequestEssayEvaluation      = "essay_evaluation"
	RequestTeachingConsultation = "teaching_consultation"
)

// ContextSnapshot é o retrato serializável de um WorkflowContext.
// SchemaVersion protege contra arquivos de formatos antigos.
type ContextSnapshot struct {
	SchemaVersion int                         `json:"schema_version"`
	SessionID     SessionID                   `json:"session_id"`
	RequestType   string                      `json:"request_type"`
	InputData     Data                        `json:"input_data,omitempty"`
	CurrentStep   WorkflowStep                `json:"current_step"`
	StepResults   map[WorkflowStep]Data       `json:"step_results"`
	StepStatus    map[WorkflowStep]StepStatus `json:"step_status"`
	StartTime     time.Time                   `json:"start_time"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	FinalResult   Data                        `json:"final_result,omitempty"`
}

// WorkflowStatus é a visão externa de progresso de uma sessão
type WorkflowStatus struct {
	SessionID   SessionID                   `json:"session_id"`
	RequestType string                      `json:"request_type"`
	CurrentStep WorkflowStep                `json:"current_step"`
	StepStatus  map[WorkflowStep]StepStatus `json:"step_status"`
	Progress    float64                     `json:"progress_percent"`
	Elapsed     time.Duration               `json:"elapsed"`
	Done        bool                        `json:"done"`
}
