package dto

import (
	"encoding/json"
	"time"

	"github.com/diogoX451/mentor/pkg/types"
)

type CreateWorkflowResponse struct {
	SessionID   string    `json:"session_id"`
	RequestType string    `json:"request_type"`
	CurrentStep string    `json:"current_step"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExecuteWorkflowResponse struct {
	SessionID   string          `json:"session_id"`
	Status      string          `json:"status"` // completed, failed
	FailedStep  string          `json:"failed_step,omitempty"`
	Error       string          `json:"error,omitempty"`
	FinalResult json.RawMessage `json:"final_result,omitempty"`
}

type SubmitWorkResponse struct {
	TaskID      string    `json:"task_id"`
	AgentName   string    `json:"agent_name"`
	Priority    string    `json:"priority"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type HealthResponse struct {
	Status    types.SystemHealth `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
	Version   string             `json:"version"`
	Uptime    string             `json:"uptime"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
