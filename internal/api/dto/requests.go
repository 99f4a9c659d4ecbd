package dto

import "encoding/json"

type CreateWorkflowRequest struct {
	SessionID   string          `json:"session_id,omitempty"`
	RequestType string          `json:"request_type"`
	Input       json.RawMessage `json:"input"`
}

type SubmitWorkRequest struct {
	AgentName string          `json:"agent_name"`
	Priority  string          `json:"priority,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
