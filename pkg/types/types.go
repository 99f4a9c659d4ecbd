package types

import (
	"encoding/json"
	"time"
)

type SessionID string
type TaskID string
type Data = json.RawMessage

// TaskPriority ordena unidades de trabalho no scheduler
type TaskPriority int

const (
	PriorityLow TaskPriority = iota + 1
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p TaskPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// WorkUnit é uma unidade agendável submetida ao scheduler
type WorkUnit struct {
	ID          TaskID       `json:"id"`
	AgentName   string       `json:"agent_name"`
	Priority    TaskPriority `json:"priority"`
	Payload     Data         `json:"payload,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

// TaskMetrics é gravado exatamente uma vez por WorkUnit concluída
type TaskMetrics struct {
	TaskID         TaskID    `json:"task_id"`
	AgentName      string    `json:"agent_name"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	TokensConsumed int       `json:"tokens_consumed"`
	Success        bool      `json:"success"`
}

func (m TaskMetrics) Duration() time.Duration {
	return m.End.Sub(m.Start)
}

// QueueStatus expõe o estado corrente do scheduler
type QueueStatus struct {
	Running        bool `json:"running"`
	QueueSize      int  `json:"queue_size"`
	ActiveTasks    int  `json:"active_tasks"`
	Workers        int  `json:"workers"`
	CompletedTasks int  `json:"completed_tasks"`
}

// CacheStats resume o cache de resultados
type CacheStats struct {
	HitCount      int64   `json:"hit_count"`
	MissCount     int64   `json:"miss_count"`
	HitRate       float64 `json:"hit_rate"`
	MemoryEntries int     `json:"memory_entries"`
	DiskEntries   int     `json:"disk_entries"`
}
