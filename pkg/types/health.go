package types

import "time"

type AlertLevel int

const (
	AlertInfo AlertLevel = iota + 1
	AlertWarning
	AlertError
	AlertCritical
)

func (l AlertLevel) String() string {
	switch l {
	case AlertInfo:
		return "info"
	case AlertWarning:
		return "warning"
	case AlertError:
		return "error"
	case AlertCritical:
		return "critical"
	default:
		return "unknown"
	}
}

type SystemHealth string

const (
	HealthHealthy   SystemHealth = "healthy"
	HealthDegraded  SystemHealth = "degraded"
	HealthUnhealthy SystemHealth = "unhealthy"
	HealthCritical  SystemHealth = "critical"
)

// Alert é deduplicado por (component, title) dentro da janela de cool-down
// enquanto não estiver resolvido.
type Alert struct {
	ID         int        `json:"id"`
	Level      AlertLevel `json:"level"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Component  string     `json:"component"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// HealthSample é um ponto de métricas; guardado num ring buffer
type HealthSample struct {
	Timestamp       time.Time               `json:"timestamp"`
	CPUPercent      float64                 `json:"cpu_percent"`
	MemoryPercent   float64                 `json:"memory_percent"`
	ActiveTasks     int                     `json:"active_tasks"`
	QueuedTasks     int                     `json:"queued_tasks"`
	ErrorRate       float64                 `json:"error_rate"`
	SuccessRate     float64                 `json:"success_rate"`
	AvgResponseTime time.Duration           `json:"avg_response_time"`
	ComponentStatus map[string]SystemHealth `json:"component_status"`
}

// RequestStats acumula contadores desde o arranque
type RequestStats struct {
	TotalRequests      int64          `json:"total_requests"`
	SuccessfulRequests int64          `json:"successful_requests"`
	FailedRequests     int64          `json:"failed_requests"`
	AgentCalls         map[string]int `json:"agent_calls"`
	ErrorCounts        map[string]int `json:"error_counts"`
}

// Dashboard é o payload de monitorização exposto pela API
type Dashboard struct {
	SystemHealth    SystemHealth            `json:"system_health"`
	CurrentSample   *HealthSample           `json:"current_metrics,omitempty"`
	ActiveAlerts    []Alert                 `json:"active_alerts"`
	ComponentHealth map[string]SystemHealth `json:"component_health"`
	Stats           RequestStats            `json:"statistics"`
	Scheduler       QueueStatus             `json:"scheduler"`
	Cache           CacheStats              `json:"cache"`
	TokensRemaining int                     `json:"tokens_remaining"`
	Degradations    []DegradationInfo       `json:"active_degradations"`
	Uptime          time.Duration           `json:"uptime"`
}

// DegradationInfo descreve uma mitigação ativa
type DegradationInfo struct {
	Condition   string    `json:"condition"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Since       time.Time `json:"since"`
}
