package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/mentor/internal/api/dto"
	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/pkg/types"
)

// Handler: POST /api/v1/work
func (s *Server) handleSubmitWork(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitWorkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.AgentName == "" {
		respondError(w, http.StatusBadRequest, "MISSING_AGENT_NAME", "agent_name is required")
		return
	}

	unit := types.WorkUnit{
		ID:          types.TaskID(uuid.New().String()),
		AgentName:   req.AgentName,
		Priority:    parsePriority(req.Priority, types.AgentPriority(req.AgentName)),
		Payload:     types.Data(req.Payload),
		SubmittedAt: time.Now(),
	}

	handle, err := s.core.SubmitWork(unit)
	if err != nil {
		if errors.Is(err, domain.ErrSchedulerStopped) {
			respondError(w, http.StatusServiceUnavailable, "SCHEDULER_STOPPED", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "SUBMIT_FAILED", err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, dto.SubmitWorkResponse{
		TaskID:      string(handle.ID),
		AgentName:   unit.AgentName,
		Priority:    unit.Priority.String(),
		SubmittedAt: unit.SubmittedAt,
	})
}

func parsePriority(raw string, fallback types.TaskPriority) types.TaskPriority {
	switch raw {
	case "low":
		return types.PriorityLow
	case "normal":
		return types.PriorityNormal
	case "high":
		return types.PriorityHigh
	case "urgent":
		return types.PriorityUrgent
	default:
		return fallback
	}
}

// Handler: GET /api/v1/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.core.Dashboard(r.Context()))
}

// Handler: GET /api/v1/scheduler/status
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.core.SchedulerStatus())
}

// Handler: GET /api/v1/cache/stats
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.core.CacheStats(r.Context()))
}
