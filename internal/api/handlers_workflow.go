package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diogoX451/mentor/internal/api/dto"
	"github.com/diogoX451/mentor/internal/core/domain"
	"github.com/diogoX451/mentor/pkg/types"
)

// Handler: POST /api/v1/workflows
func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if req.RequestType == "" {
		respondError(w, http.StatusBadRequest, "MISSING_REQUEST_TYPE", "request_type is required")
		return
	}
	if len(req.Input) == 0 {
		respondError(w, http.StatusBadRequest, "MISSING_INPUT", "input is required")
		return
	}

	snap, err := s.core.StartWorkflow(r.Context(), types.SessionID(req.SessionID), req.RequestType, types.Data(req.Input))
	if err != nil {
		if errors.Is(err, domain.ErrSessionExists) {
			respondError(w, http.StatusConflict, "SESSION_EXISTS", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "WORKFLOW_START_FAILED", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, dto.CreateWorkflowResponse{
		SessionID:   string(snap.SessionID),
		RequestType: snap.RequestType,
		CurrentStep: string(snap.CurrentStep),
		CreatedAt:   snap.StartTime,
	})
}

// Handler: POST /api/v1/workflows/{id}/execute
func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "id"))

	snap, err := s.core.ExecuteWorkflow(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
			return
		}
		var se *domain.StepError
		if errors.As(err, &se) {
			// falha de etapa não é erro de API: o estado parcial fica
			// disponível e a sessão é retomável
			respondJSON(w, http.StatusOK, dto.ExecuteWorkflowResponse{
				SessionID:  string(sessionID),
				Status:     "failed",
				FailedStep: string(se.Step),
				Error:      se.Error(),
			})
			return
		}
		respondError(w, http.StatusInternalServerError, "EXECUTION_FAILED", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, dto.ExecuteWorkflowResponse{
		SessionID:   string(snap.SessionID),
		Status:      "completed",
		FinalResult: json.RawMessage(snap.FinalResult),
	})
}

// Handler: GET /api/v1/workflows/{id}/status
func (s *Server) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "id"))

	status, err := s.core.WorkflowStatus(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "STATUS_FAILED", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, status)
}
