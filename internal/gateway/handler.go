// Package gateway provides the HTTP API for the sleuth orchestrator.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/varun/sleuth/internal/fault"
	"github.com/varun/sleuth/internal/orchestrator"
)

// Handler holds the dependencies for the HTTP handlers. Everything
// routes through the orchestrator facade.
type Handler struct {
	Orchestrator *orchestrator.Orchestrator
}

// CreatePlanRequest is the body for POST /api/orchestrate/plan.
type CreatePlanRequest struct {
	RepoID string `json:"repo_id"`
	Query  string `json:"query"`
}

// ExecuteRequest is the body for POST /api/orchestrate/execute.
type ExecuteRequest struct {
	PlanID     string `json:"plan_id"`
	ApprovedBy string `json:"approved_by"`
	Signature  string `json:"signature"`
}

// IngestRequest is the body for POST /api/ingest.
type IngestRequest struct {
	Source string `json:"source"`
}

// IngestResponse is the response for POST /api/ingest.
type IngestResponse struct {
	RepoID string `json:"repo_id"`
}

// APIError is a structured error response.
type APIError struct {
	Kind    fault.Kind `json:"kind"`
	Message string     `json:"message"`
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ingest handles POST /api/ingest.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Kind: fault.KindValidationFailed, Message: "invalid request body"})
		return
	}
	if req.Source == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Kind: fault.KindValidationFailed, Message: "source is required"})
		return
	}

	repoID, err := h.Orchestrator.Ingest(req.Source)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, IngestResponse{RepoID: repoID})
}

// CreatePlan handles POST /api/orchestrate/plan. The plan is returned
// in PENDING_APPROVAL; nothing executes until a signed execute call.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Kind: fault.KindValidationFailed, Message: "invalid request body"})
		return
	}
	if req.RepoID == "" || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Kind: fault.KindValidationFailed, Message: "repo_id and query are required"})
		return
	}

	plan, err := h.Orchestrator.CreatePlan(r.Context(), req.RepoID, req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// Execute handles POST /api/orchestrate/execute.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Kind: fault.KindValidationFailed, Message: "invalid request body"})
		return
	}
	if req.PlanID == "" || req.Signature == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Kind: fault.KindValidationFailed, Message: "plan_id and signature are required"})
		return
	}

	plan, err := h.Orchestrator.Approve(r.Context(), req.PlanID, req.ApprovedBy, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// GetPlan handles GET /api/orchestrate/plan/{planID}.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Orchestrator.GetPlan(r.PathValue("planID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case fault.KindNotFound:
		status = http.StatusNotFound
	case fault.KindConflict:
		status = http.StatusConflict
	case fault.KindUnauthorized:
		status = http.StatusForbidden
	case fault.KindValidationFailed, fault.KindInsufficientEvidence:
		status = http.StatusBadRequest
	case fault.KindToolTimeout:
		status = http.StatusGatewayTimeout
	case fault.KindToolFailure:
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if kind == fault.KindInternal {
		// Internal detail stays in the server log.
		log.Printf("gateway: internal error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, APIError{Kind: kind, Message: msg})
}
