// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the pipeline over a small JSON API so items
// can be started and reviewed without the CLI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/content-pipeline/internal/pipeline"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

// stageTimeout bounds one synchronous pipeline run triggered by a
// request. Research plus drafting plus revisions can take minutes.
const stageTimeout = 10 * time.Minute

// Server routes JSON API requests to the orchestrator.
type Server struct {
	orch *pipeline.Orchestrator
}

// New builds a Server.
func New(orch *pipeline.Orchestrator) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator required")
	}
	return &Server{orch: orch}, nil
}

// Routes returns the API handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/items", s.handleItems)
	mux.HandleFunc("/api/items/", s.handleItemByID)
	return mux
}

type startRequest struct {
	Topic             string `json:"topic"`
	MaxRevisionCycles int    `json:"max_revision_cycles,omitempty"`
	SkipResearch      bool   `json:"skip_research,omitempty"`
	ResearchModel     string `json:"research_model,omitempty"`
	BlogStatus        string `json:"blog_status,omitempty"`
	SkipSocial        bool   `json:"skip_social,omitempty"`
}

type reviewRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

type errorResponse struct {
	Error    string         `json:"error"`
	Existing *types.ItemRef `json:"existing,omitempty"`
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleStart(w, r)
	case http.MethodGet:
		s.handlePending(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, errors.New("topic is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), stageTimeout)
	defer cancel()

	item, err := s.orch.Start(ctx, req.Topic, pipeline.StartOptions{
		MaxRevisionCycles: req.MaxRevisionCycles,
		SkipResearch:      req.SkipResearch,
		ResearchModel:     types.ResearchModel(req.ResearchModel),
		BlogStatus:        types.BlogStatus(req.BlogStatus),
		SkipSocial:        req.SkipSocial,
	})
	if err != nil {
		var dup *pipeline.DuplicateError
		if errors.As(err, &dup) {
			writeJSON(w, http.StatusConflict, errorResponse{
				Error:    err.Error(),
				Existing: &dup.Existing,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	items, err := s.orch.ListPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []*types.ContentItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleItemByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/items/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.handleShow(w, r, id)
	case action == "approve" && r.Method == http.MethodPost:
		s.handleApprove(w, r, id)
	case action == "reject" && r.Method == http.MethodPost:
		s.handleReject(w, r, id)
	case action == "abort" && r.Method == http.MethodPost:
		s.handleAbort(w, r, id)
	case action == "audit" && r.Method == http.MethodGet:
		s.handleAudit(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request, id string) {
	item, err := s.orch.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, id string) {
	req, ok := decodeReview(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), stageTimeout)
	defer cancel()

	item, err := s.orch.Approve(ctx, id, req.Actor)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request, id string) {
	req, ok := decodeReview(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, errors.New("a reason is required to reject"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), stageTimeout)
	defer cancel()

	item, err := s.orch.Reject(ctx, id, req.Actor, req.Reason)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request, id string) {
	req, ok := decodeReview(w, r)
	if !ok {
		return
	}
	if err := s.orch.Abort(r.Context(), id, req.Actor); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	item, err := s.orch.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request, id string) {
	trail, err := s.orch.AuditTrail(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

func decodeReview(w http.ResponseWriter, r *http.Request) (reviewRequest, bool) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, false
	}
	if strings.TrimSpace(req.Actor) == "" {
		req.Actor = "api"
	}
	return req, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
