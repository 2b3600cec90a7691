// ABOUTME: HTTP server exposing token redemption and agent status endpoints
// ABOUTME: Maps redemption sentinel errors to 404/409/410 responses
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harper/engage-standalone/internal/core"
	"github.com/harper/engage-standalone/internal/models"
	"github.com/harper/engage-standalone/internal/storage"
)

// Server handles reviewer redemption requests and status queries.
type Server struct {
	approval *core.ApprovalService
	breaker  *core.Breaker
	store    *storage.Storage
	addr     string
}

// New creates a new API server
func New(approval *core.ApprovalService, breaker *core.Breaker, store *storage.Storage, addr string) *Server {
	return &Server{approval: approval, breaker: breaker, store: store, addr: addr}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Approve/reject links from notifications land here.
	mux.HandleFunc("GET /approve", s.redeemFromLink)
	mux.HandleFunc("POST /redeem", s.redeem)

	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("GET /health", s.health)

	return mux
}

// Run starts the HTTP server
func (s *Server) Run() error {
	fmt.Printf("Starting approval server on %s\n", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// redeemFromLink serves the one-click buttons in approval notifications.
func (s *Server) redeemFromLink(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	action := r.URL.Query().Get("action")
	s.applyVerdict(w, r, token, action)
}

// RedeemRequest is the request body for programmatic redemption
type RedeemRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"`
}

func (s *Server) redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.applyVerdict(w, r, req.Token, req.Action)
}

func (s *Server) applyVerdict(w http.ResponseWriter, r *http.Request, token, action string) {
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if action != "approve" && action != "reject" {
		writeError(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}

	d, err := s.approval.Redeem(r.Context(), token, action == "approve", time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenNotFound):
			writeError(w, http.StatusNotFound, "unknown token")
		case errors.Is(err, core.ErrTokenExpired):
			writeError(w, http.StatusGone, "token expired")
		case errors.Is(err, core.ErrTokenAlreadyUsed):
			writeError(w, http.StatusConflict, "token already used")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"decision_id": d.DecisionID,
		"status":      d.Status,
		"reason":      d.Reason,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	day := models.DayKey(now)

	published, err := s.store.Counters.Published(day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	breakerState, err := s.breaker.State()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pending, err := s.store.Decisions.ListByStatus(models.StatusTokenIssued, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"day":              day,
		"published_today":  published,
		"awaiting_review":  len(pending),
		"breaker_open":     breakerState.Open,
		"breaker_failures": breakerState.ConsecutiveFailures,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
