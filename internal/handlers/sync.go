package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vitality-hq/syncserver/internal/services"
	"github.com/vitality-hq/syncserver/types"
)

// SyncHandler exposes the push/pull endpoints for offline-first
// clients. The user scope always comes from the validated token, never
// from the request body.
type SyncHandler struct {
	syncService *services.SyncService
	logger      *slog.Logger
}

// NewSyncHandler constructs a SyncHandler with the provided dependencies.
func NewSyncHandler(syncService *services.SyncService, logger *slog.Logger) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{syncService: syncService, logger: logger}
}

// SyncRouter registers sync routes on the given router, all behind the
// auth middleware.
func SyncRouter(r chi.Router, syncService *services.SyncService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewSyncHandler(syncService, logger)

	r.Use(authMiddleware)
	r.Post("/", handler.Push)
	r.Get("/", handler.Pull)
}

type SyncRequest struct {
	// BatchID is optional and must be a UUID; the server assigns one
	// when it is absent or malformed, so a client can retry a failed
	// push under the same identifier.
	BatchID string                 `json:"batchId"`
	Habits  []types.HabitUpsert    `json:"habits"`
	Logs    []types.HabitLogUpsert `json:"logs"`
}

type SyncPushResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	BatchID   string    `json:"batchId"`
}

type SyncPushError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type SyncPullResponse struct {
	Habits []types.Habit    `json:"habits"`
	Logs   []types.HabitLog `json:"logs"`
}

// Push accepts a batch of habit and log records and upserts them under
// the authenticated user.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token, authorization denied")
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SyncPushError{Error: "invalid request"})
		return
	}

	result, err := h.syncService.Push(r.Context(), userID, req.BatchID, req.Habits, req.Logs)
	if err != nil {
		if errors.Is(err, services.ErrMissingLocalID) {
			writeJSON(w, http.StatusBadRequest, SyncPushError{Error: "element has no local id"})
			return
		}
		h.logger.ErrorContext(r.Context(), "push batch", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, SyncPushError{Error: "sync failed"})
		return
	}

	h.logger.InfoContext(r.Context(), "processed sync batch",
		"user_id", userID,
		"batch_id", result.BatchID,
		"habits", len(req.Habits),
		"logs", len(req.Logs),
	)

	writeJSON(w, http.StatusOK, SyncPushResponse{
		Success:   true,
		Timestamp: result.Timestamp,
		BatchID:   result.BatchID,
	})
}

// Pull returns every non-deleted record for the authenticated user.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no token, authorization denied")
		return
	}

	habits, logs, err := h.syncService.Pull(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "pull records", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}

	writeJSON(w, http.StatusOK, SyncPullResponse{Habits: habits, Logs: logs})
}
