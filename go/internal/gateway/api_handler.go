package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/pukagames/moonrace/go/internal/identity"
	"github.com/pukagames/moonrace/go/internal/invite"
	"github.com/pukagames/moonrace/go/internal/session"
	"github.com/rs/zerolog/log"
)

// APIHandler exposes the session lifecycle and profile bootstrap over plain
// JSON endpoints. Score traffic does not flow through here; clients tap
// against the store directly and read results off the change feed.
type APIHandler struct {
	manager  *session.Manager
	identity *identity.App
}

func NewAPIHandler(manager *session.Manager, identityApp *identity.App) *APIHandler {
	return &APIHandler{
		manager:  manager,
		identity: identityApp,
	}
}

type createSessionRequest struct {
	HostID int64 `json:"host_id"`
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	InviteCode string `json:"invite_code"`
}

type joinSessionRequest struct {
	SessionID  string `json:"session_id,omitempty"`
	InviteCode string `json:"invite_code,omitempty"`
	PlayerID   int64  `json:"player_id"`
}

type joinSessionResponse struct {
	Joined    bool   `json:"joined"`
	SessionID string `json:"session_id"`
}

type startSessionRequest struct {
	SessionID string `json:"session_id"`
	HostID    int64  `json:"host_id"`
}

type startSessionResponse struct {
	Started bool `json:"started"`
}

type rematchRequest struct {
	SessionID string `json:"session_id"`
	HostID    int64  `json:"host_id"`
}

func (h *APIHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostID == 0 {
		http.Error(w, "host_id is required", http.StatusBadRequest)
		return
	}

	id, err := h.manager.CreateSession(r.Context(), req.HostID)
	if err != nil {
		log.Error().Err(err).Int64("host_id", req.HostID).Msg("failed to create session")
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:  id.String(),
		InviteCode: invite.Encode(id),
	})
}

func (h *APIHandler) HandleJoinSession(w http.ResponseWriter, r *http.Request) {
	var req joinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == 0 {
		http.Error(w, "player_id is required", http.StatusBadRequest)
		return
	}

	id, err := resolveSessionID(req.SessionID, req.InviteCode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	joined, err := h.manager.JoinSession(r.Context(), id, req.PlayerID)
	if err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("failed to join session")
		http.Error(w, "failed to join session", http.StatusInternalServerError)
		return
	}

	// A taken slot is a normal outcome, not an error status.
	writeJSON(w, http.StatusOK, joinSessionResponse{
		Joined:    joined,
		SessionID: id.String(),
	})
}

func (h *APIHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostID == 0 {
		http.Error(w, "session_id and host_id are required", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		http.Error(w, "invalid session_id format", http.StatusBadRequest)
		return
	}

	started, err := h.manager.StartSession(r.Context(), id, req.HostID)
	if err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("failed to start session")
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, startSessionResponse{Started: started})
}

func (h *APIHandler) HandleCreateRematch(w http.ResponseWriter, r *http.Request) {
	var req rematchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostID == 0 {
		http.Error(w, "session_id and host_id are required", http.StatusBadRequest)
		return
	}
	oldID, err := uuid.Parse(req.SessionID)
	if err != nil {
		http.Error(w, "invalid session_id format", http.StatusBadRequest)
		return
	}

	newID, err := h.manager.CreateRematch(r.Context(), oldID, req.HostID)
	if err != nil {
		log.Error().Err(err).Str("session_id", oldID.String()).Msg("failed to create rematch")
		http.Error(w, "failed to create rematch", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:  newID.String(),
		InviteCode: invite.Encode(newID),
	})
}

// HandleProfile resolves the caller's profile, creating it with the welcome
// bonus on first sight.
func (h *APIHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	var user identity.ExternalUser
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "invalid profile payload", http.StatusBadRequest)
		return
	}

	profile, err := h.identity.GetOrCreateProfile(r.Context(), user)
	if err != nil {
		log.Error().Err(err).Int64("player_id", user.ID).Msg("failed to resolve profile")
		http.Error(w, "failed to resolve profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func resolveSessionID(rawID, code string) (uuid.UUID, error) {
	if code != "" {
		return invite.Decode(code)
	}
	return uuid.Parse(rawID)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

// RegisterRoutes registers the JSON API routes with an HTTP mux
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/profile", h.HandleProfile)
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("POST /api/sessions/join", h.HandleJoinSession)
	mux.HandleFunc("POST /api/sessions/start", h.HandleStartSession)
	mux.HandleFunc("POST /api/sessions/rematch", h.HandleCreateRematch)
}
