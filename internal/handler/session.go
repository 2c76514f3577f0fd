package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/middleware"
	"github.com/sailchat/internal/storage"
)

// SessionHandler принимает сессии от платформы маркетплейса. Аутентификация
// живёт снаружи: платформа после логина кладёт сюда токен, а мы только
// проверяем его на каждом запросе. Маршруты закрыты middleware.InternalOnly.
type SessionHandler struct {
	store storage.SessionPushStore
}

func NewSessionHandler(store storage.SessionPushStore) *SessionHandler {
	return &SessionHandler{store: store}
}

type PutSessionRequest struct {
	Token    string `json:"token"`
	UserName string `json:"user_name"`
	Role     string `json:"role"`
}

// Put регистрирует токен сессии для пользователя.
func (h *SessionHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req PutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Token == "" || req.UserName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "token, user_name and role required")
		return
	}
	s := storage.Session{UserName: req.UserName, Role: req.Role}
	if err := h.store.SetSession(r.Context(), req.Token, s); err != nil {
		logger.Errorf("session put: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store session")
		return
	}
	logger.Infof("session registered for %s (token %s)", req.UserName, middleware.MaskToken(req.Token))
	w.WriteHeader(http.StatusNoContent)
}

type DeleteSessionRequest struct {
	Token string `json:"token"`
}

// Delete отзывает токен (логаут на платформе).
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}
	if err := h.store.DeleteSession(r.Context(), req.Token); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
