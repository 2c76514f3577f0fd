package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sailchat/internal/chat"
	"github.com/sailchat/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeChatError превращает ошибки chat.Service в HTTP-ответы. Недоступные
// чужие чаты отдаются как 404, чтобы не раскрывать их существование.
func writeChatError(w http.ResponseWriter, err error) {
	var statusErr *chat.StatusError
	var transitionErr *chat.TransitionError
	switch {
	case errors.Is(err, chat.ErrChatUnavailable) || chat.IsNotFound(err):
		writeError(w, http.StatusNotFound, "chat not found")
	case errors.As(err, &statusErr):
		writeError(w, http.StatusConflict, statusErr.Error())
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, chat.ErrAgreementResolved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chat.ErrEnquiryOpen):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Errorf("chat: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
