package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sailchat/internal/chat"
	"github.com/sailchat/internal/middleware"
	"github.com/sailchat/internal/model"
)

type ChatHandler struct {
	svc *chat.Service
}

func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// ListChats возвращает список чатов текущего пользователя, отсортированный по
// последнему сообщению. Покупатели не видят скрытые чаты, владельцы видят
// чаты по своим объектам.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	summaries, err := h.svc.ListChats(r.Context(), user)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// UnreadCount возвращает число чатов с непрочитанными сообщениями (бейдж).
func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	n, err := h.svc.UnreadChatCount(r.Context(), user)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_chats": n})
}

// History возвращает сообщения чата и помечает его прочитанным для участника.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	chatID := chi.URLParam(r, "chatID")
	messages, err := h.svc.History(r.Context(), user, chatID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type SendMessageRequest struct {
	MessageType string `json:"message_type"`
	Body        string `json:"body"`
}

// SendMessage отправляет сообщение в чат. Первый ответ агента в скрытом чате
// активирует его и уведомляет покупателя письмом.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}
	msgType := model.ParseMessageType(req.MessageType)

	user := middleware.GetUser(r.Context())
	chatID := chi.URLParam(r, "chatID")
	msg, err := h.svc.Send(r.Context(), user, chatID, msgType, req.Body)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type InitiateChatRequest struct {
	Partner string `json:"partner"`
}

// InitiateChat создаёт (или возвращает существующий) прямой чат с пользователем.
func (h *ChatHandler) InitiateChat(w http.ResponseWriter, r *http.Request) {
	var req InitiateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	user := middleware.GetUser(r.Context())
	if req.Partner == "" || req.Partner == user {
		writeError(w, http.StatusBadRequest, "partner is required")
		return
	}
	c, err := h.svc.InitiateChat(r.Context(), user, req.Partner)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type ExpressInterestRequest struct {
	PropertyID string `json:"property_id"`
}

// ExpressInterest регистрирует интерес покупателя к объекту: создаётся запись
// продажи и скрытые чаты с агентами объекта.
func (h *ChatHandler) ExpressInterest(w http.ResponseWriter, r *http.Request) {
	var req ExpressInterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "property_id is required")
		return
	}
	user := middleware.GetUser(r.Context())
	sail, err := h.svc.ExpressInterest(r.Context(), user, req.PropertyID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sail)
}
