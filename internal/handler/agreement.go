package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sailchat/internal/chat"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/middleware"
	"github.com/sailchat/internal/notify"
)

// AgreementHandler покрывает жизненный цикл соглашения: агент отправляет,
// покупатель принимает или отклоняет. Решение каскадно меняет статусы
// конкурирующих чатов по той же продаже.
type AgreementHandler struct {
	svc      *chat.Service
	notifier *notify.Service
}

func NewAgreementHandler(svc *chat.Service, notifier *notify.Service) *AgreementHandler {
	return &AgreementHandler{svc: svc, notifier: notifier}
}

type GenerateAgreementRequest struct {
	Text string `json:"text"`
}

func (h *AgreementHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateAgreementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	agent := middleware.GetUser(r.Context())
	chatID := chi.URLParam(r, "chatID")
	agr, err := h.svc.GenerateAgreement(r.Context(), agent, chatID, req.Text)
	if err != nil {
		writeChatError(w, err)
		return
	}

	h.notifyQuiet(r, agr.Buyer, fmt.Sprintf("You have received an agreement from %s", agr.Agent))
	writeJSON(w, http.StatusCreated, agr)
}

func (h *AgreementHandler) Accept(w http.ResponseWriter, r *http.Request) {
	buyer := middleware.GetUser(r.Context())
	agreementID := chi.URLParam(r, "agreementID")
	agr, err := h.svc.AcceptAgreement(r.Context(), buyer, agreementID)
	if err != nil {
		writeChatError(w, err)
		return
	}

	h.notifyQuiet(r, agr.Agent, fmt.Sprintf("%s has accepted your agreement", agr.Buyer))
	writeJSON(w, http.StatusOK, agr)
}

func (h *AgreementHandler) Reject(w http.ResponseWriter, r *http.Request) {
	buyer := middleware.GetUser(r.Context())
	agreementID := chi.URLParam(r, "agreementID")
	agr, err := h.svc.RejectAgreement(r.Context(), buyer, agreementID)
	if err != nil {
		writeChatError(w, err)
		return
	}

	h.notifyQuiet(r, agr.Agent, fmt.Sprintf("%s has rejected your agreement", agr.Buyer))
	writeJSON(w, http.StatusOK, agr)
}

// notifyQuiet: уведомление вторично, его ошибка не ломает основной ответ.
func (h *AgreementHandler) notifyQuiet(r *http.Request, user, message string) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(r.Context(), user, message); err != nil {
		logger.Errorf("agreement notify %s: %v", user, err)
	}
}
