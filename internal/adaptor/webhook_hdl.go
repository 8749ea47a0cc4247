package adaptor

import (
	"errors"
	"io"
	"net/http"

	"service-marketplace/internal/usecase"
	"service-marketplace/pkg/apperror"
	"service-marketplace/pkg/utils"

	"go.uber.org/zap"
)

const (
	callbackTokenHeader = "x-callback-token"
	maxWebhookBody      = 1 << 20
)

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

type webhookError struct {
	Error string `json:"error"`
}

// PaymentWebhook handles POST /api/webhooks/payment. It answers with the
// gateway's plain contract, not the API envelope.
func (h *WebhookHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteJSON(w, http.StatusBadRequest, webhookError{Error: "Payload too large"})
			return
		}
		utils.WriteJSON(w, http.StatusBadRequest, webhookError{Error: "Unable to read request body"})
		return
	}

	resp, err := h.service.HandleGatewayWebhook(r.Context(), r.Header.Get(callbackTokenHeader), body)
	if err != nil {
		appErr, ok := apperror.As(err)
		if !ok || appErr.Kind == apperror.KindInternal {
			h.log.Error("Webhook processing failed", zap.Error(err))
			utils.WriteJSON(w, http.StatusInternalServerError, webhookError{Error: "Internal server error"})
			return
		}
		utils.WriteJSON(w, appErr.HTTPStatus(), webhookError{Error: appErr.Message})
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}
