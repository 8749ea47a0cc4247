package adaptor

import (
	"encoding/json"
	"net/http"

	"service-marketplace/internal/dto/request"
	"service-marketplace/internal/usecase"
	"service-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AdminPaymentHandler struct {
	service usecase.AdminPaymentService
	log     *zap.Logger
}

func NewAdminPaymentHandler(service usecase.AdminPaymentService, log *zap.Logger) *AdminPaymentHandler {
	return &AdminPaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "admin_payment")),
	}
}

// GetPayment handles GET /api/admin/payments/{id}
func (h *AdminPaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err, "get payment")
		return
	}
	utils.ResponseSuccess(w, "success", payment)
}

// Approve handles POST /api/admin/payments/{id}/approve
func (h *AdminPaymentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.ManualApprove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err, "approve payment")
		return
	}
	utils.ResponseSuccess(w, "Payment approved", payment)
}

// Reject handles POST /api/admin/payments/{id}/reject
func (h *AdminPaymentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.ManualReject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err, "reject payment")
		return
	}
	utils.ResponseSuccess(w, "Payment rejected", payment)
}

// Refund handles POST /api/admin/payments/{id}/refund
func (h *AdminPaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req request.RefundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	payment, err := h.service.ManualRefund(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "refund payment")
		return
	}
	utils.ResponseSuccess(w, "Payment refunded", payment)
}

// ListWebhookEvents handles GET /api/admin/webhook-events
func (h *AdminPaymentHandler) ListWebhookEvents(w http.ResponseWriter, r *http.Request) {
	req := request.PaginationFromQuery(r.URL.Query())

	events, err := h.service.ListWebhookEvents(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "list webhook events")
		return
	}
	utils.ResponseSuccess(w, "success", events)
}
