package record_payment

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-LifecycleService/internal/api/handlers"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgMissingPaymentRef    = "отсутствует ссылка на платёж"
	msgMissingCaller        = "отсутствуют данные пользователя"
)

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments/{appointmentId}/payment/callback
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := strings.TrimSpace(mux.Vars(r)["appointmentId"])
	if appointmentID == "" {
		h.logger.Warn("POST /appointments/{id}/payment/callback - Invalid appointment ID")
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	caller, ok := handlers.CallerFromContext(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/payment/callback - Missing caller")
		handlers.RespondUnauthorized(w, msgMissingCaller)
		return
	}

	var req RecordPaymentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/payment/callback - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if strings.TrimSpace(req.PaymentRef) == "" {
		h.logger.Warn("POST /appointments/{id}/payment/callback - Missing paymentRef: appointment_id=%s", appointmentID)
		handlers.RespondBadRequest(w, msgMissingPaymentRef)
		return
	}

	appointment, err := h.service.RecordPayment(r.Context(), caller, appointmentID, req.PaymentRef)
	if err != nil {
		if code := handlers.RespondServiceError(w, err); code >= http.StatusInternalServerError {
			h.logger.Error("POST /appointments/{id}/payment/callback - Failed: appointment_id=%s, ref=%s, error=%v",
				appointmentID, req.PaymentRef, err)
		} else {
			h.logger.Warn("POST /appointments/{id}/payment/callback - Rejected: appointment_id=%s, ref=%s, code=%d, error=%v",
				appointmentID, req.PaymentRef, code, err)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/payment/callback - Payment recorded: appointment_id=%s, status=%s",
		appointmentID, appointment.Status)
	handlers.RespondJSON(w, http.StatusOK, appointment)
}
