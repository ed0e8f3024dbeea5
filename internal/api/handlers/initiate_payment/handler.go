package initiate_payment

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-LifecycleService/internal/api/handlers"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
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

// Handle POST /api/v1/appointments/{appointmentId}/payment
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := strings.TrimSpace(mux.Vars(r)["appointmentId"])
	if appointmentID == "" {
		h.logger.Warn("POST /appointments/{id}/payment - Invalid appointment ID")
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	caller, ok := handlers.CallerFromContext(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/payment - Missing caller")
		handlers.RespondUnauthorized(w, msgMissingCaller)
		return
	}

	result, err := h.service.InitiatePayment(r.Context(), caller, appointmentID)
	if err != nil {
		if code := handlers.RespondServiceError(w, err); code >= http.StatusInternalServerError {
			h.logger.Error("POST /appointments/{id}/payment - Failed: appointment_id=%s, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("POST /appointments/{id}/payment - Rejected: appointment_id=%s, code=%d, error=%v",
				appointmentID, code, err)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/payment - Payment initiated: appointment_id=%s, payment_id=%s, status=%s",
		appointmentID, result.Payment.ID, result.Payment.Status)
	handlers.RespondJSON(w, http.StatusCreated, result)
}
