package request_transition

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-LifecycleService/internal/api/handlers"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
	msgInvalidRequestBody   = "некорректное тело запроса"
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

// Handle POST /api/v1/appointments/{appointmentId}/transitions
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := strings.TrimSpace(mux.Vars(r)["appointmentId"])
	if appointmentID == "" {
		h.logger.Warn("POST /appointments/{id}/transitions - Invalid appointment ID")
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	caller, ok := handlers.CallerFromContext(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/transitions - Missing caller")
		handlers.RespondUnauthorized(w, msgMissingCaller)
		return
	}

	var req RequestTransitionRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/transitions - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	appointment, err := h.service.RequestTransition(r.Context(), caller, appointmentID, req.TargetStatus)
	if err != nil {
		if code := handlers.RespondServiceError(w, err); code >= http.StatusInternalServerError {
			h.logger.Error("POST /appointments/{id}/transitions - Failed: appointment_id=%s, target=%s, error=%v",
				appointmentID, req.TargetStatus, err)
		} else {
			h.logger.Warn("POST /appointments/{id}/transitions - Rejected: appointment_id=%s, target=%s, role=%s, code=%d, error=%v",
				appointmentID, req.TargetStatus, caller.Role, code, err)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/transitions - Appointment moved: appointment_id=%s, status=%s, fallback=%t",
		appointmentID, appointment.Status, appointment.IsFallbackMode)
	handlers.RespondJSON(w, http.StatusOK, appointment)
}
