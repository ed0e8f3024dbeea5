package get_messages

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

// Handle GET /api/v1/appointments/{appointmentId}/messages
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := strings.TrimSpace(mux.Vars(r)["appointmentId"])
	if appointmentID == "" {
		h.logger.Warn("GET /appointments/{id}/messages - Invalid appointment ID")
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	caller, ok := handlers.CallerFromContext(r.Context())
	if !ok {
		h.logger.Warn("GET /appointments/{id}/messages - Missing caller")
		handlers.RespondUnauthorized(w, msgMissingCaller)
		return
	}

	messages, err := h.service.GetMessages(r.Context(), caller, appointmentID)
	if err != nil {
		if code := handlers.RespondServiceError(w, err); code >= http.StatusInternalServerError {
			h.logger.Error("GET /appointments/{id}/messages - Failed: appointment_id=%s, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("GET /appointments/{id}/messages - Rejected: appointment_id=%s, code=%d, error=%v",
				appointmentID, code, err)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, messages)
}
