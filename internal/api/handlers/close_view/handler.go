package close_view

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

// Handle DELETE /api/v1/sessions/current/appointments/{appointmentId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := strings.TrimSpace(mux.Vars(r)["appointmentId"])
	if appointmentID == "" {
		h.logger.Warn("DELETE /sessions/current/appointments/{id} - Invalid appointment ID")
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	caller, ok := handlers.CallerFromContext(r.Context())
	if !ok {
		h.logger.Warn("DELETE /sessions/current/appointments/{id} - Missing caller")
		handlers.RespondUnauthorized(w, msgMissingCaller)
		return
	}

	if err := h.service.CloseView(r.Context(), caller, appointmentID); err != nil {
		h.logger.Error("DELETE /sessions/current/appointments/{id} - Failed: appointment_id=%s, session=%s, error=%v",
			appointmentID, caller.SessionID, err)
		handlers.RespondServiceError(w, err)
		return
	}

	h.logger.Info("DELETE /sessions/current/appointments/{id} - View closed: appointment_id=%s, session=%s",
		appointmentID, caller.SessionID)
	handlers.RespondJSON(w, http.StatusNoContent, nil)
}
