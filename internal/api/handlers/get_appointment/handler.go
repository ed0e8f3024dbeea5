package get_appointment

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

// Handle GET /api/v1/appointments/{appointmentId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := strings.TrimSpace(mux.Vars(r)["appointmentId"])
	if appointmentID == "" {
		h.logger.Warn("GET /appointments/{id} - Invalid appointment ID")
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	caller, ok := handlers.CallerFromContext(r.Context())
	if !ok {
		h.logger.Warn("GET /appointments/{id} - Missing caller")
		handlers.RespondUnauthorized(w, msgMissingCaller)
		return
	}

	// Загружаем запись (сервис сам проверит, что пользователь участник)
	appointment, err := h.service.GetAppointment(r.Context(), caller, appointmentID)
	if err != nil {
		if code := handlers.RespondServiceError(w, err); code >= http.StatusInternalServerError {
			h.logger.Error("GET /appointments/{id} - Failed to get appointment: appointment_id=%s, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("GET /appointments/{id} - Rejected: appointment_id=%s, user_id=%s, code=%d, error=%v",
				appointmentID, caller.UserID, code, err)
		}
		return
	}

	h.logger.Info("GET /appointments/{id} - Appointment retrieved: appointment_id=%s, status=%s, fallback=%t",
		appointmentID, appointment.Status, appointment.IsFallbackMode)
	handlers.RespondJSON(w, http.StatusOK, appointment)
}
