package get_transitions

import (
	"context"

	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
)

type AppointmentService interface {
	GetTransitions(ctx context.Context, caller models.Caller, appointmentID string) (*models.TransitionsResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
