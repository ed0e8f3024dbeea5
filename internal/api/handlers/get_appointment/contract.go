package get_appointment

import (
	"context"

	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
)

type AppointmentService interface {
	GetAppointment(ctx context.Context, caller models.Caller, appointmentID string) (*models.AppointmentResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
