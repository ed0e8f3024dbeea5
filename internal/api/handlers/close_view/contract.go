package close_view

import (
	"context"

	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
)

type AppointmentService interface {
	CloseView(ctx context.Context, caller models.Caller, appointmentID string) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
