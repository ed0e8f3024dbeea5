package get_messages

import (
	"context"

	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
)

type AppointmentService interface {
	GetMessages(ctx context.Context, caller models.Caller, appointmentID string) (*models.MessagesResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
