package get_history

import (
	"context"

	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
)

type AppointmentService interface {
	GetHistory(ctx context.Context, caller models.Caller, appointmentID string) (*models.HistoryResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
