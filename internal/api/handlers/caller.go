package handlers

import (
	"context"

	"github.com/m04kA/SMC-LifecycleService/internal/api/middleware"
	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
)

// CallerFromContext собирает участника из контекста, заполненного middleware.Auth
func CallerFromContext(ctx context.Context) (models.Caller, bool) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		return models.Caller{}, false
	}
	role, ok := middleware.GetRole(ctx)
	if !ok {
		return models.Caller{}, false
	}
	sessionID, ok := middleware.GetSessionID(ctx)
	if !ok {
		return models.Caller{}, false
	}
	return models.Caller{SessionID: sessionID, UserID: userID, Role: role}, true
}
