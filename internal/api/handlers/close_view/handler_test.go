package close_view

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/m04kA/SMC-LifecycleService/internal/api/middleware"
	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
	"github.com/m04kA/SMC-LifecycleService/internal/service/lifecycle"
	"github.com/m04kA/SMC-LifecycleService/pkg/logger"
)

type stubService struct {
	caller models.Caller
	id     string
	err    error
}

func (s *stubService) CloseView(_ context.Context, caller models.Caller, id string) error {
	s.caller = caller
	s.id = id
	return s.err
}

func serve(h *Handler) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.Use(middleware.Auth)
	r.HandleFunc("/api/v1/sessions/current/appointments/{appointmentId}", h.Handle).Methods(http.MethodDelete)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/current/appointments/appt-1", nil)
	req.Header.Set(middleware.HeaderUserID, "client-1")
	req.Header.Set(middleware.HeaderUserRole, "client")
	req.Header.Set(middleware.HeaderSessionID, "s-9")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandle_NoContent(t *testing.T) {
	svc := &stubService{}
	rec := serve(NewHandler(svc, logger.NewNop()))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "appt-1", svc.id)
	assert.Equal(t, "s-9", svc.caller.SessionID)
}

func TestHandle_SnapshotFailure(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: Close - delete snapshot: db down", lifecycle.ErrInternal)}
	rec := serve(NewHandler(svc, logger.NewNop()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
