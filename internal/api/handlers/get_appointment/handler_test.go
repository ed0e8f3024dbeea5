package get_appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-LifecycleService/internal/api/middleware"
	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments"
	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
	"github.com/m04kA/SMC-LifecycleService/internal/service/lifecycle"
	"github.com/m04kA/SMC-LifecycleService/pkg/logger"
)

type stubService struct {
	caller models.Caller
	id     string
	resp   *models.AppointmentResponse
	err    error
}

func (s *stubService) GetAppointment(_ context.Context, caller models.Caller, id string) (*models.AppointmentResponse, error) {
	s.caller = caller
	s.id = id
	return s.resp, s.err
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.Use(middleware.Auth)
	r.HandleFunc("/api/v1/appointments/{appointmentId}", h.Handle).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/appt-1", nil)
	req.Header.Set(middleware.HeaderUserID, "client-1")
	req.Header.Set(middleware.HeaderUserRole, "client")
	req.Header.Set(middleware.HeaderSessionID, "s-1")
	return req
}

func TestHandle_OK(t *testing.T) {
	svc := &stubService{resp: &models.AppointmentResponse{ID: "appt-1", Status: "pending", IsFallbackMode: true}}
	rec := serve(NewHandler(svc, logger.NewNop()), newRequest())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "appt-1", svc.id)
	assert.Equal(t, models.Caller{SessionID: "s-1", UserID: "client-1", Role: domain.RoleClient}, svc.caller)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, true, body["isFallbackMode"])
}

func TestHandle_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", lifecycle.ErrAppointmentNotFound, http.StatusNotFound},
		{"access denied", appointments.ErrAccessDenied, http.StatusForbidden},
		{"unknown status", &domain.UnknownStatusError{Vocabulary: "backend", Value: "ARCHIVED"}, http.StatusUnprocessableEntity},
		{"stale", lifecycle.ErrStaleView, http.StatusConflict},
		{"internal", lifecycle.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(NewHandler(&stubService{err: tt.err}, logger.NewNop()), newRequest())
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandle_MissingCaller(t *testing.T) {
	h := NewHandler(&stubService{}, logger.NewNop())
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/v1/appointments/appt-1", nil),
		map[string]string{"appointmentId": "appt-1"})

	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
