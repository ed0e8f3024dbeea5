package get_messages

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
	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments"
	"github.com/m04kA/SMC-LifecycleService/internal/service/appointments/models"
	"github.com/m04kA/SMC-LifecycleService/pkg/logger"
)

type stubService struct {
	resp *models.MessagesResponse
	err  error
}

func (s *stubService) GetMessages(_ context.Context, _ models.Caller, _ string) (*models.MessagesResponse, error) {
	return s.resp, s.err
}

func serve(h *Handler) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.Use(middleware.Auth)
	r.HandleFunc("/api/v1/appointments/{appointmentId}/messages", h.Handle).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/appt-1/messages", nil)
	req.Header.Set(middleware.HeaderUserID, "client-1")
	req.Header.Set(middleware.HeaderUserRole, "client")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandle_OK(t *testing.T) {
	svc := &stubService{resp: &models.MessagesResponse{
		AppointmentID:  "appt-1",
		ConversationID: "conv-1",
		Messages: []models.MessageResponse{
			{ID: "m-1", SenderID: "pro-1", Body: "Здравствуйте", SentAt: "2025-10-15T10:00:00Z", Incoming: true},
		},
	}}
	rec := serve(NewHandler(svc, logger.NewNop()))

	require.Equal(t, http.StatusOK, rec.Code)

	var body models.MessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, *svc.resp, body)
}

func TestHandle_NoConversation(t *testing.T) {
	rec := serve(NewHandler(&stubService{err: appointments.ErrConversationNotFound}, logger.NewNop()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
