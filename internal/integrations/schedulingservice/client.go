package schedulingservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// Client клиент для работы с сервисом расписаний
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента сервиса расписаний
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetAppointment получает запись по ID
func (c *Client) GetAppointment(ctx context.Context, appointmentID string) (*domain.Appointment, error) {
	return c.do(ctx, "GetAppointment", http.MethodGet, c.appointmentURL(appointmentID, ""), nil)
}

// Confirm подтверждает запись
func (c *Client) Confirm(ctx context.Context, appointmentID string) (*domain.Appointment, error) {
	return c.do(ctx, "Confirm", http.MethodPost, c.appointmentURL(appointmentID, "/confirm"), nil)
}

// Complete отмечает запись выполненной
func (c *Client) Complete(ctx context.Context, appointmentID string) (*domain.Appointment, error) {
	return c.do(ctx, "Complete", http.MethodPost, c.appointmentURL(appointmentID, "/complete"), nil)
}

// Cancel отменяет запись
func (c *Client) Cancel(ctx context.Context, appointmentID string) (*domain.Appointment, error) {
	return c.do(ctx, "Cancel", http.MethodPost, c.appointmentURL(appointmentID, "/cancel"), nil)
}

// PartialUpdate обновляет статус записи общим PATCH запросом
func (c *Client) PartialUpdate(ctx context.Context, appointmentID string, status domain.BackendStatus) (*domain.Appointment, error) {
	body := PartialUpdateRequest{Status: string(status)}
	return c.do(ctx, "PartialUpdate", http.MethodPatch, c.appointmentURL(appointmentID, ""), body)
}

func (c *Client) appointmentURL(appointmentID, suffix string) string {
	return fmt.Sprintf("%s/internal/appointments/%s%s", c.baseURL, url.PathEscape(appointmentID), suffix)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body interface{}) (*domain.Appointment, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("%s: scheduling service request failed: %v", op, err)
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusNotFound:
		return nil, ErrAppointmentNotFound
	default:
		raw, _ := io.ReadAll(resp.Body)
		var errResp ErrorResponse
		msg := string(raw)
		if json.Unmarshal(raw, &errResp) == nil && errResp.Message != "" {
			msg = errResp.Message
		}
		if !isTransportStatus(resp.StatusCode) {
			c.log.Warn("%s: scheduling service rejected request with status=%d: %s", op, resp.StatusCode, msg)
			return nil, &RejectedError{Op: op, StatusCode: resp.StatusCode, Message: msg}
		}
		c.log.Warn("%s: scheduling service responded with status=%d: %s", op, resp.StatusCode, msg)
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	// Парсим ответ
	var appt Appointment
	if err := json.NewDecoder(resp.Body).Decode(&appt); err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return appt.ToDomain()
}
