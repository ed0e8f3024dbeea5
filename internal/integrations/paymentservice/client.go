package paymentservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// Client клиент платёжного партнёра.
// Сервис не проводит платежи сам: он только инициирует редирект и читает статус платежа.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента платёжного сервиса
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Initiate создает платёж по записи и возвращает ссылку для редиректа
func (c *Client) Initiate(ctx context.Context, appointmentID string, amount decimal.Decimal, currency string) (*domain.Payment, error) {
	body, err := json.Marshal(InitiateRequest{
		AppointmentID: appointmentID,
		Amount:        amount,
		Currency:      currency,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrInternal, err)
	}

	endpoint := fmt.Sprintf("%s/internal/payments", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Info("Initiate: payment for appointment=%s amount=%s %s", appointmentID, amount.String(), currency)
	return c.doPayment(req)
}

// GetPayment получает платёж по ссылке из записи
func (c *Client) GetPayment(ctx context.Context, paymentRef string) (*domain.Payment, error) {
	endpoint := fmt.Sprintf("%s/internal/payments/%s", c.baseURL, url.PathEscape(paymentRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	return c.doPayment(req)
}

func (c *Client) doPayment(req *http.Request) (*domain.Payment, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// Продолжаем обработку
	case http.StatusNotFound:
		return nil, ErrPaymentNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s", ErrRejected, string(raw))
	default:
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrUnavailable, resp.StatusCode, string(raw))
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	return payment.ToDomain(), nil
}
