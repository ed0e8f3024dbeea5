package record_payment

// RecordPaymentRequest HTTP request model (колбэк платёжного партнёра)
type RecordPaymentRequest struct {
	PaymentRef string `json:"paymentRef"`
}
