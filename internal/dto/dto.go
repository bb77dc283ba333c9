package dto

import (
	"io"

	"github.com/shopspring/decimal"
)

type CreateCheckoutSessionRequest struct {
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	ProductPrice  decimal.Decimal `json:"productPrice"`
	ProductImage  string          `json:"productImage"`
	CustomerEmail string          `json:"customerEmail"`
}

type CreateCheckoutSessionResponse struct {
	ID string `json:"id"`
}

type VerifySessionRequest struct {
	SessionID string `json:"sessionId"`
}

type VerifySessionResponse struct {
	Valid   bool   `json:"valid"`
	Token   string `json:"token,omitempty"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

// Download is an opened archive ready to be streamed for a claimed token.
type Download struct {
	Token    string
	FileName string
	Size     int64
	Body     io.ReadCloser
}
