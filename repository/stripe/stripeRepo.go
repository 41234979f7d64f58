package striperepo

import (
	"context"
	"errors"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")
)

type CreateSessionReq struct {
	Amount     float64
	Currency   string
	SuccessURL string
	CancelURL  string
	PaymentID  int64
}

type Session struct {
	ID  string
	URL string
}

// Gateway is the only surface the core depends on; the HTTP implementation
// below talks to Stripe Checkout.
type Gateway interface {
	CreateSession(ctx context.Context, req CreateSessionReq) (*Session, error)
	VerifySignature(sigHeader string, rawBody []byte) error
}
