package striperepo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"booklibrary/util/httpx"

	"github.com/google/uuid"
)

const (
	sessionsURL        = "https://api.stripe.com/v1/checkout/sessions"
	signatureTolerance = 5 * time.Minute
)

var ErrBadSignature = errors.New("webhook signature verification failed")

type httpGateway struct {
	secretKey     string
	webhookSecret string
	client        *http.Client
	now           func() time.Time
}

func NewHTTP(secretKey, webhookSecret string) Gateway {
	return &httpGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		client:        httpx.Client(),
		now:           time.Now,
	}
}

func (g *httpGateway) CreateSession(ctx context.Context, req CreateSessionReq) (*Session, error) {
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}
	cents := int64(math.Round(req.Amount * 100))

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(cents, 10))
	form.Set("line_items[0][price_data][product_data][name]", "Book Borrowing Payment")
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("metadata[payment_id]", strconv.FormatInt(req.PaymentID, 10))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionsURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, resp.Status)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.Status)
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrGatewayRejected)
	}
	return &Session{ID: out.ID, URL: out.URL}, nil
}

// VerifySignature checks a "t=<unix>,v1=<hex>" header against an HMAC-SHA256
// of "<t>.<body>" with the shared webhook secret. Rejects stale timestamps.
func (g *httpGateway) VerifySignature(sigHeader string, rawBody []byte) error {
	ts, sigs, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return err
	}

	age := g.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	for _, s := range sigs {
		got, err := hex.DecodeString(s)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return nil
		}
	}
	return ErrBadSignature
}

func parseSignatureHeader(header string) (ts int64, sigs []string, err error) {
	if header == "" {
		return 0, nil, ErrBadSignature
	}
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, ErrBadSignature
			}
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, ErrBadSignature
	}
	return ts, sigs, nil
}

// SignPayload builds a header the verifier accepts; the webhook tests use it.
func SignPayload(secret string, at time.Time, rawBody []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
