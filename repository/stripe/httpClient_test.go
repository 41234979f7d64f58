package striperepo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestGateway(now time.Time) *httpGateway {
	return &httpGateway{
		webhookSecret: "whsec_test",
		now:           func() time.Time { return now },
	}
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	g := newTestGateway(now)
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	header := SignPayload("whsec_test", now, body)
	require.NoError(t, g.VerifySignature(header, body))
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	now := time.Now()
	g := newTestGateway(now)
	body := []byte(`{}`)

	header := SignPayload("whsec_other", now, body)
	require.ErrorIs(t, g.VerifySignature(header, body), ErrBadSignature)
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	now := time.Now()
	g := newTestGateway(now)
	body := []byte(`{"amount":12.00}`)

	header := SignPayload("whsec_test", now, body)
	tampered := []byte(`{"amount":0.01}`)
	require.ErrorIs(t, g.VerifySignature(header, tampered), ErrBadSignature)
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	g := newTestGateway(now)
	body := []byte(`{}`)

	old := now.Add(-signatureTolerance - time.Second)
	require.ErrorIs(t, g.VerifySignature(SignPayload("whsec_test", old, body), body), ErrBadSignature)

	future := now.Add(signatureTolerance + time.Second)
	require.ErrorIs(t, g.VerifySignature(SignPayload("whsec_test", future, body), body), ErrBadSignature)
}

func TestVerifySignature_WithinTolerance(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	g := newTestGateway(now)
	body := []byte(`{}`)

	slightlyOld := now.Add(-signatureTolerance + time.Second)
	require.NoError(t, g.VerifySignature(SignPayload("whsec_test", slightlyOld, body), body))
}

func TestVerifySignature_MalformedHeaders(t *testing.T) {
	g := newTestGateway(time.Now())
	body := []byte(`{}`)

	for _, header := range []string{
		"",
		"v1=deadbeef",
		"t=1710072000",
		"t=notanumber,v1=deadbeef",
		"garbage",
	} {
		require.ErrorIs(t, g.VerifySignature(header, body), ErrBadSignature, "header %q", header)
	}
}

func TestVerifySignature_AcceptsAnyValidV1(t *testing.T) {
	now := time.Now()
	g := newTestGateway(now)
	body := []byte(`{}`)

	// A rotated-secret delivery carries one stale and one valid signature.
	valid := SignPayload("whsec_test", now, body)
	header := strings.Replace(valid, ",v1=", ",v1=deadbeef,v1=", 1)
	require.NoError(t, g.VerifySignature(header, body))
}
