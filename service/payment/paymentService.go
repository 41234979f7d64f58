package paymentsvc

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"booklibrary/model"
	paymentrepo "booklibrary/repository/payment"
	striperepo "booklibrary/repository/stripe"
	telegramrepo "booklibrary/repository/telegram"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errors used by controllers

type ErrCode string

const (
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrNotOwner     ErrCode = "NOT_OWNER"
	ErrAlreadyPaid  ErrCode = "ALREADY_PAID"
	ErrStillPending ErrCode = "STILL_PENDING"
	ErrBadSignature ErrCode = "BAD_SIGNATURE"
	ErrBadPayload   ErrCode = "BAD_PAYLOAD"
	ErrGateway      ErrCode = "GATEWAY"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// dto

type Row = paymentrepo.Row
type ListFilter = paymentrepo.ListFilter

type Renewed struct {
	PaymentID   int64
	CheckoutURL string
}

type Repo interface {
	SetSession(ctx context.Context, id int64, sessionID, sessionURL string) error
	GetByID(ctx context.Context, id int64) (*Row, error)
	FindBySessionID(ctx context.Context, sessionID string) (*Row, error)
	List(ctx context.Context, userID int64, staff bool, f ListFilter) ([]Row, error)
	MarkPaidBySession(ctx context.Context, sessionID string) (*Row, bool, error)
	MarkExpiredBySession(ctx context.Context, sessionID string) (bool, error)
}

// UserReader resolves the notification target for a settled payment.
type UserReader interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
}

type Service interface {
	// HandleSettlement consumes one signed gateway webhook delivery.
	HandleSettlement(ctx context.Context, sigHeader string, rawBody []byte) error

	// Renew issues a fresh checkout session for an expired (or sessionless) payment.
	Renew(ctx context.Context, requesterID, paymentID int64) (*Renewed, error)

	Detail(ctx context.Context, requesterID int64, staff bool, id int64) (*Row, error)
	List(ctx context.Context, userID int64, staff bool, f ListFilter) ([]Row, error)
	BySession(ctx context.Context, sessionID string) (*Row, error)
}

// ----- Service implementation -----

type service struct {
	r             Repo
	users         UserReader
	gw            striperepo.Gateway
	notifier      telegramrepo.Notifier
	publicBaseURL string
	log           *slog.Logger
}

func New(r Repo, users UserReader, gw striperepo.Gateway, notifier telegramrepo.Notifier, publicBaseURL string, log *slog.Logger) Service {
	return &service{r: r, users: users, gw: gw, notifier: notifier, publicBaseURL: publicBaseURL, log: log}
}

type settlementEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// HandleSettlement verifies first and fails closed: nothing is written unless
// the payload provably came from the gateway. PAID and EXPIRED are absorbing,
// so duplicated or reordered deliveries (including a late "completed" after
// "expired") change nothing and still report success.
func (s *service) HandleSettlement(ctx context.Context, sigHeader string, rawBody []byte) error {
	if err := s.gw.VerifySignature(sigHeader, rawBody); err != nil {
		s.log.Warn("settlement event rejected", "err", err)
		return makeErr(ErrBadSignature)
	}

	var ev settlementEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return makeErr(ErrBadPayload)
	}
	if ev.Type == "" || ev.Data.Object.ID == "" {
		return makeErr(ErrBadPayload)
	}
	sessionID := ev.Data.Object.ID

	switch ev.Type {
	case "checkout.session.completed":
		row, applied, err := s.r.MarkPaidBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !applied {
			// Unknown or already-settled session: deliberately a success so
			// the gateway stops retrying.
			s.log.Info("settlement no-op", "event_id", ev.ID, "session_id", sessionID)
			return nil
		}
		s.log.Info("payment settled", "payment_id", row.ID, "borrowing_id", row.BorrowingID)
		s.notifyPaid(ctx, row)
		return nil

	case "checkout.session.expired":
		applied, err := s.r.MarkExpiredBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		if applied {
			s.log.Info("payment session expired", "session_id", sessionID)
		}
		return nil

	default:
		return nil
	}
}

// notifyPaid fires exactly once per PENDING->PAID transition; callers only
// reach it when the guarded update reported a row.
func (s *service) notifyPaid(ctx context.Context, row *Row) {
	u, err := s.users.ByID(ctx, row.OwnerID)
	if err != nil {
		s.log.Warn("paid notification skipped, user lookup failed", "user_id", row.OwnerID, "err", err)
		return
	}
	if !u.NotificationsEnabled || u.TelegramChatID == "" {
		return
	}

	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(notifyCtx, 30*time.Second)
		defer cancel()
		if err := s.notifier.Notify(sendCtx, u.TelegramChatID, "Your payment was received. Thank you!"); err != nil {
			s.log.Warn("paid notification delivery failed", "user_id", u.ID, "err", err)
		}
	}()
}

func (s *service) Renew(ctx context.Context, requesterID, paymentID int64) (*Renewed, error) {
	p, err := s.r.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if p.OwnerID != requesterID {
		return nil, makeErr(ErrNotOwner)
	}
	switch {
	case p.Status == model.PaymentPaid:
		return nil, makeErr(ErrAlreadyPaid)
	case p.Status == model.PaymentPending && p.ExternalSessionID != "":
		// One open session per payment; only expired (or sessionless) ones renew.
		return nil, makeErr(ErrStillPending)
	}

	sess, err := s.gw.CreateSession(ctx, striperepo.CreateSessionReq{
		Amount:     p.AmountToPay,
		Currency:   "usd",
		SuccessURL: s.publicBaseURL + "/v1/payments/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.publicBaseURL + "/v1/payments/cancel?session_id={CHECKOUT_SESSION_ID}",
		PaymentID:  p.ID,
	})
	if err != nil {
		s.log.Error("renew session failed", "payment_id", p.ID, "err", err)
		return nil, makeErr(ErrGateway)
	}
	if err := s.r.SetSession(ctx, p.ID, sess.ID, sess.URL); err != nil {
		// A concurrent renew won the race between the status read and the
		// guarded update; the session it installed stays in place.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrStillPending)
		}
		return nil, err
	}
	return &Renewed{PaymentID: p.ID, CheckoutURL: sess.URL}, nil
}

func (s *service) Detail(ctx context.Context, requesterID int64, staff bool, id int64) (*Row, error) {
	p, err := s.r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !staff && p.OwnerID != requesterID {
		return nil, makeErr(ErrNotOwner)
	}
	return p, nil
}

func (s *service) List(ctx context.Context, userID int64, staff bool, f ListFilter) ([]Row, error) {
	return s.r.List(ctx, userID, staff, f)
}

func (s *service) BySession(ctx context.Context, sessionID string) (*Row, error) {
	p, err := s.r.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}
