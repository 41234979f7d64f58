package borrowingsvc

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"booklibrary/model"
	borrowingrepo "booklibrary/repository/borrowing"
	striperepo "booklibrary/repository/stripe"
	"booklibrary/service/fee"
)

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrOutOfStock      ErrCode = "OUT_OF_STOCK"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrNotOwner        ErrCode = "NOT_OWNER"
	ErrAlreadyReturned ErrCode = "ALREADY_RETURNED"
	ErrBadReturnDate   ErrCode = "BAD_RETURN_DATE"
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

type Returned struct {
	BorrowingID      int64
	PaymentID        int64
	AmountToPay      float64
	PaymentType      model.PaymentType
	CheckoutURL      string
	ActualReturnDate time.Time
}

type ListFilter = borrowingrepo.ListFilter

type Repo interface {
	BookExists(ctx context.Context, tx *sql.Tx, bookID int64) (bool, error)
	DecrementInventory(ctx context.Context, tx *sql.Tx, bookID int64) (bool, error)
	IncrementInventory(ctx context.Context, tx *sql.Tx, bookID int64) error
	GetBookDailyFee(ctx context.Context, tx *sql.Tx, bookID int64) (float64, error)

	Insert(ctx context.Context, tx *sql.Tx, b *model.Borrowing) (int64, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, actual time.Time) error

	GetByID(ctx context.Context, id int64) (*model.Borrowing, error)
	List(ctx context.Context, userID int64, staff bool, f ListFilter) ([]model.Borrowing, error)
}

// PaymentRepo is the slice of the payment store the lifecycle needs: the
// PENDING row is created inside the return transaction, the session is
// attached after commit.
type PaymentRepo interface {
	Insert(ctx context.Context, tx *sql.Tx, borrowingID int64, amount float64, ptype model.PaymentType) (int64, error)
	SetSession(ctx context.Context, id int64, sessionID, sessionURL string) error
}

type Service interface {
	// Create reserves one copy and opens an active borrowing.
	Create(ctx context.Context, userID, bookID int64, expectedReturn time.Time) (*model.Borrowing, error)

	// Return closes the borrowing, releases the copy and creates the payment.
	Return(ctx context.Context, requesterID int64, staff bool, borrowingID int64, actualReturn *time.Time) (*Returned, error)

	Detail(ctx context.Context, requesterID int64, staff bool, id int64) (*model.Borrowing, error)
	List(ctx context.Context, userID int64, staff bool, f ListFilter) ([]model.Borrowing, error)
}

// ----- Service implementation -----

type service struct {
	db            *sql.DB
	r             Repo
	p             PaymentRepo
	gw            striperepo.Gateway
	publicBaseURL string
	log           *slog.Logger
	now           func() time.Time
}

func New(db *sql.DB, r Repo, p PaymentRepo, gw striperepo.Gateway, publicBaseURL string, log *slog.Logger) Service {
	return &service{db: db, r: r, p: p, gw: gw, publicBaseURL: publicBaseURL, log: log, now: time.Now}
}

func today(now func() time.Time) time.Time {
	y, m, d := now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *service) Create(ctx context.Context, userID, bookID int64, expectedReturn time.Time) (b *model.Borrowing, err error) {
	borrowDate := today(s.now)
	expected := dateOnly(expectedReturn)
	if !expected.After(borrowDate) {
		return nil, makeErr(ErrBadReturnDate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	exists, err := s.r.BookExists(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, makeErr(ErrBookNotFound)
	}

	// Guarded decrement: of N concurrent borrows against K copies exactly K
	// see a row affected; inventory never dips below zero.
	ok, err := s.r.DecrementInventory(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, makeErr(ErrOutOfStock)
	}

	b = &model.Borrowing{
		UserID:             userID,
		BookID:             bookID,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: expected,
		IsActive:           true,
	}
	if b.ID, err = s.r.Insert(ctx, tx, b); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// Return commits the physical return first and only then talks to the payment
// gateway: a provider outage must not keep a book on loan. When session
// creation fails the payment stays PENDING with empty session fields and can
// be renewed later.
func (s *service) Return(ctx context.Context, requesterID int64, staff bool, borrowingID int64, actualReturn *time.Time) (out *Returned, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b, err := s.r.GetForUpdate(ctx, tx, borrowingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !staff && b.UserID != requesterID {
		return nil, makeErr(ErrNotOwner)
	}
	if !b.IsActive {
		return nil, makeErr(ErrAlreadyReturned)
	}

	actual := today(s.now)
	if actualReturn != nil {
		actual = dateOnly(*actualReturn)
	}
	if actual.Before(dateOnly(b.BorrowDate)) {
		return nil, makeErr(ErrBadReturnDate)
	}

	if err = s.r.MarkReturned(ctx, tx, b.ID, actual); err != nil {
		return nil, err
	}
	if err = s.r.IncrementInventory(ctx, tx, b.BookID); err != nil {
		return nil, err
	}

	dailyFee, err := s.r.GetBookDailyFee(ctx, tx, b.BookID)
	if err != nil {
		return nil, err
	}
	quote, err := fee.Calculate(b.BorrowDate, b.ExpectedReturnDate, actual, dailyFee)
	if err != nil {
		return nil, err
	}

	paymentID, err := s.p.Insert(ctx, tx, b.ID, quote.Amount, quote.Type)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	out = &Returned{
		BorrowingID:      b.ID,
		PaymentID:        paymentID,
		AmountToPay:      quote.Amount,
		PaymentType:      quote.Type,
		ActualReturnDate: actual,
	}
	out.CheckoutURL = s.attachSession(ctx, paymentID, quote.Amount)
	return out, nil
}

func (s *service) attachSession(ctx context.Context, paymentID int64, amount float64) string {
	sess, err := s.gw.CreateSession(ctx, striperepo.CreateSessionReq{
		Amount:     amount,
		Currency:   "usd",
		SuccessURL: s.publicBaseURL + "/v1/payments/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.publicBaseURL + "/v1/payments/cancel?session_id={CHECKOUT_SESSION_ID}",
		PaymentID:  paymentID,
	})
	if err != nil {
		s.log.Warn("checkout session creation failed, payment left renewable",
			"payment_id", paymentID, "err", err)
		return ""
	}
	if err := s.p.SetSession(ctx, paymentID, sess.ID, sess.URL); err != nil {
		s.log.Error("persisting checkout session failed", "payment_id", paymentID, "err", err)
		return ""
	}
	return sess.URL
}

func (s *service) Detail(ctx context.Context, requesterID int64, staff bool, id int64) (*model.Borrowing, error) {
	b, err := s.r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !staff && b.UserID != requesterID {
		return nil, makeErr(ErrNotOwner)
	}
	return b, nil
}

func (s *service) List(ctx context.Context, userID int64, staff bool, f ListFilter) ([]model.Borrowing, error) {
	return s.r.List(ctx, userID, staff, f)
}
