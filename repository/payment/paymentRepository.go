package paymentrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"booklibrary/model"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

// Row is a payment joined with the owning user of its borrowing.
type Row struct {
	ID                 int64               `json:"id"`
	BorrowingID        int64               `json:"borrowing_id"`
	OwnerID            int64               `json:"user_id"`
	Status             model.PaymentStatus `json:"status"`
	Type               model.PaymentType   `json:"type"`
	AmountToPay        float64             `json:"amount_to_pay"`
	ExternalSessionID  string              `json:"external_session_id,omitempty"`
	ExternalSessionURL string              `json:"external_session_url,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

type ListFilter struct {
	Status *string
	UserID *int64
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, borrowingID int64, amount float64, ptype model.PaymentType) (int64, error)
	SetSession(ctx context.Context, id int64, sessionID, sessionURL string) error

	GetByID(ctx context.Context, id int64) (*Row, error)
	FindBySessionID(ctx context.Context, sessionID string) (*Row, error)
	List(ctx context.Context, userID int64, staff bool, f ListFilter) ([]Row, error)

	// MarkPaidBySession flips PENDING to PAID in one guarded statement.
	// applied is false when the session is unknown or the payment already
	// terminal, which makes duplicate webhook deliveries no-ops.
	MarkPaidBySession(ctx context.Context, sessionID string) (row *Row, applied bool, err error)
	MarkExpiredBySession(ctx context.Context, sessionID string) (applied bool, err error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

var pg = goqu.Dialect("postgres")

const rowCols = `
	p.id, p.borrowing_id, b.user_id, p.status, p.type, p.amount_to_pay,
	COALESCE(p.external_session_id, ''), COALESCE(p.external_session_url, ''), p.created_at`

func scanRow(s interface{ Scan(...any) error }) (*Row, error) {
	var r Row
	err := s.Scan(
		&r.ID, &r.BorrowingID, &r.OwnerID, &r.Status, &r.Type, &r.AmountToPay,
		&r.ExternalSessionID, &r.ExternalSessionURL, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, borrowingID int64, amount float64, ptype model.PaymentType) (int64, error) {
	const q = `
		INSERT INTO payments (borrowing_id, status, type, amount_to_pay)
		VALUES ($1, 'PENDING', $2, $3)
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, borrowingID, ptype, amount).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// SetSession attaches a checkout session to a payment and reopens it as
// PENDING, so a renewed EXPIRED payment can settle through the new session.
// The guard refuses PAID payments and, like the settlement transitions, is a
// single statement: a payment that already carries an open session cannot be
// given a second one, so concurrent renews cannot orphan a live session.
func (r *repo) SetSession(ctx context.Context, id int64, sessionID, sessionURL string) error {
	const q = `
		UPDATE payments
		SET external_session_id = $2,
			external_session_url = $3,
			status = 'PENDING'
		WHERE id = $1
		AND status <> 'PAID'
		AND (external_session_id IS NULL OR status = 'EXPIRED')`
	res, err := r.db.ExecContext(ctx, q, id, sessionID, sessionURL)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, id int64) (*Row, error) {
	q := `
		SELECT` + rowCols + `
		FROM payments p
		JOIN borrowings b ON b.id = p.borrowing_id
		WHERE p.id = $1`
	return scanRow(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) FindBySessionID(ctx context.Context, sessionID string) (*Row, error) {
	q := `
		SELECT` + rowCols + `
		FROM payments p
		JOIN borrowings b ON b.id = p.borrowing_id
		WHERE p.external_session_id = $1`
	return scanRow(r.db.QueryRowContext(ctx, q, sessionID))
}

func (r *repo) List(ctx context.Context, userID int64, staff bool, f ListFilter) ([]Row, error) {
	ds := pg.From(goqu.T("payments").As("p")).
		Join(goqu.T("borrowings").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("p.borrowing_id")))).
		Select(
			goqu.I("p.id"), goqu.I("p.borrowing_id"), goqu.I("b.user_id"),
			goqu.I("p.status"), goqu.I("p.type"), goqu.I("p.amount_to_pay"),
			goqu.L("COALESCE(p.external_session_id, '')"),
			goqu.L("COALESCE(p.external_session_url, '')"),
			goqu.I("p.created_at"),
		).
		Order(goqu.I("p.id").Desc())

	if staff {
		if f.UserID != nil {
			ds = ds.Where(goqu.I("b.user_id").Eq(*f.UserID))
		}
		if f.Status != nil {
			ds = ds.Where(goqu.I("p.status").Eq(*f.Status))
		}
	} else {
		ds = ds.Where(goqu.I("b.user_id").Eq(userID))
	}

	q, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

func (r *repo) MarkPaidBySession(ctx context.Context, sessionID string) (*Row, bool, error) {
	const q = `
		UPDATE payments p
		SET status = 'PAID'
		FROM borrowings b
		WHERE p.external_session_id = $1
		AND p.status = 'PENDING'
		AND b.id = p.borrowing_id
		RETURNING p.id, p.borrowing_id, b.user_id, p.status, p.type, p.amount_to_pay,
			COALESCE(p.external_session_id, ''), COALESCE(p.external_session_url, ''), p.created_at`
	row, err := scanRow(r.db.QueryRowContext(ctx, q, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row, true, nil
}

func (r *repo) MarkExpiredBySession(ctx context.Context, sessionID string) (bool, error) {
	const q = `
		UPDATE payments
		SET status = 'EXPIRED'
		WHERE external_session_id = $1
		AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, sessionID)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}
