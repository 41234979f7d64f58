package borrowingrepo

import (
	"context"
	"database/sql"
	"time"

	"booklibrary/model"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

// ListFilter carries the optional admin filters; nil fields are skipped.
type ListFilter struct {
	UserID   *int64
	IsActive *bool
}

// DueRow is one active borrowing close to (or past) its expected return date,
// joined with the owner's notification fields.
type DueRow struct {
	BorrowingID          int64
	UserID               int64
	BookTitle            string
	ExpectedReturnDate   time.Time
	TelegramChatID       string
	NotificationsEnabled bool
}

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
	ListDueSoon(ctx context.Context, cutoff time.Time) ([]DueRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

var pg = goqu.Dialect("postgres")

func (r *repo) BookExists(ctx context.Context, tx *sql.Tx, bookID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`
	var ok bool
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&ok)
	return ok, err
}

// DecrementInventory reserves one copy. The guard keeps inventory from ever
// going negative under concurrent borrows: only one of two racing updates on
// the last copy reports a row affected.
func (r *repo) DecrementInventory(ctx context.Context, tx *sql.Tx, bookID int64) (bool, error) {
	const q = `
		UPDATE books
		SET inventory = inventory - 1
		WHERE id = $1
		AND inventory > 0`
	res, err := tx.ExecContext(ctx, q, bookID)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}

func (r *repo) IncrementInventory(ctx context.Context, tx *sql.Tx, bookID int64) error {
	const q = `
		UPDATE books
		SET inventory = inventory + 1
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, bookID)
	return err
}

func (r *repo) GetBookDailyFee(ctx context.Context, tx *sql.Tx, bookID int64) (float64, error) {
	const q = `
		SELECT daily_fee
		FROM books
		WHERE id = $1`
	var fee float64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&fee)
	return fee, err
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, b *model.Borrowing) (int64, error) {
	const q = `
		INSERT INTO borrowings (user_id, book_id, borrow_date, expected_return_date, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id`
	var id int64
	err := tx.QueryRowContext(ctx, q, b.UserID, b.BookID, b.BorrowDate, b.ExpectedReturnDate).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
	const q = `
		SELECT id, user_id, book_id, borrow_date, expected_return_date, actual_return_date, is_active
		FROM borrowings
		WHERE id = $1
		FOR UPDATE`
	b := &model.Borrowing{}
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate, &b.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, id int64, actual time.Time) error {
	const q = `
		UPDATE borrowings
		SET actual_return_date = $2,
			is_active = FALSE
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, actual)
	return err
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.Borrowing, error) {
	const q = `
		SELECT id, user_id, book_id, borrow_date, expected_return_date, actual_return_date, is_active
		FROM borrowings
		WHERE id = $1`
	b := &model.Borrowing{}
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate, &b.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repo) List(ctx context.Context, userID int64, staff bool, f ListFilter) ([]model.Borrowing, error) {
	ds := pg.From("borrowings").
		Select("id", "user_id", "book_id", "borrow_date", "expected_return_date", "actual_return_date", "is_active").
		Order(goqu.I("id").Desc())

	if staff {
		if f.UserID != nil {
			ds = ds.Where(goqu.C("user_id").Eq(*f.UserID))
		}
		if f.IsActive != nil {
			ds = ds.Where(goqu.C("is_active").Eq(*f.IsActive))
		}
	} else {
		ds = ds.Where(goqu.C("user_id").Eq(userID))
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

	var out []model.Borrowing
	for rows.Next() {
		var b model.Borrowing
		if err := rows.Scan(&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate, &b.IsActive); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) ListDueSoon(ctx context.Context, cutoff time.Time) ([]DueRow, error) {
	const q = `
		SELECT br.id, br.user_id, b.title, br.expected_return_date,
			COALESCE(u.telegram_chat_id, ''), u.notifications_enabled
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = br.user_id
		WHERE br.is_active = TRUE
		AND br.expected_return_date <= $1
		ORDER BY br.id`
	rows, err := r.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DueRow
	for rows.Next() {
		var d DueRow
		if err := rows.Scan(&d.BorrowingID, &d.UserID, &d.BookTitle, &d.ExpectedReturnDate, &d.TelegramChatID, &d.NotificationsEnabled); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
