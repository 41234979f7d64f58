package bookrepo

import (
	"context"
	"database/sql"
	"errors"

	"booklibrary/model"
)

type BookRow struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	AuthorID   int64   `json:"author_id"`
	AuthorName string  `json:"author_name"`
	Cover      string  `json:"cover"`
	Inventory  int64   `json:"inventory"`
	DailyFee   float64 `json:"daily_fee"`
}

type Repo interface {
	CreateAuthor(ctx context.Context, a *model.Author) (int64, error)
	ListAuthors(ctx context.Context) ([]model.Author, error)

	CreateBook(ctx context.Context, b *model.Book) (int64, error)
	AddInventory(ctx context.Context, bookID int64, n int64) error
	List(ctx context.Context) ([]BookRow, error)
	Detail(ctx context.Context, id int64) (*BookRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) CreateAuthor(ctx context.Context, a *model.Author) (int64, error) {
	const q = `
INSERT INTO authors (pseudonym, first_name, last_name)
VALUES ($1,$2,$3)
RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, a.Pseudonym, a.FirstName, a.LastName).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) ListAuthors(ctx context.Context) ([]model.Author, error) {
	const q = `
SELECT id, pseudonym, first_name, last_name
FROM authors
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Author
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.Pseudonym, &a.FirstName, &a.LastName); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repo) CreateBook(ctx context.Context, b *model.Book) (int64, error) {
	const q = `
INSERT INTO books (title, author_id, cover, inventory, daily_fee)
VALUES ($1,$2,$3,$4,$5)
RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q, b.Title, b.AuthorID, b.Cover, b.Inventory, b.DailyFee).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) AddInventory(ctx context.Context, bookID int64, n int64) error {
	if n <= 0 {
		return errors.New("n must be > 0")
	}
	const q = `
UPDATE books
SET inventory = inventory + $2
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, bookID, n)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) List(ctx context.Context) ([]BookRow, error) {
	const q = `
SELECT b.id, b.title, b.author_id, a.pseudonym, b.cover, b.inventory, b.daily_fee
FROM books b
JOIN authors a ON a.id = b.author_id
ORDER BY b.id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookRow
	for rows.Next() {
		var b BookRow
		if err := rows.Scan(&b.ID, &b.Title, &b.AuthorID, &b.AuthorName, &b.Cover, &b.Inventory, &b.DailyFee); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*BookRow, error) {
	const q = `
SELECT b.id, b.title, b.author_id, a.pseudonym, b.cover, b.inventory, b.daily_fee
FROM books b
JOIN authors a ON a.id = b.author_id
WHERE b.id = $1`
	var b BookRow
	err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Title, &b.AuthorID, &b.AuthorName, &b.Cover, &b.Inventory, &b.DailyFee)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
