package booksvc

import (
	"context"
	"errors"

	"booklibrary/model"
	repo "booklibrary/repository/book"
)

type BookRow = repo.BookRow

type Repo interface {
	CreateAuthor(ctx context.Context, a *model.Author) (int64, error)
	ListAuthors(ctx context.Context) ([]model.Author, error)
	CreateBook(ctx context.Context, b *model.Book) (int64, error)
	AddInventory(ctx context.Context, bookID int64, n int64) error
	List(ctx context.Context) ([]BookRow, error)
	Detail(ctx context.Context, id int64) (*BookRow, error)
}

type Service interface {
	CreateAuthor(ctx context.Context, pseudonym, firstName, lastName string) (int64, error)
	ListAuthors(ctx context.Context) ([]model.Author, error)
	CreateBook(ctx context.Context, title string, authorID int64, cover string, inventory int64, dailyFee float64) (int64, error)
	AddInventory(ctx context.Context, bookID int64, n int64) error
	List(ctx context.Context) ([]BookRow, error)
	Detail(ctx context.Context, id int64) (*BookRow, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) CreateAuthor(ctx context.Context, pseudonym, firstName, lastName string) (int64, error) {
	if pseudonym == "" {
		return 0, errors.New("pseudonym required")
	}
	return s.r.CreateAuthor(ctx, &model.Author{Pseudonym: pseudonym, FirstName: firstName, LastName: lastName})
}

func (s *service) ListAuthors(ctx context.Context) ([]model.Author, error) {
	return s.r.ListAuthors(ctx)
}

func (s *service) CreateBook(ctx context.Context, title string, authorID int64, cover string, inventory int64, dailyFee float64) (int64, error) {
	if title == "" || authorID <= 0 || inventory < 0 || dailyFee <= 0 {
		return 0, errors.New("invalid payload")
	}
	c := model.BookCover(cover)
	if c != model.CoverHard && c != model.CoverSoft {
		c = model.CoverSoft
	}
	return s.r.CreateBook(ctx, &model.Book{
		Title:     title,
		AuthorID:  authorID,
		Cover:     c,
		Inventory: inventory,
		DailyFee:  dailyFee,
	})
}

func (s *service) AddInventory(ctx context.Context, bookID int64, n int64) error {
	return s.r.AddInventory(ctx, bookID, n)
}

func (s *service) List(ctx context.Context) ([]BookRow, error)            { return s.r.List(ctx) }
func (s *service) Detail(ctx context.Context, id int64) (*BookRow, error) { return s.r.Detail(ctx, id) }
