// model/book.go
package model

type Author struct {
	ID        int64  `json:"id"`
	Pseudonym string `json:"pseudonym"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type BookCover string

const (
	CoverHard BookCover = "hard"
	CoverSoft BookCover = "soft"
)

type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	AuthorID  int64     `json:"author_id"`
	Cover     BookCover `json:"cover"`
	Inventory int64     `json:"inventory"`
	DailyFee  float64   `json:"daily_fee"`
}
