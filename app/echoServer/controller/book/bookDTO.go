package book

type CreateAuthorReq struct {
	Pseudonym string `json:"pseudonym" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type CreateBookReq struct {
	Title     string  `json:"title" validate:"required"`
	AuthorID  int64   `json:"author_id" validate:"required,gt=0"`
	Cover     string  `json:"cover" validate:"omitempty,oneof=hard soft"`
	Inventory int64   `json:"inventory" validate:"gte=0"`
	DailyFee  float64 `json:"daily_fee" validate:"required,gt=0"`
}

type AddInventoryReq struct {
	Count int64 `json:"count" validate:"required,gt=0"`
}
