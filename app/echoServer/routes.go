package echoServer

import (
	"booklibrary/app/echoServer/controller/auth"
	"booklibrary/app/echoServer/controller/book"
	"booklibrary/app/echoServer/controller/borrowing"
	"booklibrary/app/echoServer/controller/payment"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth      *auth.Controller
	Book      *book.Controller
	Borrowing *borrowing.Controller
	Payment   *payment.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Settlement webhook; authenticated by signature, not JWT.
	pub.POST("/payments/stripe", c.Payment.HandleStripe)

	// Browser callbacks from the checkout page.
	pub.GET("/payments/success", c.Payment.Success)
	pub.GET("/payments/cancel", c.Payment.Cancel)

	// Auth
	authed := e.Group("/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization:Bearer ",
	}))

	// Catalog
	authed.GET("/authors", c.Book.ListAuthors)
	authed.POST("/authors", c.Book.CreateAuthor)
	authed.GET("/books", c.Book.List)
	authed.GET("/books/:id", c.Book.Detail)
	authed.POST("/books", c.Book.Create)
	authed.POST("/books/:id/inventory", c.Book.AddInventory)

	// Borrowings
	authed.POST("/borrowings", c.Borrowing.Create)
	authed.GET("/borrowings", c.Borrowing.List)
	authed.GET("/borrowings/:id", c.Borrowing.Detail)
	authed.POST("/borrowings/:id/return", c.Borrowing.Return)

	// Payments
	authed.GET("/payments", c.Payment.List)
	authed.GET("/payments/:id", c.Payment.Detail)
	authed.POST("/payments/:id/renew", c.Payment.Renew)
}
