// Package main library borrowing API.
//
// @title           Library Service API
// @version         1.0
// @description     book borrowing service (catalog, borrowings, payments).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"booklibrary/app/echoServer"
	authctrl "booklibrary/app/echoServer/controller/auth"
	bookctrl "booklibrary/app/echoServer/controller/book"
	borrowingctrl "booklibrary/app/echoServer/controller/borrowing"
	paymentctrl "booklibrary/app/echoServer/controller/payment"
	"booklibrary/app/echoServer/validation"
	"booklibrary/config"
	bookrepo "booklibrary/repository/book"
	borrowingrepo "booklibrary/repository/borrowing"
	paymentrepo "booklibrary/repository/payment"
	striperepo "booklibrary/repository/stripe"
	telegramrepo "booklibrary/repository/telegram"
	userrepo "booklibrary/repository/user"
	authsvc "booklibrary/service/auth"
	booksvc "booklibrary/service/book"
	borrowingsvc "booklibrary/service/borrowing"
	"booklibrary/service/overdue"
	paymentsvc "booklibrary/service/payment"
	"booklibrary/util/database"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	wr := borrowingrepo.New(db)
	pr := paymentrepo.New(db)
	gw := striperepo.NewHTTP(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	tn := telegramrepo.NewHTTP(cfg.TelegramBotToken)

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(br)
	ws := borrowingsvc.New(db, wr, pr, gw, cfg.PublicBaseURL, log)
	psvc := paymentsvc.New(pr, ur, gw, tn, cfg.PublicBaseURL, log)

	// overdue reminders
	scanner := overdue.NewScanner(wr, tn, log)
	go scanner.Run(ctx, time.Duration(cfg.OverdueSweepMinutes)*time.Minute)

	// controllers
	authC := &authctrl.Controller{Svc: as, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, Log: log}
	borrowingC := &borrowingctrl.Controller{Svc: ws, Log: log}
	paymentC := &paymentctrl.Controller{Svc: psvc, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:      authC,
		Book:      bookC,
		Borrowing: borrowingC,
		Payment:   paymentC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
