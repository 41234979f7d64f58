package config

type App struct {
	Port                string `env:"APP_PORT" default:"8080"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	JWTSecret           string `env:"JWT_SECRET,required"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	PublicBaseURL       string `env:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	OverdueSweepMinutes int    `env:"OVERDUE_SWEEP_MINUTES" default:"10"`
	Env                 string `env:"APP_ENV" default:"dev"`
}
