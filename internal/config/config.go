package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`
	RazorpayBaseURL   string `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com/v1"`

	// Monto en paise (99 INR) y duración de cada ventana pagada.
	SubscriptionAmount int `env:"SUBSCRIPTION_AMOUNT" envDefault:"9900"`
	SubscriptionDays   int `env:"SUBSCRIPTION_DAYS" envDefault:"30"`

	VerificationTokenTTLHours int `env:"VERIFICATION_TOKEN_TTL_HOURS" envDefault:"24"`
	ReaperThresholdDays       int `env:"REAPER_THRESHOLD_DAYS" envDefault:"7"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
