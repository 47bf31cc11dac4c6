package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database DatabaseConfig `envconfig:"DATABASE"`
	Server   ServerConfig   `envconfig:"SERVER"`
	Telegram TelegramConfig `envconfig:"TELEGRAM"`
	Auth     AuthConfig     `envconfig:"AUTH"`
	Orders   OrdersConfig   `envconfig:"ORDERS"`
	LogLevel string         `envconfig:"LOG_LEVEL" default:"info"`
	Env      string         `envconfig:"APP_ENV" default:"production"`
}

type DatabaseConfig struct {
	URL             string        `envconfig:"URL"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"5m"`
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

type TelegramConfig struct {
	BotToken      string        `envconfig:"BOT_TOKEN"`
	AdminChatID   string        `envconfig:"ADMIN_CHAT_ID"`
	ChannelID     string        `envconfig:"CHANNEL_ID"`
	APIURL        string        `envconfig:"API_URL" default:"https://api.telegram.org"`
	WebhookURL    string        `envconfig:"WEBHOOK_URL"`
	WebhookSecret string        `envconfig:"WEBHOOK_SECRET"`
	SendTimeout   time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
	Timezone      string        `envconfig:"TIMEZONE" default:"Europe/Moscow"`
}

// Enabled reports whether enough is configured to talk to the bot API.
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.AdminChatID != ""
}

type AuthConfig struct {
	TokenSecret string        `envconfig:"TOKEN_SECRET"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	BcryptCost  int           `envconfig:"BCRYPT_COST" default:"10"`

	// EphemeralSecret is set when Load generated TokenSecret for a development
	// run; issued tokens do not survive a restart.
	EphemeralSecret bool `ignored:"true"`
}

type OrdersConfig struct {
	// ReleaseOnReject returns reserved seats to the pool when an order is rejected.
	ReleaseOnReject bool            `envconfig:"RELEASE_ON_REJECT" default:"false"`
	LinkUnitPrice   decimal.Decimal `envconfig:"LINK_UNIT_PRICE" default:"2990"`
	MaxSeats        int             `envconfig:"MAX_SEATS" default:"10"`
}

const minTokenSecretLen = 32

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if cfg.IsDevelopment() && cfg.Auth.TokenSecret == "" {
		secret := make([]byte, minTokenSecretLen)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		cfg.Auth.TokenSecret = hex.EncodeToString(secret)
		cfg.Auth.EphemeralSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Orders.MaxSeats < 1 {
		errs = append(errs, fmt.Errorf("ORDERS_MAX_SEATS must be positive, got %d", c.Orders.MaxSeats))
	}
	if c.Orders.LinkUnitPrice.IsNegative() {
		errs = append(errs, errors.New("ORDERS_LINK_UNIT_PRICE must not be negative"))
	}
	switch {
	case c.Auth.TokenSecret == "":
		errs = append(errs, errors.New("AUTH_TOKEN_SECRET is required outside development"))
	case len(c.Auth.TokenSecret) < minTokenSecretLen:
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_SECRET must be at least %d bytes", minTokenSecretLen))
	}
	if _, err := time.LoadLocation(c.Telegram.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TELEGRAM_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
