package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/safar/go-ticket-desk/internal/api"
	"github.com/safar/go-ticket-desk/internal/auth"
	"github.com/safar/go-ticket-desk/internal/booking"
	"github.com/safar/go-ticket-desk/internal/clock"
	"github.com/safar/go-ticket-desk/internal/config"
	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/notify"
	"github.com/safar/go-ticket-desk/internal/store"
	"github.com/safar/go-ticket-desk/internal/telegram"
	"github.com/safar/go-ticket-desk/migrations"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("Connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrations.Apply(ctx, db); err != nil {
		logger.Fatal("Apply migrations", zap.Error(err))
	}
	logger.Info("Connected to database, migrations applied")

	st := store.New(db)
	clk := clock.NewSystem()

	location, err := time.LoadLocation(cfg.Telegram.Timezone)
	if err != nil {
		logger.Fatal("Load timezone", zap.String("timezone", cfg.Telegram.Timezone), zap.Error(err))
	}

	var transport notify.Transport
	var bot *telegram.Client
	if cfg.Telegram.Enabled() {
		bot, err = telegram.NewClient(telegram.ClientConfig{
			Token:      cfg.Telegram.BotToken,
			BaseURL:    cfg.Telegram.APIURL,
			HTTPClient: &http.Client{Timeout: cfg.Telegram.SendTimeout},
			Logger:     logger.Named("telegram"),
		})
		if err != nil {
			// Orders keep flowing without the bot; the admin can still decide over HTTP.
			logger.Error("Create telegram client, admin notifications are disabled", zap.Error(err))
			bot = nil
		} else {
			transport = bot
		}
	} else {
		logger.Warn("Telegram is not configured, admin notifications are disabled")
	}

	dispatcher := notify.NewDispatcher(transport, notify.Config{
		AdminChatID: cfg.Telegram.AdminChatID,
		ChannelID:   cfg.Telegram.ChannelID,
		Location:    location,
	}, clk, logger.Named("notify"))

	controller := booking.NewController(st, st, dispatcher, booking.Options{
		ReleaseOnReject: cfg.Orders.ReleaseOnReject,
		LinkUnitPrice:   cfg.Orders.LinkUnitPrice,
		MaxSeats:        cfg.Orders.MaxSeats,
		NotifyTimeout:   cfg.Telegram.SendTimeout,
	}, logger.Named("booking"))
	gateway := booking.NewGateway(controller, st, dispatcher, cfg.Telegram.SendTimeout, logger.Named("gateway"))
	catalog := booking.NewCatalogService(st, logger.Named("catalog"))

	if cfg.Auth.EphemeralSecret {
		logger.Warn("AUTH_TOKEN_SECRET not set, using a generated secret; admin tokens will not survive a restart")
	}
	signer, err := auth.NewSigner([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("Create token signer", zap.Error(err))
	}
	authService := auth.NewService(st, signer, cfg.Auth.BcryptCost, clk, logger.Named("auth"))

	if bot != nil && cfg.Telegram.WebhookURL != "" {
		registerWebhook(ctx, bot, cfg.Telegram, logger)
	}

	srv := api.NewServer(controller, gateway, authService, catalog, st, api.Config{
		WebhookSecret: cfg.Telegram.WebhookSecret,
	}, logger.Named("http"))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if err := controller.Wait(shutdownCtx); err != nil {
		logger.Warn("Pending notifications abandoned", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() || level == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func registerWebhook(ctx context.Context, bot *telegram.Client, cfg config.TelegramConfig, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()

	err := bot.SetWebhook(ctx, telegram.SetWebhookRequest{
		URL:            cfg.WebhookURL,
		SecretToken:    cfg.WebhookSecret,
		AllowedUpdates: []string{"callback_query"},
	})
	if err != nil {
		logger.Error("Register telegram webhook", zap.String("url", cfg.WebhookURL), zap.Error(err))
		return
	}
	logger.Info("Telegram webhook registered", zap.String("url", cfg.WebhookURL))
}
