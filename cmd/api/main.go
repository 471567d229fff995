package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/monocontact/internal/config"
	"github.com/geocoder89/monocontact/internal/db"
	httpx "github.com/geocoder89/monocontact/internal/http"
	"github.com/geocoder89/monocontact/internal/notifications"
	"github.com/geocoder89/monocontact/internal/observability"
	"github.com/geocoder89/monocontact/internal/redisclient"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing is optional; without an endpoint the exporter just spams errors
	if cfg.OTLPEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)

		shutdownTracer, err := observability.InitTracer(ctx, "monocontact", cfg.OTLPEndpoint)

		cancel()

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("could not connect to database", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	err = db.Migrate(cfg.DBURL, "migrations")

	if err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	// redis backs the shared rate limiter; absent it falls back in-process
	var rdb *redis.Client

	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		defer func() { _ = rc.Close() }()

		rdb = rc.Raw()
	}

	notifier := buildNotifier(cfg)

	// set up routers with the log
	router := httpx.NewRouter(log, pool, rdb, notifier, cfg)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctxTimeOut := 10 * time.Second

		ctx, cancel := config.WithTimeout(ctxTimeOut)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// buildNotifier picks SMTP when configured, and falls back to the log
// notifier so dev environments never need a mail server.
func buildNotifier(cfg config.Config) notifications.Notifier {
	var inner notifications.Notifier = notifications.NewLogNotifier()

	if cfg.SMTPHost != "" {
		inner = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host:          cfg.SMTPHost,
			Port:          cfg.SMTPPort,
			User:          cfg.SMTPUser,
			Password:      cfg.SMTPPassword,
			From:          cfg.MailFrom,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	}

	return notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{})
}
