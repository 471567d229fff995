package http

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/monocontact/internal/auth"
	"github.com/geocoder89/monocontact/internal/avatars"
	"github.com/geocoder89/monocontact/internal/cache"
	"github.com/geocoder89/monocontact/internal/config"
	"github.com/geocoder89/monocontact/internal/http/handlers"
	"github.com/geocoder89/monocontact/internal/http/middlewares"
	"github.com/geocoder89/monocontact/internal/notifications"
	"github.com/geocoder89/monocontact/internal/observability"
	"github.com/geocoder89/monocontact/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 5 << 20 // avatar uploads are the largest payload

// meteredNotifier counts verification mail attempts by outcome.
type meteredNotifier struct {
	inner notifications.Notifier
	sends *prometheus.CounterVec
}

func (m meteredNotifier) SendVerificationMessage(ctx context.Context, in notifications.SendVerificationMessageInput) error {
	err := m.inner.SendVerificationMessage(ctx, in)

	switch {
	case err == nil:
		m.sends.WithLabelValues("ok").Inc()
	case errors.Is(err, notifications.ErrCircuitOpen):
		m.sends.WithLabelValues("circuit_open").Inc()
	default:
		m.sends.WithLabelValues("error").Inc()
	}

	return err
}

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, notifier notifications.Notifier, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON("/api/users/avatars"))
	r.Use(otelgin.Middleware("monocontact"))

	// metrics
	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)
	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// health
	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
		}

		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}

		return nil
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// resized avatars live on a public static path
	r.Static("/avatars", cfg.AvatarDir)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	contactsRepo := postgres.NewContactsRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)
	sessionCache := cache.New(30 * time.Second)
	authMw := middlewares.NewAuthMiddleware(jwtManager, usersRepo, sessionCache)

	avatarStore := avatars.NewStore(cfg.AvatarDir, cfg.PublicBaseURL)

	usersHandler := handlers.NewUsersHandler(usersRepo, jwtManager, meteredNotifier{inner: notifier, sends: prom.MailSendsTotal}, avatarStore, authMw)
	contactsHandler := handlers.NewContactsHandler(contactsRepo)

	// credential endpoints are brute-forceable, keep the limit tight
	publicLimiter := middlewares.NewRateLimiter(15, time.Minute, rdb)
	authedLimiter := middlewares.NewRateLimiter(120, time.Minute, rdb)

	api := r.Group("/api")

	users := api.Group("/users")
	users.POST("/signup", publicLimiter.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.SignUp)
	users.POST("/signin", publicLimiter.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.SignIn)
	users.GET("/verify/:verificationToken", publicLimiter.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.Verify)
	users.POST("/verify", publicLimiter.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.ResendVerification)

	users.POST("/signout", authMw.RequireAuth(), usersHandler.SignOut)
	users.GET("/current", authMw.RequireAuth(), usersHandler.Current)
	users.PATCH("/avatars", authMw.RequireAuth(), usersHandler.UpdateAvatar)
	users.PATCH("/:userId", authMw.RequireAuth(), usersHandler.UpdateSubscription)

	contacts := api.Group("/contacts", authMw.RequireAuth(), authedLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	contacts.GET("", contactsHandler.ListContacts)
	contacts.GET("/:contactId", contactsHandler.GetContact)
	contacts.POST("", contactsHandler.CreateContact)
	contacts.PUT("/:contactId", contactsHandler.UpdateContact)
	contacts.PATCH("/:contactId/favorite", contactsHandler.SetFavorite)
	contacts.DELETE("/:contactId", contactsHandler.DeleteContact)

	return r
}
