package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/stayserve/hotel-orders/internal/http/handlers"
	authmw "github.com/stayserve/hotel-orders/internal/http/middleware"
	"github.com/stayserve/hotel-orders/internal/mailer"
	"github.com/stayserve/hotel-orders/internal/repository"
	"github.com/stayserve/hotel-orders/internal/service"
	"github.com/stayserve/hotel-orders/pkg/config"
	"github.com/stayserve/hotel-orders/pkg/database"
	"github.com/stayserve/hotel-orders/pkg/events"
	"github.com/stayserve/hotel-orders/pkg/logger"
	mw "github.com/stayserve/hotel-orders/pkg/middleware"
	"github.com/stayserve/hotel-orders/pkg/token"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.ExposePasscode {
		logger.Warn("Passcodes are returned in HTTP responses; disable AUTH_EXPOSE_PASSCODE outside development")
	}

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to Redis (idempotency cache)
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Initialize repositories
	adminRepo := repository.NewAdminRepository(pool)
	guestRepo := repository.NewGuestRepository(pool)
	verifyRepo := repository.NewVerificationRepository(pool)
	rateLimitRepo := repository.NewRateLimitRepository(pool)
	idempotencyStore := repository.NewRedisIdempotencyStore(redisClient)

	// Initialize mailer
	var mailService mailer.Service
	switch {
	case cfg.Email.DevMode:
		mailService = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mailService = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.SMTPFromName, cfg.Email.SMTPFrom)
	default:
		mailService = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}

	// Initialize services
	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	mfaService := service.NewMFAService(adminRepo, verifyRepo, tokens, mailService, eventBus, cfg)
	guestService := service.NewGuestService(guestRepo, tokens, eventBus)

	// Initialize handlers and guard
	h := handlers.New(mfaService, guestService, cfg)
	guard := authmw.NewGuard(tokens, adminRepo, guestRepo)

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("auth"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.With(
				authmw.RateLimit(rateLimitRepo, "admin_verification", 5, time.Minute),
				mw.Idempotency(idempotencyStore),
			).Post("/request-verification", h.RequestVerification)

			r.Post("/verify", h.Verify)

			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAdmin)
				r.Get("/me", h.AdminMe)
				r.With(guard.AuthorizeAdminHotel).Get("/hotels/{hotelID}/access", h.AdminHotelAccess)
			})
		})

		r.Route("/guest", func(r chi.Router) {
			r.With(
				authmw.RateLimit(rateLimitRepo, "guest_login", 10, time.Minute),
			).Post("/login", h.GuestLogin)

			r.Group(func(r chi.Router) {
				r.Use(guard.RequireGuest)
				r.Get("/me", h.GuestMe)
				r.With(guard.AuthorizeGuestHotel).Get("/hotels/{hotelID}/access", h.GuestHotelAccess)
			})
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down auth service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Auth service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting auth service", "port", cfg.Server.Port, "env", cfg.App.Environment)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Auth service error", "error", err)
		os.Exit(1)
	}
}
