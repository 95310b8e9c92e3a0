package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/redmonkez12/storefront-users/docs" // Swagger docs (generated)
	"github.com/redmonkez12/storefront-users/internal/auth"
	"github.com/redmonkez12/storefront-users/internal/config"
	"github.com/redmonkez12/storefront-users/internal/database"
	"github.com/redmonkez12/storefront-users/internal/email"
	httpServer "github.com/redmonkez12/storefront-users/internal/http"
	"github.com/redmonkez12/storefront-users/internal/logging"
	"github.com/redmonkez12/storefront-users/internal/user"
)

// @title           Storefront Users API
// @version         1.0
// @description     User accounts for the storefront: registration, sign-in, profiles, sellers, password reset and admin management.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"token_format", cfg.Auth.TokenFormat,
		"email_delivery", cfg.Email.Delivery,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	// Initialize email delivery
	sender := email.NewSender(cfg.Email, logger)
	if cfg.Email.Delivery == config.DeliveryRedis {
		redisClient, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()

		// Requests only enqueue; the worker talks to the SMTP relay
		sender = email.NewOutbox(redisClient, cfg.Email.OutboxKey)
		worker := email.NewWorker(redisClient, cfg.Email.OutboxKey, email.NewSMTPSender(cfg.Email), logger)
		go func() {
			if err := worker.Run(ctx); err != nil {
				logger.Error("email worker stopped", "error", err)
			}
		}()
	}
	emailService := email.NewService(sender, cfg.Email.FrontendURL, logger)

	// Initialize credentials
	hasher, err := auth.NewHasher(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	tokenService, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Initialize services
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, hasher, cfg.Auth.ProtectedAdminEmail, logger)
	authService := auth.NewService(userRepo, hasher, tokenService, emailService, logger, auth.ServiceConfig{
		TokenDuration:       cfg.Auth.TokenDuration,
		ResetTokenTTL:       cfg.Auth.ResetTokenTTL,
		HideUnknownAccounts: cfg.Auth.HideUnknownAccounts,
	})

	// Initialize router
	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:           auth.NewHandler(authService),
		Users:          user.NewHandler(userService, cfg.Server.SeedEnabled),
		AuthMiddleware: auth.NewMiddleware(tokenService),
	}, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
