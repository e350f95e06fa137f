package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ali-Herrera/tri-tracker/internal/api"
	"github.com/Ali-Herrera/tri-tracker/internal/app"
	"github.com/Ali-Herrera/tri-tracker/internal/config"
)

// @title Tri Tracker API
// @version 1.0
// @description API for planning, completing and importing triathlon training.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Tri Tracker Server...")
	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	log.Println("Server exiting.")
}

func run() error {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}

	// --- Initialize Components ---
	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	// --- Setup Routes ---
	router := gin.Default()
	api.SetupRoutes(router, cfg.JWT.Secret, cfg.JWT.Leeway, application.Services)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- Graceful Shutdown ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("INFO: Listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.Printf("INFO: Shutting down, draining requests for up to %s", cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}
