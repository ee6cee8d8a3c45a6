package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-identity-worker/internal/app"
	"github.com/go-identity-worker/internal/config"
	transporthttp "github.com/go-identity-worker/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := app.NewLogger(cfg, os.Stdout)
	if err := app.ValidateIngress(cfg); err != nil {
		log.Fatalf("startup: %v", err)
	}

	worker, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer worker.Close()

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Intake:   worker.Intake,
		Verifier: worker.Verifier,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Worker listening on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("Worker stopped")
}
