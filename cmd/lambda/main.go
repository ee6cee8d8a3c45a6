package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-identity-worker/internal/app"
	"github.com/go-identity-worker/internal/config"
	transportlambda "github.com/go-identity-worker/internal/transport/lambda"
)

func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg, os.Stdout)

	worker, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	lambda.Start(transportlambda.NewHandler(worker.Intake, logger).Handle)
}
