package http

import (
	"context"
	"log/slog"

	"github.com/go-identity-worker/internal/domain"
	jwtinfra "github.com/go-identity-worker/internal/infrastructure/jwt"
)

// EventIntake is what the router requires from the event pipeline.
type EventIntake interface {
	Handle(ctx context.Context, env domain.Envelope, attempt int) error
	Preview(env domain.Envelope) (domain.Email, error)
}

// Deps holds the collaborators the router wires into its handlers.
type Deps struct {
	Intake EventIntake
	// Verifier is optional; without it only the API key is accepted.
	Verifier *jwtinfra.Verifier
	Logger   *slog.Logger
}
