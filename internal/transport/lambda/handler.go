// Package lambda adapts EventBridge rule targets to the intake pipeline.
package lambda

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-identity-worker/internal/domain"
)

type eventIntake interface {
	Handle(ctx context.Context, env domain.Envelope, attempt int) error
}

type Handler struct {
	intake eventIntake
	logger *slog.Logger
}

func NewHandler(intake eventIntake, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{intake: intake, logger: logger}
}

// Handle is the function passed to lambda.Start. EventBridge does not report the delivery
// attempt to async targets, so every invocation is attempt 0 and the event age alone ends
// redelivery. A returned error makes the service retry the invocation.
func (h *Handler) Handle(ctx context.Context, ev events.CloudWatchEvent) error {
	env := domain.Envelope{
		ID:         ev.ID,
		Source:     ev.Source,
		DetailType: domain.EventType(ev.DetailType),
		Time:       ev.Time,
		Detail:     ev.Detail,
	}
	if err := h.intake.Handle(ctx, env, 0); err != nil {
		h.logger.Warn("invocation failed, awaiting retry", "event_id", ev.ID, "type", ev.DetailType, "err", err)
		return err
	}
	return nil
}
