package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-identity-worker/internal/domain"
	"github.com/go-identity-worker/internal/pkg/id"
)

// Reason a failed event was parked.
type Reason string

const (
	ReasonNonRetryable Reason = "non_retryable"
	ReasonExhausted    Reason = "retries_exhausted"
	ReasonExpired      Reason = "max_age_exceeded"
)

// Record is the archived form of a parked event.
type Record struct {
	ID       string          `json:"id"`
	Envelope domain.Envelope `json:"envelope"`
	Reason   Reason          `json:"reason"`
	Error    string          `json:"error"`
	Attempt  int             `json:"attempt"`
	ParkedAt time.Time       `json:"parkedAt"`
}

type archiver interface {
	Archive(ctx context.Context, key string, body []byte) (string, error)
}

type alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

type Router struct {
	archive     archiver
	alert       alerter
	maxAttempts int
	maxAge      time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// RouterDeps configures the router. Archive and Alert may be nil; a parked event is then
// only logged.
type RouterDeps struct {
	Archive     archiver
	Alert       alerter
	MaxAttempts int
	MaxAge      time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
}

func NewRouter(deps RouterDeps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Router{
		archive:     deps.Archive,
		alert:       deps.Alert,
		maxAttempts: deps.MaxAttempts,
		maxAge:      deps.MaxAge,
		now:         now,
		logger:      logger,
	}
}

// Route decides what happens to an event whose handling returned cause. attempt counts
// earlier deliveries, so the first delivery is 0.
//
// It returns cause when the transport should redeliver, and nil when the event is done:
// either cause was nil or the event has been parked. A failure to park is returned as a
// transient error so the event is not lost.
func (r *Router) Route(ctx context.Context, env domain.Envelope, attempt int, cause error) error {
	if cause == nil {
		return nil
	}
	var reason Reason
	switch {
	case !domain.IsRetryable(cause):
		reason = ReasonNonRetryable
	case attempt >= r.maxAttempts:
		reason = ReasonExhausted
	case r.maxAge > 0 && !env.Time.IsZero() && r.now().Sub(env.Time) >= r.maxAge:
		reason = ReasonExpired
	default:
		r.logger.Warn("event handling failed, redelivery requested",
			"event_id", env.ID, "type", env.DetailType, "attempt", attempt, "err", cause)
		return cause
	}
	if err := r.park(ctx, env, attempt, reason, cause); err != nil {
		return fmt.Errorf("park event %s: %w", env.ID, domain.Transient(err))
	}
	return nil
}

func (r *Router) park(ctx context.Context, env domain.Envelope, attempt int, reason Reason, cause error) error {
	now := r.now().UTC()
	if len(env.Detail) > 0 && !json.Valid(env.Detail) {
		raw, _ := json.Marshal(string(env.Detail))
		env.Detail = raw
	}
	rec := Record{
		ID:       id.At(now),
		Envelope: env,
		Reason:   reason,
		Error:    cause.Error(),
		Attempt:  attempt,
		ParkedAt: now,
	}
	log := r.logger.With("event_id", env.ID, "type", env.DetailType, "attempt", attempt, "reason", reason)
	log.Error("event parked on dead-letter path", "err", cause)

	location := ""
	if r.archive != nil {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode dead-letter record: %w", err)
		}
		location, err = r.archive.Archive(ctx, Key(rec.ID, now), body)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	} else {
		log.Warn("no dead-letter archive configured")
	}

	if r.alert == nil {
		log.Warn("no dead-letter alert configured")
		return nil
	}
	subject := fmt.Sprintf("Dead-lettered %s event", env.DetailType)
	if err := r.alert.Alert(ctx, subject, alertMessage(rec, location)); err != nil {
		if location != "" {
			// The record is safe in the archive; only the page was lost.
			log.Error("dead-letter alert failed", "err", err, "location", location)
			return nil
		}
		return errors.Join(errors.New("alert"), err)
	}
	return nil
}

// Key is the archive object key for a record parked at t.
func Key(recordID string, t time.Time) string {
	return fmt.Sprintf("dead-letter/%s/%s.json", t.UTC().Format("2006/01/02"), recordID)
}

func alertMessage(rec Record, location string) string {
	msg := fmt.Sprintf(
		"Event %s (%s) was parked after %d attempt(s): %s.\nError: %s\nInspect the worker logs for event_id=%s.",
		rec.Envelope.ID, rec.Envelope.DetailType, rec.Attempt+1, rec.Reason, rec.Error, rec.Envelope.ID,
	)
	if location != "" {
		msg += "\nArchived record: " + location
	}
	return msg
}
