package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-identity-worker/internal/domain"
	"github.com/go-identity-worker/internal/transport/http/middleware"
)

// AttemptHeader carries the zero-based delivery attempt set by the bus connection.
const AttemptHeader = "X-Delivery-Attempt"

// EventBridge caps a single entry at 256 KB.
const maxEnvelopeBytes = 256 << 10

type eventIntake interface {
	Handle(ctx context.Context, env domain.Envelope, attempt int) error
	Preview(env domain.Envelope) (domain.Email, error)
}

// EventHandler accepts bus envelopes over HTTP.
type EventHandler struct {
	intake eventIntake
	logger *slog.Logger
}

func NewEventHandler(intake eventIntake, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{intake: intake, logger: logger}
}

// Ingest answers 202 once the event is handled, skipped or parked, and 503 when the
// caller should redeliver.
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	env, ok := decodeEnvelope(w, r)
	if !ok {
		return
	}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok && claims.Source != "" && claims.Source != env.Source {
		writeError(w, http.StatusForbidden, "token is not valid for this event source")
		return
	}

	err := h.intake.Handle(r.Context(), env, deliveryAttempt(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "accepted"})
	case domain.IsRetryable(err):
		h.logger.Warn("event deferred", "event_id", env.ID, "type", env.DetailType, "err", err)
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

// Preview renders the e-mail a notification envelope would produce. Nothing is sent.
func (h *EventHandler) Preview(w http.ResponseWriter, r *http.Request) {
	env, ok := decodeEnvelope(w, r)
	if !ok {
		return
	}
	email, err := h.intake.Preview(env)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPayload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("preview failed", "type", env.DetailType, "err", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	writeJSON(w, http.StatusOK, PreviewEnvelope{
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})
}

func decodeEnvelope(w http.ResponseWriter, r *http.Request) (domain.Envelope, bool) {
	var env domain.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEnvelopeBytes)).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid envelope")
		return env, false
	}
	return env, true
}

func deliveryAttempt(r *http.Request) int {
	n, err := strconv.Atoi(r.Header.Get(AttemptHeader))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
