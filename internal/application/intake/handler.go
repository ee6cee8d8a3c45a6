// Package intake is the single entry point for inbound bus events. Transports hand it an
// envelope and a delivery attempt; it validates, dispatches on the detail type and lets the
// dead-letter router decide between success, redelivery and parking.
package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-identity-worker/internal/application/deadletter"
	"github.com/go-identity-worker/internal/application/event"
	"github.com/go-identity-worker/internal/application/notify"
	"github.com/go-identity-worker/internal/application/provision"
	"github.com/go-identity-worker/internal/domain"
)

type provisioner interface {
	Provision(ctx context.Context, eventID string, d domain.Provisioning) (provision.Result, error)
	AttachPaymentMethod(ctx context.Context, eventID string, d domain.PaymentMethodAttached) (provision.Result, error)
}

type dispatcher interface {
	Compose(n domain.Notification) (domain.Email, error)
	Dispatch(ctx context.Context, eventID string, n domain.Notification) (notify.Result, error)
}

type router interface {
	Route(ctx context.Context, env domain.Envelope, attempt int, cause error) error
}

type Handler struct {
	provision provisioner
	notify    dispatcher
	router    router
	logger    *slog.Logger
}

type HandlerDeps struct {
	Provisioner provisioner
	Dispatcher  dispatcher
	Router      router
	Logger      *slog.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := deps.Router
	if r == nil {
		r = deadletter.NewRouter(deadletter.RouterDeps{Logger: logger})
	}
	return &Handler{
		provision: deps.Provisioner,
		notify:    deps.Dispatcher,
		router:    r,
		logger:    logger,
	}
}

// Handle processes one delivery of env. A nil return means the transport may acknowledge
// the event; a non-nil error means it should redeliver.
func (h *Handler) Handle(ctx context.Context, env domain.Envelope, attempt int) error {
	return h.router.Route(ctx, env, attempt, h.handle(ctx, env))
}

func (h *Handler) handle(ctx context.Context, env domain.Envelope) error {
	d, err := event.Parse(env)
	if err != nil {
		h.logger.Warn("event rejected", "event_id", env.ID, "type", env.DetailType, "err", err)
		return err
	}
	switch v := d.(type) {
	case domain.PaymentMethodAttached:
		_, err = h.provision.AttachPaymentMethod(ctx, env.ID, v)
	case domain.Provisioning:
		_, err = h.provision.Provision(ctx, env.ID, v)
	case domain.Notification:
		_, err = h.notify.Dispatch(ctx, env.ID, v)
	default:
		err = fmt.Errorf("no handler for %s: %w", d.EventType(), domain.ErrInvalidPayload)
	}
	return err
}

// Preview renders the e-mail a notification envelope would produce without sending it.
func (h *Handler) Preview(env domain.Envelope) (domain.Email, error) {
	d, err := event.Parse(env)
	if err != nil {
		return domain.Email{}, err
	}
	n, ok := d.(domain.Notification)
	if !ok {
		return domain.Email{}, fmt.Errorf("%s is not a notification: %w", d.EventType(), domain.ErrInvalidPayload)
	}
	return h.notify.Compose(n)
}
