package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-identity-worker/internal/domain"
	"github.com/go-identity-worker/internal/pkg/sanitize"
	"github.com/go-identity-worker/internal/render"
)

// Outcome of a dispatch.
type Outcome string

const (
	Sent       Outcome = "sent"
	Suppressed Outcome = "suppressed"
)

type Result struct {
	Outcome Outcome
	Subject string
}

type Service interface {
	// Compose renders the e-mail for n without sending it.
	Compose(n domain.Notification) (domain.Email, error)
	// Dispatch sends at most one e-mail for n, or none when consent is withheld.
	Dispatch(ctx context.Context, eventID string, n domain.Notification) (Result, error)
	// SendWelcome sends the first-login e-mail carrying the temporary credential.
	SendWelcome(ctx context.Context, w domain.Welcome) error
}

type mailer interface {
	Send(ctx context.Context, e domain.Email) error
}

type consentChecker interface {
	Allowed(ctx context.Context, email string, category domain.ConsentCategory) (bool, error)
}

type service struct {
	mailer   mailer
	consent  consentChecker
	from     string
	replyTo  string
	product  string
	cli      string
	logo     string
	support  string
	loginURL string
	allowed  []string
	markup   *sanitize.Markup
	logger   *slog.Logger
}

// ServiceDeps configures the dispatcher. Consent may be nil, in which case nothing is gated.
// CLI names the npm package used in install and scan instructions; those lines are left
// out when it is empty.
type ServiceDeps struct {
	Mailer         mailer
	Consent        consentChecker
	From           string
	ReplyTo        string
	ProductName    string
	CLI            string
	LogoURL        string
	SupportEmail   string
	LoginURL       string
	AllowedDomains []string
	Logger         *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	product := deps.ProductName
	if product == "" {
		product = "CDK Insights"
	}
	return &service{
		mailer:   deps.Mailer,
		consent:  deps.Consent,
		from:     deps.From,
		replyTo:  deps.ReplyTo,
		product:  product,
		cli:      deps.CLI,
		logo:     deps.LogoURL,
		support:  deps.SupportEmail,
		loginURL: deps.LoginURL,
		allowed:  deps.AllowedDomains,
		markup:   sanitize.NewMarkup(),
		logger:   logger,
	}
}

func (s *service) Dispatch(ctx context.Context, eventID string, n domain.Notification) (Result, error) {
	log := s.logger.With("event_id", eventID, "type", n.EventType())

	if s.consent != nil && n.Category() != domain.CategoryTransactional {
		ok, err := s.consent.Allowed(ctx, n.Recipient(), n.Category())
		if err != nil {
			return Result{}, fmt.Errorf("consent check: %w", err)
		}
		if !ok {
			log.Info("notification suppressed, consent withheld", "category", n.Category())
			return Result{Outcome: Suppressed}, nil
		}
	}

	email, err := s.Compose(n)
	if err != nil {
		return Result{}, err
	}
	if err := s.mailer.Send(ctx, email); err != nil {
		return Result{}, fmt.Errorf("send %s: %w", n.EventType(), domain.Transient(err))
	}
	log.Info("notification sent", "subject", email.Subject)
	return Result{Outcome: Sent, Subject: email.Subject}, nil
}

func (s *service) Compose(n domain.Notification) (domain.Email, error) {
	msg, err := s.message(n)
	if err != nil {
		return domain.Email{}, err
	}
	return s.build(n.Recipient(), msg)
}

func (s *service) SendWelcome(ctx context.Context, w domain.Welcome) error {
	e, err := s.build(w.Email, s.welcome(w))
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, e); err != nil {
		return fmt.Errorf("send welcome: %w", domain.Transient(err))
	}
	s.logger.Info("welcome e-mail sent", "subject", e.Subject)
	return nil
}

func (s *service) build(to string, msg render.Message) (domain.Email, error) {
	msg.Product = s.product
	msg.Logo = s.logo
	msg.Support = s.support
	html, text, err := render.Render(msg)
	if err != nil {
		return domain.Email{}, fmt.Errorf("%v: %w", err, domain.ErrFatalInvariant)
	}
	return domain.Email{
		From:    s.from,
		To:      to,
		ReplyTo: s.replyTo,
		Subject: msg.Subject,
		HTML:    html,
		Text:    text,
	}, nil
}

// DisplayName picks the greeting name: the trimmed name, else the e-mail local part,
// else "there".
func DisplayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if local, _, _ := strings.Cut(strings.TrimSpace(email), "@"); local != "" {
		return local
	}
	return "there"
}

func (s *service) url(raw string) string {
	return sanitize.URL(raw, s.allowed)
}
