// Package app assembles the worker from configuration. The HTTP and Lambda entry points
// share it so both run the same pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-identity-worker/internal/application/consent"
	"github.com/go-identity-worker/internal/application/deadletter"
	"github.com/go-identity-worker/internal/application/existence"
	"github.com/go-identity-worker/internal/application/intake"
	"github.com/go-identity-worker/internal/application/notify"
	"github.com/go-identity-worker/internal/application/provision"
	"github.com/go-identity-worker/internal/config"
	"github.com/go-identity-worker/internal/infrastructure/awscfg"
	"github.com/go-identity-worker/internal/infrastructure/cognito"
	"github.com/go-identity-worker/internal/infrastructure/dynamo"
	"github.com/go-identity-worker/internal/infrastructure/eventbridge"
	jwtinfra "github.com/go-identity-worker/internal/infrastructure/jwt"
	s3infra "github.com/go-identity-worker/internal/infrastructure/s3"
	"github.com/go-identity-worker/internal/infrastructure/ses"
	"github.com/go-identity-worker/internal/infrastructure/smtp"
	"github.com/go-identity-worker/internal/infrastructure/sns"
)

// App is the assembled worker.
type App struct {
	Intake *intake.Handler
	// Verifier is nil when no ingress public key is configured.
	Verifier *jwtinfra.Verifier

	cache *existence.Cache
}

// New wires every component named by cfg. Optional components (consent gating, dead-letter
// sinks, bearer verification) are left out when their settings are empty.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := awscfg.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	endpoint := awscfg.Endpoint(cfg)

	dynamoClient := dynamo.NewClient(awsCfg, endpoint)
	if cfg.DynamoBootstrap {
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	}

	directory := cognito.NewDirectory(cognito.NewClient(awsCfg, endpoint), cfg.UserPoolID)
	cache := existence.New(directory, cfg.ExistenceCacheTTL, logger.With("component", "existence"))
	go cache.Start()

	notifyDeps := notify.ServiceDeps{
		From:           cfg.SESFromEmail,
		ReplyTo:        cfg.SESReplyToEmail,
		ProductName:    cfg.ProductName,
		CLI:            cfg.ProductCLI,
		LogoURL:        cfg.ProductLogoURL,
		SupportEmail:   cfg.SupportEmail,
		LoginURL:       cfg.LoginURL,
		AllowedDomains: cfg.AllowedLinkDomains,
		Logger:         logger.With("component", "notify"),
	}
	switch cfg.MailDriver {
	case "smtp":
		notifyDeps.Mailer = smtp.NewMailer(cfg)
	default:
		notifyDeps.Mailer = ses.NewMailer(ses.NewClient(awsCfg, endpoint), cfg.SESMaxSendRate)
	}
	if cfg.DynamoTables.Users != "" && cfg.DynamoTables.Consent != "" {
		notifyDeps.Consent = consent.NewChecker(
			dynamo.NewUserIndex(dynamoClient, cfg.DynamoTables.Users, cfg.DynamoTables.UsersEmailIndex),
			dynamo.NewConsentRepo(dynamoClient, cfg.DynamoTables.Consent),
			logger.With("component", "consent"),
		)
	} else {
		logger.Info("consent gating disabled, table names not configured")
	}
	notifier := notify.NewService(notifyDeps)

	provisionDeps := provision.ServiceDeps{
		Directory:        directory,
		Cache:            cache,
		Ledger:           dynamo.NewLedgerRepo(dynamoClient, cfg.DynamoTables.Ledger, cfg.LedgerRetention),
		Welcome:          notifier,
		Emitter:          eventbridge.NewEmitter(eventbridge.NewClient(awsCfg, endpoint)),
		BusName:          cfg.EventBusName,
		Source:           cfg.EventSource,
		CredentialLength: cfg.TempPasswordLength,
		EmailVerified:    cfg.EmailVerified,
		Lease:            cfg.ProvisionLease,
		Logger:           logger.With("component", "provision"),
	}

	routerDeps := deadletter.RouterDeps{
		MaxAttempts: cfg.MaxRedeliveries,
		MaxAge:      cfg.MaxEventAge,
		Logger:      logger.With("component", "deadletter"),
	}
	if cfg.DeadLetterBucket != "" {
		routerDeps.Archive = s3infra.NewArchive(s3infra.NewClient(awsCfg, endpoint), cfg.DeadLetterBucket)
	}
	if cfg.DeadLetterTopicARN != "" {
		routerDeps.Alert = sns.NewAlerter(sns.NewClient(awsCfg, endpoint), cfg.DeadLetterTopicARN)
	}

	a := &App{
		Intake: intake.NewHandler(intake.HandlerDeps{
			Provisioner: provision.NewService(provisionDeps),
			Dispatcher:  notifier,
			Router:      deadletter.NewRouter(routerDeps),
			Logger:      logger.With("component", "intake"),
		}),
		cache: cache,
	}

	if cfg.IngressJWTPublicKeyPath != "" {
		v, err := jwtinfra.NewVerifier(cfg.IngressJWTPublicKeyPath)
		if err != nil {
			cache.Stop()
			return nil, fmt.Errorf("ingress verifier: %w", err)
		}
		a.Verifier = v
	}
	return a, nil
}

// Close stops background work.
func (a *App) Close() {
	a.cache.Stop()
}

func validate(cfg *config.Config) error {
	var errs []error
	if cfg.UserPoolID == "" {
		errs = append(errs, errors.New("USER_POOL_ID is required"))
	}
	if cfg.EventBusName == "" {
		errs = append(errs, errors.New("EVENT_BUS_NAME is required"))
	}
	if cfg.DynamoTables.Ledger == "" {
		errs = append(errs, errors.New("LEDGER_TABLE_NAME is required"))
	}
	if cfg.MailDriver != "ses" && cfg.MailDriver != "smtp" {
		errs = append(errs, fmt.Errorf("MAIL_DRIVER %q is not one of ses, smtp", cfg.MailDriver))
	}
	return errors.Join(errs...)
}

// ValidateIngress rejects a production HTTP listener with neither an API key hash nor a
// bearer public key. Other stages may run open for local testing.
func ValidateIngress(cfg *config.Config) error {
	if cfg.IsProduction() && cfg.IngressAPIKeyHash == "" && cfg.IngressJWTPublicKeyPath == "" {
		return errors.New("INGRESS_API_KEY_HASH or INGRESS_JWT_PUBLIC_KEY_PATH is required when STAGE=prod")
	}
	return nil
}

// NewLogger returns the JSON logger every component writes to. LOG_LEVEL wins; otherwise
// dev logs at debug and other stages at info.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg.AppEnv == "dev" {
		level = slog.LevelDebug
	}
	if cfg.LogLevel != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err == nil {
			level = l
		}
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", cfg.ServiceName, "stage", cfg.AppEnv)
}
