package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-identity-worker/internal/application/existence"
	"github.com/go-identity-worker/internal/domain"
	"github.com/go-identity-worker/internal/pkg/credential"
	"github.com/go-identity-worker/internal/pkg/id"
)

// DefaultLease bounds how long one delivery may hold a business key.
const DefaultLease = 2 * time.Minute

const releaseTimeout = 5 * time.Second

// Outcome names the terminal state of one provisioning call.
type Outcome string

const (
	Created Outcome = "created"
	Updated Outcome = "updated"
	NoOp    Outcome = "noop"
	Resumed Outcome = "resumed"
	Linked  Outcome = "linked"
)

type Result struct {
	Outcome Outcome
	UserID  string
}

type Service interface {
	// Provision ensures exactly one identity exists for the event's subject e-mail.
	Provision(ctx context.Context, eventID string, d domain.Provisioning) (Result, error)
	// AttachPaymentMethod records a payment method on an existing identity.
	AttachPaymentMethod(ctx context.Context, eventID string, d domain.PaymentMethodAttached) (Result, error)
}

type directory interface {
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	Create(ctx context.Context, email string, attrs map[string]string, tempPassword string, suppressMessage bool) (*domain.Identity, error)
	SetPassword(ctx context.Context, email, password string, permanent bool) error
	UpdateAttributes(ctx context.Context, email string, attrs map[string]string) error
}

type existenceCache interface {
	Check(ctx context.Context, scopeKey, email string) existence.Result
	Record(scopeKey, email string, ident *domain.Identity)
	Forget(scopeKey, email string)
}

type ledgerStore interface {
	Claim(ctx context.Context, businessKey, token string, lease time.Duration) (domain.LedgerClaim, error)
	RecordCreated(ctx context.Context, businessKey, token, userID string) error
	Release(ctx context.Context, businessKey, token string) error
	MarkComplete(ctx context.Context, businessKey, userID, eventID string) error
}

type welcomeSender interface {
	SendWelcome(ctx context.Context, w domain.Welcome) error
}

type eventEmitter interface {
	Emit(ctx context.Context, busName, source, detailType string, detail any) error
}

type service struct {
	dir           directory
	cache         existenceCache
	ledger        ledgerStore
	welcome       welcomeSender
	emitter       eventEmitter
	busName       string
	source        string
	credLength    int
	emailVerified bool
	lease         time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// ServiceDeps wires the provisioner. Ledger is required: every Provision call claims the
// business key in it first. Lease defaults to DefaultLease.
type ServiceDeps struct {
	Directory        directory
	Cache            existenceCache
	Ledger           ledgerStore
	Welcome          welcomeSender
	Emitter          eventEmitter
	BusName          string
	Source           string
	CredentialLength int
	EmailVerified    bool
	Lease            time.Duration
	Now              func() time.Time
	Logger           *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	length := deps.CredentialLength
	if length < credential.MinLength {
		length = credential.MinLength
	}
	lease := deps.Lease
	if lease <= 0 {
		lease = DefaultLease
	}
	return &service{
		dir:           deps.Directory,
		cache:         deps.Cache,
		ledger:        deps.Ledger,
		welcome:       deps.Welcome,
		emitter:       deps.Emitter,
		busName:       deps.BusName,
		source:        deps.Source,
		credLength:    length,
		emailVerified: deps.EmailVerified,
		lease:         lease,
		now:           now,
		logger:        logger,
	}
}

// Provision claims the business key before any directory call. A key another delivery is
// working on is retryable; a completed key is a no-op. The claim is released on failure so
// redelivery can pick the work up.
func (s *service) Provision(ctx context.Context, eventID string, d domain.Provisioning) (Result, error) {
	key := d.BusinessKey()
	log := s.logger.With("event_id", eventID, "type", d.EventType(), "business_key", key)

	if s.ledger == nil {
		return Result{}, fmt.Errorf("provisioning ledger not configured: %w", domain.ErrFatalInvariant)
	}
	token := id.New()
	claim, err := s.ledger.Claim(ctx, key, token, s.lease)
	if err != nil {
		return Result{}, fmt.Errorf("claim business key: %w", domain.Transient(err))
	}
	switch claim.State {
	case domain.ClaimComplete:
		log.Info("provisioning already completed for business key", "outcome", NoOp, "user_id", claim.UserID)
		return Result{Outcome: NoOp, UserID: claim.UserID}, nil
	case domain.ClaimHeld:
		log.Info("business key claimed by another delivery")
		return Result{}, fmt.Errorf("provisioning of %s in progress: %w", key, domain.ErrTransient)
	}

	workCtx, cancel := context.WithTimeout(ctx, s.lease)
	defer cancel()
	res, err := s.provision(workCtx, eventID, d, token, claim.UserID, log)
	if err != nil {
		s.release(ctx, key, token, log)
		return Result{}, err
	}
	return res, nil
}

// provision runs under a held claim. recorded is the identity an earlier, interrupted
// attempt created for this key, if any.
func (s *service) provision(ctx context.Context, eventID string, d domain.Provisioning, token, recorded string, log *slog.Logger) (Result, error) {
	key := d.BusinessKey()
	email := d.SubjectEmail()

	check := s.cache.Check(ctx, key, email)
	log.Debug("existence checked", "state", check.State, "cached", check.Cached)
	if check.State == existence.Present {
		return s.reconcile(ctx, eventID, d, check.Identity, check.Cached, recorded, log)
	}

	password, err := credential.Generate(s.credLength)
	if err != nil {
		return Result{}, fmt.Errorf("generate credential: %v: %w", err, domain.ErrFatalInvariant)
	}
	ident, err := s.dir.Create(ctx, email, s.createAttributes(d), password, true)
	if errors.Is(err, domain.ErrAlreadyExists) {
		log.Info("identity created concurrently, reconciling", "existence", check.State)
		existing, ferr := s.dir.FindByEmail(ctx, email)
		if ferr != nil {
			return Result{}, fmt.Errorf("find after conflict: %w", domain.Transient(ferr))
		}
		if existing == nil {
			return Result{}, fmt.Errorf("identity reported existing but not found: %w", domain.ErrTransient)
		}
		if recorded != "" && existing.DirectoryID == recorded {
			// Stale negative lookup; the next delivery finds it and resumes.
			s.cache.Forget(key, email)
			return Result{}, fmt.Errorf("identity from interrupted attempt surfaced on create: %w", domain.ErrTransient)
		}
		s.cache.Record(key, email, existing)
		return s.reconcile(ctx, eventID, d, existing, false, "", log)
	}
	if err != nil {
		return Result{}, fmt.Errorf("create identity: %w", domain.Transient(err))
	}
	if ident == nil || ident.DirectoryID == "" {
		return Result{}, fmt.Errorf("directory returned no identifier for created identity: %w", domain.ErrFatalInvariant)
	}
	s.cache.Record(key, email, ident)
	if err := s.ledger.RecordCreated(ctx, key, token, ident.DirectoryID); err != nil {
		log.Warn("ledger checkpoint failed", "user_id", ident.DirectoryID, "err", err)
	}
	if err := s.dir.SetPassword(ctx, email, password, false); err != nil {
		return Result{}, fmt.Errorf("set temporary password: %w", domain.Transient(err))
	}

	if err := s.complete(ctx, eventID, d, ident, password, log); err != nil {
		return Result{}, err
	}
	log.Info("identity provisioned", "outcome", Created, "user_id", ident.DirectoryID)
	return Result{Outcome: Created, UserID: ident.DirectoryID}, nil
}

// reconcile handles a subject that already has an identity. It never creates and never
// touches the password of a user who has already signed in. Only the identity recorded by
// an interrupted attempt on this key is resumed.
func (s *service) reconcile(ctx context.Context, eventID string, d domain.Provisioning, ident *domain.Identity, cached bool, recorded string, log *slog.Logger) (Result, error) {
	email := d.SubjectEmail()

	if recorded != "" && ident.DirectoryID == recorded {
		if cached {
			fresh, err := s.dir.FindByEmail(ctx, email)
			if err != nil {
				return Result{}, fmt.Errorf("refresh identity: %w", domain.Transient(err))
			}
			if fresh != nil {
				ident = fresh
			}
		}
		if ident.Status == domain.StatusForceChangePassword && ident.DirectoryID == recorded {
			return s.resume(ctx, eventID, d, ident, log)
		}
	}

	updates := missingAttributes(d, ident)
	outcome := NoOp
	if len(updates) > 0 {
		if err := s.dir.UpdateAttributes(ctx, email, updates); err != nil {
			return Result{}, fmt.Errorf("update attributes: %w", domain.Transient(err))
		}
		s.cache.Forget(d.BusinessKey(), email)
		outcome = Updated
	}

	if tm, ok := d.(domain.TeamMemberActivated); ok {
		if err := s.emit(ctx, domain.OutIdentityLinked, domain.IdentityLinked{
			UserID:         ident.DirectoryID,
			UserName:       ident.Username,
			Name:           firstNonEmpty(ident.DisplayName, tm.SubjectName()),
			TeamID:         tm.TeamID,
			InvitationID:   tm.InvitationID,
			SubscriptionID: tm.SubscriptionID,
			Role:           tm.Role,
			TriggerEventID: eventID,
		}); err != nil {
			return Result{}, err
		}
		outcome = Linked
	}

	s.markComplete(ctx, d.BusinessKey(), ident.DirectoryID, eventID, log)
	log.Info("identity already exists", "outcome", outcome, "user_id", ident.DirectoryID, "updated_attributes", len(updates))
	return Result{Outcome: outcome, UserID: ident.DirectoryID}, nil
}

// resume finishes a provisioning attempt that created the identity but failed before the
// outbound event was published.
func (s *service) resume(ctx context.Context, eventID string, d domain.Provisioning, ident *domain.Identity, log *slog.Logger) (Result, error) {
	if ident.DirectoryID == "" {
		return Result{}, fmt.Errorf("existing identity has no identifier: %w", domain.ErrFatalInvariant)
	}
	password, err := credential.Generate(s.credLength)
	if err != nil {
		return Result{}, fmt.Errorf("generate credential: %v: %w", err, domain.ErrFatalInvariant)
	}
	if err := s.dir.SetPassword(ctx, d.SubjectEmail(), password, false); err != nil {
		return Result{}, fmt.Errorf("reset temporary password: %w", domain.Transient(err))
	}
	if err := s.complete(ctx, eventID, d, ident, password, log); err != nil {
		return Result{}, err
	}
	log.Info("interrupted provisioning resumed", "outcome", Resumed, "user_id", ident.DirectoryID)
	return Result{Outcome: Resumed, UserID: ident.DirectoryID}, nil
}

// complete runs the steps after the credential is set: welcome e-mail, outbound events,
// ledger. password goes nowhere but the welcome e-mail.
func (s *service) complete(ctx context.Context, eventID string, d domain.Provisioning, ident *domain.Identity, password string, log *slog.Logger) error {
	w := domain.Welcome{
		Email:        d.SubjectEmail(),
		Name:         d.SubjectName(),
		TempPassword: password,
	}
	switch v := d.(type) {
	case domain.LicenseCreated:
		w.LicenseKey = v.LicenseKey
		w.LicenseType = v.LicenseType
	case domain.TeamMemberActivated:
		w.TeamRole = v.Role
	}
	if err := s.welcome.SendWelcome(ctx, w); err != nil {
		return fmt.Errorf("welcome e-mail: %w", domain.Transient(err))
	}

	if err := s.emit(ctx, domain.OutIdentityCreated, s.identityCreated(eventID, d, ident)); err != nil {
		return err
	}
	if cc, ok := d.(domain.CustomerCreated); ok {
		if err := s.emit(ctx, domain.OutIdentitySubscriptionCreated, domain.IdentitySubscriptionCreated{
			UserID:               ident.DirectoryID,
			StripeSubscriptionID: cc.StripeSubscriptionID,
			StripeCustomerID:     cc.StripeCustomerID,
			CustomerEmail:        cc.SubjectEmail(),
			CustomerName:         cc.SubjectName(),
			CreatedAt:            cc.CreatedAt,
			Items:                cc.Items,
			Status:               cc.Status,
			CancelAtPeriodEnd:    cc.CancelAtPeriodEnd,
			TrialStart:           cc.TrialStart,
			TrialEnd:             cc.TrialEnd,
		}); err != nil {
			return err
		}
	}
	s.markComplete(ctx, d.BusinessKey(), ident.DirectoryID, eventID, log)
	return nil
}

func (s *service) identityCreated(eventID string, d domain.Provisioning, ident *domain.Identity) domain.IdentityCreated {
	_, ref := d.ExternalReference()
	out := domain.IdentityCreated{
		UserID:            ident.DirectoryID,
		UserName:          ident.Username,
		Name:              d.SubjectName(),
		SignUpDate:        s.now().UTC().Format(time.RFC3339),
		ExternalReference: ref,
		TriggerEventID:    eventID,
	}
	switch v := d.(type) {
	case domain.LicenseCreated:
		out.LicenseID = v.LicenseID
		out.LicenseType = v.LicenseType
		out.StripeCustomerID = v.StripeCustomerID
	case domain.CustomerCreated:
		out.StripeCustomerID = v.StripeCustomerID
		out.StripeSubscriptionID = v.StripeSubscriptionID
	case domain.TeamMemberActivated:
		out.TeamID = v.TeamID
		out.InvitationID = v.InvitationID
		out.SubscriptionID = v.SubscriptionID
		out.Role = v.Role
		out.Organization = v.TeamID
		out.IsTeamMember = true
	}
	return out
}

func (s *service) AttachPaymentMethod(ctx context.Context, eventID string, d domain.PaymentMethodAttached) (Result, error) {
	email := strings.ToLower(strings.TrimSpace(d.CustomerData.Email))
	log := s.logger.With("event_id", eventID, "type", d.EventType(), "stripe_customer_id", d.StripeCustomerID)

	ident, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("find identity for payment method: %w", domain.Transient(err))
	}
	if ident == nil {
		// The creating event may still be in flight; redelivery gives it time to land.
		return Result{}, fmt.Errorf("no identity for payment customer: %w", domain.Transient(domain.ErrNotFound))
	}

	attachedAt := s.now().UTC()
	if d.CreatedAt > 0 {
		attachedAt = time.Unix(d.CreatedAt, 0).UTC()
	}
	stamp := attachedAt.Format(time.RFC3339)
	if err := s.dir.UpdateAttributes(ctx, email, map[string]string{
		domain.AttrPaymentMethodID:         d.StripePaymentMethodID,
		domain.AttrPaymentMethodType:       d.PaymentMethodType,
		domain.AttrPaymentMethodAttachedAt: stamp,
	}); err != nil {
		return Result{}, fmt.Errorf("update payment attributes: %w", domain.Transient(err))
	}
	if err := s.emit(ctx, domain.OutIdentityPaymentMethodAttached, domain.IdentityPaymentMethodAttached{
		UserID:                ident.DirectoryID,
		StripeCustomerID:      d.StripeCustomerID,
		StripePaymentMethodID: d.StripePaymentMethodID,
		PaymentMethodType:     d.PaymentMethodType,
		AttachedAt:            stamp,
		TriggerEventID:        eventID,
	}); err != nil {
		return Result{}, err
	}
	log.Info("payment method recorded", "outcome", Updated, "user_id", ident.DirectoryID)
	return Result{Outcome: Updated, UserID: ident.DirectoryID}, nil
}

func (s *service) emit(ctx context.Context, detailType string, detail any) error {
	if err := s.emitter.Emit(ctx, s.busName, s.source, detailType, detail); err != nil {
		return fmt.Errorf("emit %s: %w", detailType, domain.Transient(err))
	}
	return nil
}

func (s *service) release(ctx context.Context, key, token string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.ledger.Release(ctx, key, token); err != nil {
		log.Warn("ledger release failed, lease will expire", "err", err)
	}
}

func (s *service) markComplete(ctx context.Context, key, userID, eventID string, log *slog.Logger) {
	if err := s.ledger.MarkComplete(ctx, key, userID, eventID); err != nil {
		log.Warn("ledger update failed", "err", err)
	}
}

func (s *service) createAttributes(d domain.Provisioning) map[string]string {
	attr, ref := d.ExternalReference()
	attrs := map[string]string{
		domain.AttrEmail:         d.SubjectEmail(),
		domain.AttrEmailVerified: strconv.FormatBool(s.emailVerified),
		attr:                     ref,
	}
	if name := d.SubjectName(); name != "" {
		attrs[domain.AttrName] = name
	}
	if lc, ok := d.(domain.LicenseCreated); ok {
		attrs[domain.AttrSubscriptionTier] = lc.LicenseType
		if lc.StripeCustomerID != "" {
			attrs[domain.AttrStripeCustomerID] = lc.StripeCustomerID
		}
	}
	return attrs
}

// missingAttributes returns the attributes this event would have set on creation that the
// existing identity does not carry yet. Set values are never overwritten.
func missingAttributes(d domain.Provisioning, ident *domain.Identity) map[string]string {
	updates := map[string]string{}
	if name := d.SubjectName(); name != "" && ident.DisplayName == "" && ident.Attr(domain.AttrName) == "" {
		updates[domain.AttrName] = name
	}
	attr, ref := d.ExternalReference()
	if ident.Attr(attr) == "" {
		updates[attr] = ref
	}
	if lc, ok := d.(domain.LicenseCreated); ok {
		if ident.Attr(domain.AttrSubscriptionTier) == "" {
			updates[domain.AttrSubscriptionTier] = lc.LicenseType
		}
		if lc.StripeCustomerID != "" && ident.Attr(domain.AttrStripeCustomerID) == "" {
			updates[domain.AttrStripeCustomerID] = lc.StripeCustomerID
		}
	}
	return updates
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
