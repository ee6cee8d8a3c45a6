package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-identity-worker/internal/domain"
	"github.com/go-identity-worker/internal/pkg/validate"
)

// defaulter is implemented by details that fill optional fields after decoding.
type defaulter interface {
	ApplyDefaults()
}

type decodeFunc func(raw json.RawMessage) (domain.Detail, error)

var registry = map[domain.EventType]decodeFunc{
	domain.EventLicenseCreated:        decodeAs[domain.LicenseCreated],
	domain.EventCustomerCreated:       decodeAs[domain.CustomerCreated],
	domain.EventTeamMemberActivated:   decodeAs[domain.TeamMemberActivated],
	domain.EventPaymentMethodAttached: decodeAs[domain.PaymentMethodAttached],

	domain.EventTrialWillEnd:                decodeAs[domain.TrialWillEnd],
	domain.EventTrialExpired:                decodeAs[domain.TrialExpired],
	domain.EventPaymentFailed:               decodeAs[domain.PaymentFailed],
	domain.EventQuotaWarning:                decodeAs[domain.QuotaWarning],
	domain.EventQuotaExceeded:               decodeAs[domain.QuotaExceeded],
	domain.EventSubscriptionCancelled:       decodeAs[domain.SubscriptionCancelled],
	domain.EventSubscriptionRenewed:         decodeAs[domain.SubscriptionRenewed],
	domain.EventSubscriptionRenewalReminder: decodeAs[domain.SubscriptionRenewalReminder],
	domain.EventLicenseUpgraded:             decodeAs[domain.LicenseUpgraded],
	domain.EventMonthlyUsageSummary:         decodeAs[domain.MonthlyUsageSummary],
	domain.EventFeatureAnnouncement:         decodeAs[domain.FeatureAnnouncement],
	domain.EventFeedbackRequest:             decodeAs[domain.FeedbackRequest],
	domain.EventReEngagement:                decodeAs[domain.ReEngagement],
}

// Supported reports whether detailType has a registered schema.
func Supported(detailType domain.EventType) bool {
	_, ok := registry[detailType]
	return ok
}

// Parse validates env and returns its typed detail. No other component sees a detail
// that has not passed through here. Every failure wraps domain.ErrInvalidPayload.
func Parse(env domain.Envelope) (domain.Detail, error) {
	if env.ID == "" {
		return nil, fmt.Errorf("envelope id is required: %w", domain.ErrInvalidPayload)
	}
	decode, ok := registry[env.DetailType]
	if !ok {
		return nil, fmt.Errorf("unsupported detail-type %q: %w", env.DetailType, domain.ErrInvalidPayload)
	}
	raw := bytes.TrimSpace(env.Detail)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%s: detail must be a JSON object: %w", env.DetailType, domain.ErrInvalidPayload)
	}
	d, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", env.DetailType, err, domain.ErrInvalidPayload)
	}
	return d, nil
}

func decodeAs[T domain.Detail](raw json.RawMessage) (domain.Detail, error) {
	var d T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if df, ok := any(&d).(defaulter); ok {
		df.ApplyDefaults()
	}
	if err := validate.Struct(d); err != nil {
		return nil, err
	}
	return d, nil
}
