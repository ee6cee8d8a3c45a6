package domain

import (
	"encoding/json"
	"time"
)

type EventType string

// Provisioning events.
const (
	EventLicenseCreated        EventType = "LicenseCreated"
	EventCustomerCreated       EventType = "CustomerCreated"
	EventTeamMemberActivated   EventType = "TeamMemberActivated"
	EventPaymentMethodAttached EventType = "PaymentMethodAttached"
)

// Notification events.
const (
	EventTrialWillEnd                EventType = "SendTrialWillEndEmail"
	EventTrialExpired                EventType = "SendTrialExpiredEmail"
	EventPaymentFailed               EventType = "SendPaymentFailedEmail"
	EventQuotaWarning                EventType = "SendQuotaWarningEmail"
	EventQuotaExceeded               EventType = "SendQuotaExceededEmail"
	EventSubscriptionCancelled       EventType = "SendSubscriptionCancelledEmail"
	EventSubscriptionRenewed         EventType = "SendSubscriptionRenewedEmail"
	EventSubscriptionRenewalReminder EventType = "SendSubscriptionRenewalReminderEmail"
	EventLicenseUpgraded             EventType = "SendLicenseUpgradedEmail"
	EventMonthlyUsageSummary         EventType = "SendMonthlyUsageSummaryEmail"
	EventFeatureAnnouncement         EventType = "SendFeatureAnnouncementEmail"
	EventFeedbackRequest             EventType = "SendFeedbackRequestEmail"
	EventReEngagement                EventType = "SendReEngagementEmail"
)

// Envelope is an inbound bus event before its detail has been validated.
type Envelope struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	DetailType EventType       `json:"detail-type"`
	Time       time.Time       `json:"time"`
	Detail     json.RawMessage `json:"detail"`
}

// Detail is a validated, type-specific event payload.
type Detail interface {
	EventType() EventType
}

// Provisioning is implemented by details that ensure an identity exists.
type Provisioning interface {
	Detail
	// BusinessKey identifies the triggering business entity; duplicate suppression keys off it.
	BusinessKey() string
	SubjectEmail() string
	SubjectName() string
	// ExternalReference returns the custom attribute linking the identity back to the entity.
	ExternalReference() (attr, value string)
}

// Notification is implemented by details that result in one outbound e-mail.
type Notification interface {
	Detail
	Recipient() string
	RecipientName() string
	// Category returns the consent category gating the send, or CategoryTransactional.
	Category() ConsentCategory
}
