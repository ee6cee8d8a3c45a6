package domain

// Outbound detail types published by this worker.
const (
	OutIdentityCreated               = "IdentityCreated"
	OutIdentityLinked                = "IdentityLinked"
	OutIdentitySubscriptionCreated   = "IdentitySubscriptionCreated"
	OutIdentityPaymentMethodAttached = "IdentityPaymentMethodAttached"
)

// IdentityCreated advertises a newly provisioned identity. Downstream services link
// UserID to their own records through ExternalReference and the Stripe ids.
type IdentityCreated struct {
	UserID               string `json:"userId"`
	UserName             string `json:"userName"`
	Name                 string `json:"name,omitempty"`
	SignUpDate           string `json:"signUpDate"`
	ExternalReference    string `json:"externalReference"`
	LicenseID            string `json:"licenseId,omitempty"`
	LicenseType          string `json:"licenseType,omitempty"`
	StripeCustomerID     string `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string `json:"stripeSubscriptionId,omitempty"`
	TeamID               string `json:"teamId,omitempty"`
	InvitationID         string `json:"invitationId,omitempty"`
	SubscriptionID       string `json:"subscriptionId,omitempty"`
	Role                 string `json:"role,omitempty"`
	Organization         string `json:"organization"`
	IsTeamMember         bool   `json:"isTeamMember"`
	TriggerEventID       string `json:"triggerEventId"`
}

// IdentityLinked is published when a team invitation is accepted by an e-mail that
// already has an identity, so the team service can attach the existing account.
type IdentityLinked struct {
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	Name           string `json:"name,omitempty"`
	TeamID         string `json:"teamId"`
	InvitationID   string `json:"invitationId"`
	SubscriptionID string `json:"subscriptionId"`
	Role           string `json:"role"`
	TriggerEventID string `json:"triggerEventId"`
}

type IdentitySubscriptionCreated struct {
	UserID               string             `json:"userId"`
	StripeSubscriptionID string             `json:"stripeSubscriptionId,omitempty"`
	StripeCustomerID     string             `json:"stripeCustomerId"`
	CustomerEmail        string             `json:"customerEmail"`
	CustomerName         string             `json:"customerName,omitempty"`
	CreatedAt            int64              `json:"createdAt,omitempty"`
	Items                []SubscriptionItem `json:"items,omitempty"`
	Status               string             `json:"status,omitempty"`
	CancelAtPeriodEnd    bool               `json:"cancelAtPeriodEnd"`
	TrialStart           int64              `json:"trialStart,omitempty"`
	TrialEnd             int64              `json:"trialEnd,omitempty"`
}

type IdentityPaymentMethodAttached struct {
	UserID                string `json:"userId"`
	StripeCustomerID      string `json:"stripeCustomerId"`
	StripePaymentMethodID string `json:"stripePaymentMethodId"`
	PaymentMethodType     string `json:"paymentMethodType"`
	AttachedAt            string `json:"attachedAt"`
	TriggerEventID        string `json:"triggerEventId"`
}
