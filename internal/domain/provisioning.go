package domain

import "strings"

type LicenseCreated struct {
	LicenseID        string `json:"licenseId" validate:"required"`
	LicenseKey       string `json:"licenseKey" validate:"required"`
	LicenseType      string `json:"licenseType" validate:"required"`
	CustomerEmail    string `json:"customerEmail" validate:"required,email"`
	CustomerName     string `json:"customerName,omitempty"`
	StripeCustomerID string `json:"stripeCustomerId,omitempty"`
	CreatedAt        int64  `json:"createdAt,omitempty" validate:"gte=0"`
}

func (LicenseCreated) EventType() EventType { return EventLicenseCreated }

func (d LicenseCreated) BusinessKey() string  { return "license:" + d.LicenseID }
func (d LicenseCreated) SubjectEmail() string { return normalizeEmail(d.CustomerEmail) }
func (d LicenseCreated) SubjectName() string  { return strings.TrimSpace(d.CustomerName) }
func (d LicenseCreated) ExternalReference() (string, string) {
	return AttrLicenseID, d.LicenseID
}

// SubscriptionItem is one line of the subscription that created the customer.
type SubscriptionItem struct {
	ItemID             string         `json:"itemId"`
	ProductID          string         `json:"productId"`
	ProductName        string         `json:"productName"`
	ProductMetadata    map[string]any `json:"productMetadata,omitempty"`
	PriceID            string         `json:"priceId"`
	PriceData          map[string]any `json:"priceData,omitempty"`
	Quantity           int            `json:"quantity" validate:"gte=0"`
	ExpiresAt          int64          `json:"expiresAt,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	IsTeamSubscription bool           `json:"isTeamSubscription,omitempty"`
}

type CustomerCreated struct {
	StripeCustomerID     string             `json:"stripeCustomerId" validate:"required"`
	StripeSubscriptionID string             `json:"stripeSubscriptionId,omitempty"`
	CustomerEmail        string             `json:"customerEmail" validate:"required,email"`
	CustomerName         string             `json:"customerName,omitempty"`
	Items                []SubscriptionItem `json:"items,omitempty" validate:"dive"`
	Status               string             `json:"status,omitempty"`
	CreatedAt            int64              `json:"createdAt,omitempty" validate:"gte=0"`
	CancelAtPeriodEnd    bool               `json:"cancelAtPeriodEnd,omitempty"`
	TrialStart           int64              `json:"trialStart,omitempty"`
	TrialEnd             int64              `json:"trialEnd,omitempty"`
	Metadata             map[string]any     `json:"metadata,omitempty"`
}

func (CustomerCreated) EventType() EventType { return EventCustomerCreated }

func (d CustomerCreated) BusinessKey() string  { return "customer:" + d.StripeCustomerID }
func (d CustomerCreated) SubjectEmail() string { return normalizeEmail(d.CustomerEmail) }
func (d CustomerCreated) SubjectName() string  { return strings.TrimSpace(d.CustomerName) }
func (d CustomerCreated) ExternalReference() (string, string) {
	return AttrStripeCustomerID, d.StripeCustomerID
}

type TeamMemberActivated struct {
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name,omitempty"`
	TeamID         string `json:"teamId" validate:"required"`
	SubscriptionID string `json:"subscriptionId" validate:"required"`
	InvitationID   string `json:"invitationId" validate:"required"`
	Role           string `json:"role" validate:"required"`
	ActivatedAt    int64  `json:"activatedAt,omitempty" validate:"gte=0"`
}

func (TeamMemberActivated) EventType() EventType { return EventTeamMemberActivated }

func (d TeamMemberActivated) BusinessKey() string {
	return "team:" + d.TeamID + ":" + d.InvitationID
}
func (d TeamMemberActivated) SubjectEmail() string { return normalizeEmail(d.Email) }
func (d TeamMemberActivated) SubjectName() string  { return strings.TrimSpace(d.Name) }
func (d TeamMemberActivated) ExternalReference() (string, string) {
	return AttrTeamID, d.TeamID
}

type PaymentCustomer struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name,omitempty"`
}

// PaymentMethodAttached updates an existing identity; it never creates one.
type PaymentMethodAttached struct {
	StripeCustomerID      string          `json:"stripeCustomerId" validate:"required"`
	StripePaymentMethodID string          `json:"stripePaymentMethodId" validate:"required"`
	PaymentMethodType     string          `json:"paymentMethodType" validate:"required"`
	CreatedAt             int64           `json:"createdAt,omitempty" validate:"gte=0"`
	CustomerData          PaymentCustomer `json:"customerData"`
}

func (PaymentMethodAttached) EventType() EventType { return EventPaymentMethodAttached }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
