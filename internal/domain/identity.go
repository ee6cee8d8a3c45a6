package domain

// IdentityStatus mirrors the directory's account status.
type IdentityStatus string

const (
	StatusForceChangePassword IdentityStatus = "FORCE_CHANGE_PASSWORD"
	StatusConfirmed           IdentityStatus = "CONFIRMED"
)

// Directory attribute names.
const (
	AttrEmail                   = "email"
	AttrEmailVerified           = "email_verified"
	AttrName                    = "name"
	AttrLicenseID               = "custom:licenseId"
	AttrStripeCustomerID        = "custom:stripeCustomerId"
	AttrTeamID                  = "custom:teamId"
	AttrSubscriptionTier        = "custom:subscriptionTier"
	AttrPaymentMethodID         = "custom:payment_method_id"
	AttrPaymentMethodType       = "custom:payment_method_type"
	AttrPaymentMethodAttachedAt = "custom:payment_method_attached_at"
)

// Identity is an account in the identity directory. DirectoryID is the directory's stable
// identifier (the Cognito sub) and is empty only for a broken directory response.
type Identity struct {
	DirectoryID string
	Username    string
	Email       string
	DisplayName string
	Status      IdentityStatus
	Attributes  map[string]string
}

// Attr returns the named attribute or "" when unset.
func (i *Identity) Attr(name string) string {
	if i == nil || i.Attributes == nil {
		return ""
	}
	return i.Attributes[name]
}
