package domain

type ConsentCategory string

const (
	CategoryTransactional    ConsentCategory = ""
	CategoryBillingReminders ConsentCategory = "billing_reminders"
	CategoryUsageAlerts      ConsentCategory = "usage_alerts"
	CategoryProductUpdates   ConsentCategory = "product_updates"
	CategoryMonthlyReports   ConsentCategory = "monthly_reports"
	CategoryMarketingEmails  ConsentCategory = "marketing_emails"
)

// consentDefaults apply when a recipient has no explicit record for the category.
var consentDefaults = map[ConsentCategory]bool{
	CategoryBillingReminders: true,
	CategoryUsageAlerts:      true,
	CategoryProductUpdates:   true,
	CategoryMonthlyReports:   false,
	CategoryMarketingEmails:  false,
}

// Default returns the category's opt-in default. Unknown categories are denied.
func (c ConsentCategory) Default() bool {
	return consentDefaults[c]
}

// ConsentRecord is the newest consent decision stored for a user and category.
type ConsentRecord struct {
	UserID      string `dynamodbav:"userId"`
	ConsentType string `dynamodbav:"consentType"`
	Granted     bool   `dynamodbav:"granted"`
	WithdrawnAt string `dynamodbav:"withdrawnAt"`
	Timestamp   string `dynamodbav:"timestamp"`
}

// Active reports whether the record still grants consent.
func (r ConsentRecord) Active() bool {
	return r.Granted && r.WithdrawnAt == ""
}
