package domain

// Addressee is embedded by every notification detail.
type Addressee struct {
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	CustomerName  string `json:"customerName,omitempty"`
}

func (a Addressee) Recipient() string     { return a.CustomerEmail }
func (a Addressee) RecipientName() string { return a.CustomerName }

// Transactional is embedded by notifications that are never consent-gated.
type Transactional struct{}

func (Transactional) Category() ConsentCategory { return CategoryTransactional }

type TrialWillEnd struct {
	Addressee
	Transactional
	StripeSubscriptionID string `json:"stripeSubscriptionId" validate:"required"`
	StripeCustomerID     string `json:"stripeCustomerId" validate:"required"`
	TrialEnd             int64  `json:"trialEnd" validate:"required,gt=0"`
	UpgradeURL           string `json:"upgradeUrl" validate:"required"`
}

func (TrialWillEnd) EventType() EventType { return EventTrialWillEnd }

type TrialExpired struct {
	Addressee
	Transactional
	StripeSubscriptionID string `json:"stripeSubscriptionId" validate:"required"`
	StripeCustomerID     string `json:"stripeCustomerId" validate:"required"`
	UpgradeURL           string `json:"upgradeUrl" validate:"required"`
}

func (TrialExpired) EventType() EventType { return EventTrialExpired }

type PaymentFailed struct {
	Addressee
	Transactional
	StripeCustomerID string `json:"stripeCustomerId" validate:"required"`
	FailureReason    string `json:"failureReason,omitempty"`
	RetryDate        string `json:"retryDate,omitempty"`
	UpdatePaymentURL string `json:"updatePaymentUrl" validate:"required"`
}

func (PaymentFailed) EventType() EventType { return EventPaymentFailed }

type QuotaWarning struct {
	Addressee
	UsedResources  *int     `json:"usedResources" validate:"required,gte=0"`
	TotalResources int      `json:"totalResources" validate:"required,gt=0"`
	PercentUsed    *float64 `json:"percentUsed" validate:"required,gte=0,lte=100"`
	ResetDate      string   `json:"resetDate" validate:"required"`
	UpgradeURL     string   `json:"upgradeUrl" validate:"required"`
}

func (QuotaWarning) EventType() EventType      { return EventQuotaWarning }
func (QuotaWarning) Category() ConsentCategory { return CategoryUsageAlerts }

type QuotaExceeded struct {
	Addressee
	Transactional
	UsedResources  *int   `json:"usedResources" validate:"required,gte=0"`
	TotalResources int    `json:"totalResources" validate:"required,gt=0"`
	ResetDate      string `json:"resetDate" validate:"required"`
	UpgradeURL     string `json:"upgradeUrl" validate:"required"`
}

func (QuotaExceeded) EventType() EventType { return EventQuotaExceeded }

type SubscriptionCancelled struct {
	Addressee
	Transactional
	StripeSubscriptionID     string `json:"stripeSubscriptionId" validate:"required"`
	StripeCustomerID         string `json:"stripeCustomerId" validate:"required"`
	AccessEndDate            string `json:"accessEndDate" validate:"required"`
	ReactivateURL            string `json:"reactivateUrl" validate:"required"`
	RefundProcessed          bool   `json:"refundProcessed,omitempty"`
	RefundAmount             int64  `json:"refundAmount,omitempty"` // minor units
	RefundCurrency           string `json:"refundCurrency,omitempty"`
	OverageAmountNotRefunded int64  `json:"overageAmountNotRefunded,omitempty"`
	CancellationType         string `json:"cancellationType,omitempty" validate:"omitempty,oneof=user_cancelled trial_expired refund_requested payment_failed"`
}

func (SubscriptionCancelled) EventType() EventType { return EventSubscriptionCancelled }

type SubscriptionRenewed struct {
	Addressee
	StripeSubscriptionID string `json:"stripeSubscriptionId" validate:"required"`
	StripeCustomerID     string `json:"stripeCustomerId" validate:"required"`
	PlanName             string `json:"planName" validate:"required"`
	Amount               string `json:"amount" validate:"required"`
	Currency             string `json:"currency" validate:"required"`
	NextRenewalDate      string `json:"nextRenewalDate" validate:"required"`
	DashboardURL         string `json:"dashboardUrl" validate:"required"`
}

func (SubscriptionRenewed) EventType() EventType      { return EventSubscriptionRenewed }
func (SubscriptionRenewed) Category() ConsentCategory { return CategoryBillingReminders }
func (d *SubscriptionRenewed) ApplyDefaults() {
	if d.Currency == "" {
		d.Currency = "$"
	}
}

type SubscriptionRenewalReminder struct {
	Addressee
	StripeSubscriptionID  string `json:"stripeSubscriptionId" validate:"required"`
	StripeCustomerID      string `json:"stripeCustomerId" validate:"required"`
	RenewalDate           string `json:"renewalDate" validate:"required"`
	PlanName              string `json:"planName" validate:"required"`
	Amount                string `json:"amount" validate:"required"`
	Currency              string `json:"currency" validate:"required"`
	ManageSubscriptionURL string `json:"manageSubscriptionUrl" validate:"required"`
}

func (SubscriptionRenewalReminder) EventType() EventType {
	return EventSubscriptionRenewalReminder
}
func (SubscriptionRenewalReminder) Category() ConsentCategory { return CategoryBillingReminders }
func (d *SubscriptionRenewalReminder) ApplyDefaults() {
	if d.Currency == "" {
		d.Currency = "$"
	}
}

type LicenseUpgraded struct {
	Addressee
	Transactional
	StripeSubscriptionID string `json:"stripeSubscriptionId" validate:"required"`
	StripeCustomerID     string `json:"stripeCustomerId" validate:"required"`
	ProductName          string `json:"productName" validate:"required"`
	UpgradeType          string `json:"upgradeType" validate:"required"`
	UpgradedAt           int64  `json:"upgradedAt" validate:"required,gt=0"`
}

func (LicenseUpgraded) EventType() EventType { return EventLicenseUpgraded }

type ServiceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count" validate:"gte=0"`
}

type UsageSummary struct {
	TotalScans     *int           `json:"totalScans" validate:"required,gte=0"`
	TotalResources *int           `json:"totalResources" validate:"required,gte=0"`
	IssuesFound    *int           `json:"issuesFound" validate:"required,gte=0"`
	CriticalIssues *int           `json:"criticalIssues" validate:"required,gte=0"`
	HighIssues     *int           `json:"highIssues" validate:"required,gte=0"`
	MediumIssues   *int           `json:"mediumIssues" validate:"required,gte=0"`
	LowIssues      *int           `json:"lowIssues" validate:"required,gte=0"`
	TopServices    []ServiceCount `json:"topServices" validate:"required,dive"`
}

type MonthlyUsageSummary struct {
	Addressee
	Month        string       `json:"month" validate:"required"`
	Year         string       `json:"year" validate:"required"`
	Usage        UsageSummary `json:"usage"`
	DashboardURL string       `json:"dashboardUrl" validate:"required"`
}

func (MonthlyUsageSummary) EventType() EventType      { return EventMonthlyUsageSummary }
func (MonthlyUsageSummary) Category() ConsentCategory { return CategoryMonthlyReports }

type FeatureItem struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type FeatureAnnouncement struct {
	Addressee
	AnnouncementTitle       string        `json:"announcementTitle" validate:"required"`
	AnnouncementDescription string        `json:"announcementDescription" validate:"required"`
	Features                []FeatureItem `json:"features" validate:"required,min=1,dive"`
	LearnMoreURL            string        `json:"learnMoreUrl" validate:"required"`
}

func (FeatureAnnouncement) EventType() EventType      { return EventFeatureAnnouncement }
func (FeatureAnnouncement) Category() ConsentCategory { return CategoryProductUpdates }

type FeedbackRequest struct {
	Addressee
	TotalScans  *int   `json:"totalScans" validate:"required,gte=0"`
	FeedbackURL string `json:"feedbackUrl" validate:"required"`
}

func (FeedbackRequest) EventType() EventType      { return EventFeedbackRequest }
func (FeedbackRequest) Category() ConsentCategory { return CategoryProductUpdates }

type ReEngagement struct {
	Addressee
	DaysSinceLastScan int    `json:"daysSinceLastScan" validate:"required,gt=0"`
	DashboardURL      string `json:"dashboardUrl" validate:"required"`
}

func (ReEngagement) EventType() EventType      { return EventReEngagement }
func (ReEngagement) Category() ConsentCategory { return CategoryMonthlyReports }
