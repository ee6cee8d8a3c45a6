package notify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-identity-worker/internal/domain"
	"github.com/go-identity-worker/internal/render"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func (s *service) greeting(n domain.Notification) string {
	return "Hi " + DisplayName(n.RecipientName(), n.Recipient()) + ","
}

// message builds the layout for every notification type. Adding a detail type without
// a case here is rejected as a payload error rather than sending an empty e-mail.
func (s *service) message(n domain.Notification) (render.Message, error) {
	switch d := n.(type) {
	case domain.TrialWillEnd:
		return render.Message{
			Subject:    fmt.Sprintf("Your %s trial ends soon", s.product),
			Preheader:  "Keep your AI-powered analysis running.",
			Heading:    "Your trial ends soon",
			Greeting:   s.greeting(d),
			Paragraphs: []string{fmt.Sprintf("Just a reminder that your %s trial ends on %s.", s.product, unixDate(d.TrialEnd))},
			Action:     &render.Action{Label: "Upgrade now", URL: s.url(d.UpgradeURL)},
		}, nil

	case domain.TrialExpired:
		return render.Message{
			Subject:  fmt.Sprintf("Your %s trial has ended", s.product),
			Heading:  "Your trial has ended",
			Greeting: s.greeting(d),
			Paragraphs: []string{
				fmt.Sprintf("Your %s trial has ended.", s.product),
				"During your trial, you had access to AI-powered analysis and all premium features. Don't lose access to these valuable insights!",
			},
			Action: &render.Action{Label: "Upgrade now", URL: s.url(d.UpgradeURL)},
		}, nil

	case domain.PaymentFailed:
		reason := d.FailureReason
		if reason == "" {
			reason = "Your payment could not be processed"
		}
		facts := []render.Fact{{Label: "Reason", Value: reason}}
		if d.RetryDate != "" {
			facts = append(facts, render.Fact{Label: "Next attempt", Value: d.RetryDate})
		}
		return render.Message{
			Subject:    fmt.Sprintf("Action Required: Payment Failed - %s", s.product),
			Heading:    "Payment failed",
			Greeting:   s.greeting(d),
			Paragraphs: []string{fmt.Sprintf("We were unable to process your payment for %s.", s.product)},
			Callout:    "Please update your payment method to keep your subscription active.",
			Facts:      facts,
			Action:     &render.Action{Label: "Update payment method", URL: s.url(d.UpdatePaymentURL)},
		}, nil

	case domain.QuotaWarning:
		pct := int(math.Round(*d.PercentUsed))
		return render.Message{
			Subject:  fmt.Sprintf("You've used %d%% of your %s quota", pct, s.product),
			Heading:  "You're approaching your quota",
			Greeting: s.greeting(d),
			Paragraphs: []string{
				printer.Sprintf("You've used %d of your %d AI analysis resources (%d%%).", *d.UsedResources, d.TotalResources, pct),
				fmt.Sprintf("Your quota will reset on %s.", d.ResetDate),
			},
			Action: &render.Action{Label: "Upgrade for unlimited access", URL: s.url(d.UpgradeURL)},
		}, nil

	case domain.QuotaExceeded:
		return render.Message{
			Subject:  fmt.Sprintf("Quota Limit Reached - %s", s.product),
			Heading:  "You've reached your quota",
			Greeting: s.greeting(d),
			Paragraphs: []string{
				printer.Sprintf("You've reached your monthly AI analysis quota of %d resources.", d.TotalResources),
				fmt.Sprintf("Your quota will reset on %s. Until then static analysis continues to work, while AI-powered recommendations are paused.", d.ResetDate),
			},
			Facts: []render.Fact{
				{Label: "Used", Value: printer.Sprintf("%d", *d.UsedResources)},
				{Label: "Quota", Value: printer.Sprintf("%d", d.TotalResources)},
			},
			Action: &render.Action{Label: "Upgrade for unlimited access", URL: s.url(d.UpgradeURL)},
		}, nil

	case domain.SubscriptionCancelled:
		paras := []string{
			fmt.Sprintf("Your %s subscription has been cancelled.", s.product),
			fmt.Sprintf("You'll continue to have access until %s. After that, you'll be limited to the free tier features.", d.AccessEndDate),
		}
		if d.RefundProcessed && d.RefundAmount > 0 {
			paras = append(paras, fmt.Sprintf("A refund of %s has been issued to your original payment method.", money(d.RefundAmount, d.RefundCurrency)))
		}
		if d.OverageAmountNotRefunded > 0 {
			paras = append(paras, fmt.Sprintf("Overage charges of %s were not refunded.", money(d.OverageAmountNotRefunded, d.RefundCurrency)))
		}
		return render.Message{
			Subject:    fmt.Sprintf("Your %s subscription has been cancelled", s.product),
			Heading:    "Subscription cancelled",
			Greeting:   s.greeting(d),
			Paragraphs: paras,
			Action:     &render.Action{Label: "Reactivate", URL: s.url(d.ReactivateURL)},
		}, nil

	case domain.SubscriptionRenewed:
		return render.Message{
			Subject:    fmt.Sprintf("Payment Received - %s", s.product),
			Heading:    "Thank you for your payment",
			Greeting:   s.greeting(d),
			Paragraphs: []string{fmt.Sprintf("Thank you for your continued support! Your %s %s subscription has been renewed.", s.product, d.PlanName)},
			Facts: []render.Fact{
				{Label: "Amount", Value: d.Currency + d.Amount},
				{Label: "Next renewal date", Value: d.NextRenewalDate},
			},
			Action: &render.Action{Label: "Go to dashboard", URL: s.url(d.DashboardURL)},
		}, nil

	case domain.SubscriptionRenewalReminder:
		return render.Message{
			Subject:  fmt.Sprintf("Your %s subscription renews soon", s.product),
			Heading:  "Your subscription renews soon",
			Greeting: s.greeting(d),
			Paragraphs: []string{
				fmt.Sprintf("Your %s %s subscription will automatically renew on %s for %s%s.", s.product, d.PlanName, d.RenewalDate, d.Currency, d.Amount),
				"No action is needed. Your subscription will continue seamlessly.",
			},
			Action: &render.Action{Label: "Manage subscription", URL: s.url(d.ManageSubscriptionURL)},
		}, nil

	case domain.LicenseUpgraded:
		return render.Message{
			Subject:  fmt.Sprintf("Your %s Upgrade is Complete!", s.product),
			Heading:  "Upgrade complete",
			Greeting: s.greeting(d),
			Paragraphs: []string{
				fmt.Sprintf("Your %s upgrade is complete!", s.product),
				fmt.Sprintf("Your license has been automatically activated. You can now keep using %s with no trial limits.", s.product),
			},
			Facts: []render.Fact{
				{Label: "Plan", Value: d.ProductName},
				{Label: "Upgrade", Value: d.UpgradeType},
				{Label: "Activated", Value: unixDate(d.UpgradedAt)},
				{Label: "Status", Value: "Active"},
			},
			Action: &render.Action{Label: "Go to dashboard", URL: s.url(s.loginURL)},
		}, nil

	case domain.MonthlyUsageSummary:
		u := d.Usage
		facts := []render.Fact{
			{Label: "Scans run", Value: printer.Sprintf("%d", *u.TotalScans)},
			{Label: "Resources analyzed", Value: printer.Sprintf("%d", *u.TotalResources)},
			{Label: "Issues found", Value: printer.Sprintf("%d", *u.IssuesFound)},
			{Label: "Critical", Value: printer.Sprintf("%d", *u.CriticalIssues)},
			{Label: "High", Value: printer.Sprintf("%d", *u.HighIssues)},
			{Label: "Medium", Value: printer.Sprintf("%d", *u.MediumIssues)},
			{Label: "Low", Value: printer.Sprintf("%d", *u.LowIssues)},
		}
		var items []render.Item
		if len(u.TopServices) > 0 {
			var html, text strings.Builder
			html.WriteString("<ul>")
			for _, svc := range u.TopServices {
				line := printer.Sprintf("%s: %d", svc.Name, svc.Count)
				html.WriteString("<li>" + s.markup.Text(line) + "</li>")
				text.WriteString("- " + s.markup.Text(line) + "\n")
			}
			html.WriteString("</ul>")
			items = append(items, render.Item{
				Title: "Top services",
				HTML:  s.markup.HTML(html.String()),
				Text:  strings.TrimRight(text.String(), "\n"),
			})
		}
		return render.Message{
			Subject:    fmt.Sprintf("Your %s %s Summary", d.Month, s.product),
			Heading:    fmt.Sprintf("%s %s summary", d.Month, d.Year),
			Greeting:   s.greeting(d),
			Paragraphs: []string{fmt.Sprintf("Here's your %s usage summary for %s %s.", s.product, d.Month, d.Year)},
			Facts:      facts,
			Items:      items,
			Action:     &render.Action{Label: "View full report", URL: s.url(d.DashboardURL)},
		}, nil

	case domain.FeatureAnnouncement:
		items := []render.Item{{
			Title: d.AnnouncementTitle,
			HTML:  s.markup.HTML(d.AnnouncementDescription),
			Text:  s.markup.Text(d.AnnouncementDescription),
		}}
		for _, f := range d.Features {
			items = append(items, render.Item{
				Title: s.markup.Text(f.Title),
				HTML:  s.markup.HTML(f.Description),
				Text:  s.markup.Text(f.Description),
			})
		}
		return render.Message{
			Subject:  fmt.Sprintf("%s - %s", d.AnnouncementTitle, s.product),
			Heading:  "What's new",
			Greeting: s.greeting(d),
			Items:    items,
			Action:   &render.Action{Label: "Learn more", URL: s.url(d.LearnMoreURL)},
		}, nil

	case domain.FeedbackRequest:
		return render.Message{
			Subject:  fmt.Sprintf("We'd love your feedback - %s", s.product),
			Heading:  "How are we doing?",
			Greeting: s.greeting(d),
			Paragraphs: []string{
				printer.Sprintf("You've run %d scans with %s. We'd love to hear what you think!", *d.TotalScans, s.product),
				fmt.Sprintf("Your feedback shapes the future of %s. Share your experience in a quick 2-minute survey.", s.product),
			},
			Action:  &render.Action{Label: "Share your feedback", URL: s.url(d.FeedbackURL)},
			Closing: []string{fmt.Sprintf("Thank you for being part of the %s community!", s.product)},
		}, nil

	case domain.ReEngagement:
		paras := []string{
			fmt.Sprintf("It's been %d days since your last %s scan. Your infrastructure may have changed, so let's make sure it's still secure and optimized.", d.DaysSinceLastScan, s.product),
		}
		if s.cli != "" {
			paras = append(paras, fmt.Sprintf("Run a quick scan with: npx %s scan", s.cli))
		}
		return render.Message{
			Subject:    fmt.Sprintf("We miss you! - %s", s.product),
			Heading:    "It's been a while",
			Greeting:   s.greeting(d),
			Paragraphs: paras,
			Action:     &render.Action{Label: "Visit your dashboard", URL: s.url(d.DashboardURL)},
		}, nil
	}
	return render.Message{}, fmt.Errorf("no template for %s: %w", n.EventType(), domain.ErrInvalidPayload)
}

func (s *service) welcome(w domain.Welcome) render.Message {
	msg := render.Message{
		Subject:     fmt.Sprintf("Welcome to %s - Your Account is Ready!", s.product),
		Heading:     fmt.Sprintf("Welcome to %s!", s.product),
		Greeting:    "Hi " + DisplayName(w.Name, w.Email) + ",",
		Paragraphs:  []string{fmt.Sprintf("Your %s account has been created.", s.product)},
		Credentials: &render.Credentials{Email: w.Email, TempPassword: w.TempPassword},
		Steps: []string{
			"Click the button below to go to the login page",
			"Enter your email address and the temporary password above",
			"Set a new password when prompted",
		},
		Action: &render.Action{Label: "Log in to " + s.product, URL: s.url(s.loginURL)},
	}
	switch {
	case w.LicenseKey != "":
		msg.Subject = fmt.Sprintf("Welcome to %s - Your License Details", s.product)
		msg.Paragraphs = []string{fmt.Sprintf("Thank you for choosing %s! Your account has been created and your license is now active.", s.product)}
		msg.Facts = []render.Fact{
			{Label: "License type", Value: w.LicenseType},
			{Label: "License key", Value: w.LicenseKey, Mono: true},
			{Label: "Status", Value: "Active"},
		}
		if s.cli != "" {
			msg.Steps = append(msg.Steps,
				"Install the CLI: npm install -g "+s.cli,
				"Configure your license: npx "+s.cli+" config setup",
				"Run your first analysis: npx "+s.cli+" scan --all",
			)
		}
	case w.TeamRole != "":
		msg.Paragraphs = []string{
			fmt.Sprintf("You've joined a %s team as %s. Your account has been created.", s.product, w.TeamRole),
		}
	}
	return msg
}

func unixDate(sec int64) string {
	return time.Unix(sec, 0).UTC().Format("Mon Jan 2 2006")
}

func money(minor int64, currency string) string {
	return strings.TrimSpace(fmt.Sprintf("%.2f %s", float64(minor)/100, strings.ToUpper(currency)))
}
