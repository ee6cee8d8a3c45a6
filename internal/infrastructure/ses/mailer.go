package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/go-identity-worker/internal/domain"
	"golang.org/x/time/rate"
)

const charset = "UTF-8"

// API is the subset of the SES client the mailer uses.
type API interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func NewClient(awsCfg aws.Config, endpoint *string) *ses.Client {
	opts := []func(*ses.Options){}
	if endpoint != nil {
		opts = append(opts, func(o *ses.Options) {
			o.BaseEndpoint = endpoint
		})
	}
	return ses.NewFromConfig(awsCfg, opts...)
}

// Mailer sends rendered e-mails through SES, throttled to the account's send rate.
type Mailer struct {
	api     API
	limiter *rate.Limiter
}

// NewMailer creates a Mailer. A maxPerSecond of 0 or less disables throttling.
func NewMailer(api API, maxPerSecond float64) *Mailer {
	limit := rate.Inf
	if maxPerSecond > 0 {
		limit = rate.Limit(maxPerSecond)
	}
	return &Mailer{api: api, limiter: rate.NewLimiter(limit, 1)}
}

func (m *Mailer) Send(ctx context.Context, e domain.Email) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("ses throttle: %w", err)
	}
	in := &ses.SendEmailInput{
		Source:      aws.String(e.From),
		Destination: &types.Destination{ToAddresses: []string{e.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(e.Subject), Charset: aws.String(charset)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(e.HTML), Charset: aws.String(charset)},
				Text: &types.Content{Data: aws.String(e.Text), Charset: aws.String(charset)},
			},
		},
	}
	if e.ReplyTo != "" {
		in.ReplyToAddresses = []string{e.ReplyTo}
	}
	if _, err := m.api.SendEmail(ctx, in); err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}
