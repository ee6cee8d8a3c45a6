package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// API is the subset of the SNS client the alerter uses.
type API interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func NewClient(awsCfg aws.Config, endpoint *string) *sns.Client {
	opts := []func(*sns.Options){}
	if endpoint != nil {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = endpoint
		})
	}
	return sns.NewFromConfig(awsCfg, opts...)
}

// Alerter publishes operator alerts to a topic.
type Alerter struct {
	client   API
	topicARN string
}

func NewAlerter(client API, topicARN string) *Alerter {
	return &Alerter{client: client, topicARN: topicARN}
}

// SNS rejects subjects longer than 100 characters.
const maxSubject = 100

func (a *Alerter) Alert(ctx context.Context, subject, message string) error {
	if len(subject) > maxSubject {
		subject = subject[:maxSubject]
	}
	_, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
