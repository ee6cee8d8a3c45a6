package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// API is the subset of the DynamoDB client used by the repos in this package.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// NewClient creates a DynamoDB client. When endpoint is set (LocalStack), it overrides
// the endpoint so all traffic goes to the local instance.
func NewClient(awsCfg aws.Config, endpoint *string) *dynamodb.Client {
	clientOpts := []func(*dynamodb.Options){}
	if endpoint != nil {
		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = endpoint
		})
	}
	return dynamodb.NewFromConfig(awsCfg, clientOpts...)
}
