package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-identity-worker/internal/domain"
)

// ConsentRepo reads consent decisions. Items are keyed PK=CONSENT#<userId>,
// SK=<category>#<timestamp>, so the newest decision for a category sorts last.
type ConsentRepo struct {
	client    API
	tableName string
}

func NewConsentRepo(client API, tableName string) *ConsentRepo {
	return &ConsentRepo{client: client, tableName: tableName}
}

// Latest returns nil with a nil error when the user has never recorded a decision for category.
func (r *ConsentRepo) Latest(ctx context.Context, userID string, category domain.ConsentCategory) (*domain.ConsentRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("#pk = :pk AND begins_with(#sk, :prefix)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": fieldPK,
			"#sk": fieldSK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: consentPrefix + userID},
			":prefix": &types.AttributeValueMemberS{Value: string(category) + "#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query consent: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var rec domain.ConsentRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("unmarshal consent: %w", err)
	}
	return &rec, nil
}
