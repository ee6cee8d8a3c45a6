package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UserIndex resolves e-mail addresses to application user ids through the users table's
// e-mail GSI. The table itself is owned by the user service; this worker only reads it.
type UserIndex struct {
	client    API
	tableName string
	indexName string
}

func NewUserIndex(client API, tableName, indexName string) *UserIndex {
	return &UserIndex{client: client, tableName: tableName, indexName: indexName}
}

type userRow struct {
	UserID string `dynamodbav:"userId"`
	PK     string `dynamodbav:"PK"`
}

// UserIDByEmail returns "" with a nil error when no user has the address.
func (r *UserIndex) UserIDByEmail(ctx context.Context, email string) (string, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    aws.String("#e = :e"),
		ExpressionAttributeNames:  map[string]string{"#e": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: strings.ToLower(strings.TrimSpace(email))}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("query %s: %w", r.indexName, err)
	}
	if len(out.Items) == 0 {
		return "", nil
	}
	var row userRow
	if err := attributevalue.UnmarshalMap(out.Items[0], &row); err != nil {
		return "", fmt.Errorf("unmarshal user: %w", err)
	}
	if row.UserID != "" {
		return row.UserID, nil
	}
	// Single-table layouts key users as USER#<id>.
	return strings.TrimPrefix(row.PK, "USER#"), nil
}
