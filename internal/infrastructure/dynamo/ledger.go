package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-identity-worker/internal/domain"
)

// ErrClaimLost is returned when a write needs the claim token and the lease has moved on.
var ErrClaimLost = errors.New("ledger claim no longer held")

// LedgerRepo serialises provisioning per business key. A delivery claims the key with a
// lease before touching the directory, records the identity it created, and marks the key
// complete once the welcome e-mail and outbound events are out.
type LedgerRepo struct {
	client    API
	tableName string
	retention time.Duration
	now       func() time.Time
}

func NewLedgerRepo(client API, tableName string, retention time.Duration) *LedgerRepo {
	return &LedgerRepo{client: client, tableName: tableName, retention: retention, now: time.Now}
}

// Claim takes the key for lease unless it is complete or another live lease holds it.
// An expired lease is taken over.
func (r *LedgerRepo) Claim(ctx context.Context, businessKey, token string, lease time.Duration) (domain.LedgerClaim, error) {
	now := r.now().UTC()
	fields := map[string]interface{}{
		fieldClaimToken: token,
		fieldClaimUntil: now.Add(lease).UnixMilli(),
	}
	if r.retention > 0 {
		fields[fieldExpiresAt] = now.Add(r.retention).Unix()
	}
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return domain.LedgerClaim{}, err
	}
	ue.Names["#done"] = fieldCompletedAt
	ue.Names["#until"] = fieldClaimUntil
	ue.Values[":now"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(fieldBusinessKey, businessKey),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String("attribute_not_exists(#done) AND (attribute_not_exists(#until) OR #until < :now)"),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValues:                        types.ReturnValueAllOld,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if _, done := ccf.Item[fieldCompletedAt]; done {
			return domain.LedgerClaim{State: domain.ClaimComplete, UserID: stringAttr(ccf.Item, fieldUserID)}, nil
		}
		return domain.LedgerClaim{State: domain.ClaimHeld}, nil
	}
	if err != nil {
		return domain.LedgerClaim{}, fmt.Errorf("claim ledger entry: %w", err)
	}
	return domain.LedgerClaim{State: domain.ClaimAcquired, UserID: stringAttr(out.Attributes, fieldUserID)}, nil
}

// RecordCreated stores the identity this claim created so a later claim can resume it.
func (r *LedgerRepo) RecordCreated(ctx context.Context, businessKey, token, userID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldBusinessKey, businessKey),
		UpdateExpression:    aws.String("SET #u = :u"),
		ConditionExpression: aws.String("#tok = :tok"),
		ExpressionAttributeNames: map[string]string{
			"#u":   fieldUserID,
			"#tok": fieldClaimToken,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u":   &types.AttributeValueMemberS{Value: userID},
			":tok": &types.AttributeValueMemberS{Value: token},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrClaimLost
	}
	if err != nil {
		return fmt.Errorf("record created identity: %w", err)
	}
	return nil
}

// Release drops the lease so redelivery does not wait for it to expire. A lease that has
// already passed to another token is left alone.
func (r *LedgerRepo) Release(ctx context.Context, businessKey, token string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldBusinessKey, businessKey),
		UpdateExpression:    aws.String("REMOVE #tok, #until"),
		ConditionExpression: aws.String("#tok = :tok"),
		ExpressionAttributeNames: map[string]string{
			"#tok":   fieldClaimToken,
			"#until": fieldClaimUntil,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tok": &types.AttributeValueMemberS{Value: token},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release ledger claim: %w", err)
	}
	return nil
}

// MarkComplete is first-writer-wins: a key that is already complete keeps its original
// user and event ids, and the call still succeeds. The lease is cleared in the same write.
func (r *LedgerRepo) MarkComplete(ctx context.Context, businessKey, userID, eventID string) error {
	now := r.now().UTC()
	fields := map[string]interface{}{
		fieldUserID:      userID,
		fieldEventID:     eventID,
		fieldCompletedAt: now.Format(time.RFC3339),
	}
	if r.retention > 0 {
		fields[fieldExpiresAt] = now.Add(r.retention).Unix()
	}
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return err
	}
	ue.Names["#done"] = fieldCompletedAt
	ue.Names["#tok"] = fieldClaimToken
	ue.Names["#until"] = fieldClaimUntil
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldBusinessKey, businessKey),
		UpdateExpression:          aws.String(ue.Expr + " REMOVE #tok, #until"),
		ConditionExpression:       aws.String("attribute_not_exists(#done)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	return nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
