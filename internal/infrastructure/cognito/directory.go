// Package cognito implements the identity directory on an Amazon Cognito user pool.
// Users are addressed by e-mail, which the pool is configured to accept as username.
package cognito

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/go-identity-worker/internal/domain"
)

const attrSub = "sub"

// API is the subset of the Cognito client the directory uses.
type API interface {
	ListUsers(ctx context.Context, in *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
	AdminCreateUser(ctx context.Context, in *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminSetUserPassword(ctx context.Context, in *cip.AdminSetUserPasswordInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, in *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error)
}

// NewClient creates a Cognito client, honouring a LocalStack endpoint override.
func NewClient(awsCfg aws.Config, endpoint *string) *cip.Client {
	opts := []func(*cip.Options){}
	if endpoint != nil {
		opts = append(opts, func(o *cip.Options) {
			o.BaseEndpoint = endpoint
		})
	}
	return cip.NewFromConfig(awsCfg, opts...)
}

type Directory struct {
	api    API
	poolID string
}

func NewDirectory(api API, poolID string) *Directory {
	return &Directory{api: api, poolID: poolID}
}

// FindByEmail returns (nil, nil) when no user has the address.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	out, err := d.api.ListUsers(ctx, &cip.ListUsersInput{
		UserPoolId: aws.String(d.poolID),
		Filter:     aws.String(emailFilter(email)),
		Limit:      aws.Int32(1),
	})
	if err != nil {
		return nil, mapError("list users", err)
	}
	if len(out.Users) == 0 {
		return nil, nil
	}
	u := out.Users[0]
	return toIdentity(aws.ToString(u.Username), u.UserStatus, u.Attributes), nil
}

// Create registers email with a temporary password. When suppressMessage is set the pool's
// own invitation e-mail is not sent.
func (d *Directory) Create(ctx context.Context, email string, attrs map[string]string, tempPassword string, suppressMessage bool) (*domain.Identity, error) {
	in := &cip.AdminCreateUserInput{
		UserPoolId:        aws.String(d.poolID),
		Username:          aws.String(email),
		UserAttributes:    toAttributes(attrs),
		TemporaryPassword: aws.String(tempPassword),
	}
	if suppressMessage {
		in.MessageAction = types.MessageActionTypeSuppress
	} else {
		in.DesiredDeliveryMediums = []types.DeliveryMediumType{types.DeliveryMediumTypeEmail}
	}
	out, err := d.api.AdminCreateUser(ctx, in)
	if err != nil {
		return nil, mapError("create user", err)
	}
	if out.User == nil {
		return &domain.Identity{Email: email}, nil
	}
	return toIdentity(aws.ToString(out.User.Username), out.User.UserStatus, out.User.Attributes), nil
}

func (d *Directory) SetPassword(ctx context.Context, email, password string, permanent bool) error {
	_, err := d.api.AdminSetUserPassword(ctx, &cip.AdminSetUserPasswordInput{
		UserPoolId: aws.String(d.poolID),
		Username:   aws.String(email),
		Password:   aws.String(password),
		Permanent:  permanent,
	})
	return mapError("set password", err)
}

func (d *Directory) UpdateAttributes(ctx context.Context, email string, attrs map[string]string) error {
	if len(attrs) == 0 {
		return nil
	}
	_, err := d.api.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(d.poolID),
		Username:       aws.String(email),
		UserAttributes: toAttributes(attrs),
	})
	return mapError("update attributes", err)
}

// mapError classifies Cognito failures into domain errors. Anything unrecognised is
// treated as transient.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		exists   *types.UsernameExistsException
		notFound *types.UserNotFoundException
		badPass  *types.InvalidPasswordException
		badParam *types.InvalidParameterException
	)
	switch {
	case errors.As(err, &exists):
		return fmt.Errorf("cognito %s: %w", op, errors.Join(domain.ErrAlreadyExists, err))
	case errors.As(err, &notFound):
		return fmt.Errorf("cognito %s: %w", op, errors.Join(domain.ErrNotFound, err))
	case errors.As(err, &badPass), errors.As(err, &badParam):
		return fmt.Errorf("cognito %s: %w", op, errors.Join(domain.ErrFatalInvariant, err))
	}
	return fmt.Errorf("cognito %s: %w", op, domain.Transient(err))
}

func emailFilter(email string) string {
	v := strings.ToLower(strings.TrimSpace(email))
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return fmt.Sprintf(`email = "%s"`, v)
}

func toAttributes(attrs map[string]string) []types.AttributeType {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]types.AttributeType, 0, len(names))
	for _, k := range names {
		out = append(out, types.AttributeType{Name: aws.String(k), Value: aws.String(attrs[k])})
	}
	return out
}

func toIdentity(username string, status types.UserStatusType, attrs []types.AttributeType) *domain.Identity {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return &domain.Identity{
		DirectoryID: m[attrSub],
		Username:    username,
		Email:       m[domain.AttrEmail],
		DisplayName: m[domain.AttrName],
		Status:      domain.IdentityStatus(status),
		Attributes:  m,
	}
}
