package cognito

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/go-identity-worker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) ListUsers(ctx context.Context, in *cip.ListUsersInput, _ ...func(*cip.Options)) (*cip.ListUsersOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cip.ListUsersOutput)
	return out, args.Error(1)
}

func (m *mockAPI) AdminCreateUser(ctx context.Context, in *cip.AdminCreateUserInput, _ ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cip.AdminCreateUserOutput)
	return out, args.Error(1)
}

func (m *mockAPI) AdminSetUserPassword(ctx context.Context, in *cip.AdminSetUserPasswordInput, _ ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cip.AdminSetUserPasswordOutput)
	return out, args.Error(1)
}

func (m *mockAPI) AdminUpdateUserAttributes(ctx context.Context, in *cip.AdminUpdateUserAttributesInput, _ ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cip.AdminUpdateUserAttributesOutput)
	return out, args.Error(1)
}

func attr(name, value string) types.AttributeType {
	return types.AttributeType{Name: aws.String(name), Value: aws.String(value)}
}

func TestFindByEmail_Found(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("ListUsers", ctx, mock.MatchedBy(func(in *cip.ListUsersInput) bool {
		return *in.UserPoolId == "pool-1" && *in.Filter == `email = "a@x.com"` && *in.Limit == 1
	})).Return(&cip.ListUsersOutput{Users: []types.UserType{{
		Username:   aws.String("a@x.com"),
		UserStatus: types.UserStatusTypeForceChangePassword,
		Attributes: []types.AttributeType{
			attr("sub", "sub-1"),
			attr("email", "a@x.com"),
			attr("name", "Ada"),
			attr("custom:licenseId", "lic-1"),
		},
	}}}, nil).Once()

	ident, err := NewDirectory(api, "pool-1").FindByEmail(ctx, "A@x.com")

	require.NoError(t, err)
	require.NotNil(t, ident)
	assert.Equal(t, "sub-1", ident.DirectoryID)
	assert.Equal(t, "Ada", ident.DisplayName)
	assert.Equal(t, domain.StatusForceChangePassword, ident.Status)
	assert.Equal(t, "lic-1", ident.Attr(domain.AttrLicenseID))
}

func TestFindByEmail_NotFound(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("ListUsers", ctx, mock.Anything).Return(&cip.ListUsersOutput{}, nil).Once()

	ident, err := NewDirectory(api, "pool-1").FindByEmail(ctx, "a@x.com")

	require.NoError(t, err)
	assert.Nil(t, ident)
}

func TestFindByEmail_FailureIsTransient(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("ListUsers", ctx, mock.Anything).Return(nil, &types.TooManyRequestsException{}).Once()

	_, err := NewDirectory(api, "pool-1").FindByEmail(ctx, "a@x.com")

	assert.True(t, errors.Is(err, domain.ErrTransient))
}

func TestEmailFilter_EscapesQuotes(t *testing.T) {
	assert.Equal(t, `email = "a\"b@x.com"`, emailFilter(`A"b@x.com`))
	assert.Equal(t, `email = "a\\b@x.com"`, emailFilter(`a\b@x.com`))
}

func TestCreate_SuppressesInvitation(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	var got *cip.AdminCreateUserInput
	api.On("AdminCreateUser", ctx, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(*cip.AdminCreateUserInput) }).
		Return(&cip.AdminCreateUserOutput{User: &types.UserType{
			Username:   aws.String("a@x.com"),
			UserStatus: types.UserStatusTypeForceChangePassword,
			Attributes: []types.AttributeType{attr("sub", "sub-1"), attr("email", "a@x.com")},
		}}, nil).Once()

	ident, err := NewDirectory(api, "pool-1").Create(ctx, "a@x.com", map[string]string{
		"email":            "a@x.com",
		"email_verified":   "true",
		"custom:licenseId": "lic-1",
	}, "Tmp$Pass2345", true)

	require.NoError(t, err)
	assert.Equal(t, "sub-1", ident.DirectoryID)
	assert.Equal(t, types.MessageActionTypeSuppress, got.MessageAction)
	assert.Empty(t, got.DesiredDeliveryMediums)
	assert.Equal(t, "Tmp$Pass2345", *got.TemporaryPassword)
	require.Len(t, got.UserAttributes, 3)
	assert.Equal(t, "custom:licenseId", *got.UserAttributes[0].Name)
	assert.Equal(t, "email", *got.UserAttributes[1].Name)
	assert.Equal(t, "email_verified", *got.UserAttributes[2].Name)
}

func TestCreate_UsernameExistsIsAlreadyExists(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("AdminCreateUser", ctx, mock.Anything).
		Return(nil, &types.UsernameExistsException{Message: aws.String("exists")}).Once()

	_, err := NewDirectory(api, "pool-1").Create(ctx, "a@x.com", nil, "Tmp$Pass2345", true)

	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
	assert.False(t, errors.Is(err, domain.ErrTransient))
}

func TestSetPassword_InvalidPasswordIsFatal(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("AdminSetUserPassword", ctx, mock.MatchedBy(func(in *cip.AdminSetUserPasswordInput) bool {
		return *in.Username == "a@x.com" && !in.Permanent
	})).Return(nil, &types.InvalidPasswordException{}).Once()

	err := NewDirectory(api, "pool-1").SetPassword(ctx, "a@x.com", "short", false)

	assert.True(t, errors.Is(err, domain.ErrFatalInvariant))
	assert.False(t, domain.IsRetryable(err))
}

func TestUpdateAttributes(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("AdminUpdateUserAttributes", ctx, mock.MatchedBy(func(in *cip.AdminUpdateUserAttributesInput) bool {
		return len(in.UserAttributes) == 1 && *in.UserAttributes[0].Name == "name"
	})).Return(&cip.AdminUpdateUserAttributesOutput{}, nil).Once()

	d := NewDirectory(api, "pool-1")
	require.NoError(t, d.UpdateAttributes(ctx, "a@x.com", map[string]string{"name": "Ada"}))
	require.NoError(t, d.UpdateAttributes(ctx, "a@x.com", nil))
	api.AssertNumberOfCalls(t, "AdminUpdateUserAttributes", 1)
}

func TestUpdateAttributes_UserNotFound(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("AdminUpdateUserAttributes", ctx, mock.Anything).Return(nil, &types.UserNotFoundException{}).Once()

	err := NewDirectory(api, "pool-1").UpdateAttributes(ctx, "a@x.com", map[string]string{"name": "Ada"})

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
