package eventbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/go-identity-worker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func TestEmit_PublishesOneEntry(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	var got *eventbridge.PutEventsInput
	api.On("PutEvents", ctx, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(*eventbridge.PutEventsInput) }).
		Return(&eventbridge.PutEventsOutput{}, nil).Once()
	e := NewEmitter(api)
	e.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := e.Emit(ctx, "identity-bus", "service.identity", domain.OutIdentityCreated, domain.IdentityCreated{
		UserID: "sub-1", UserName: "sub-1", SignUpDate: "2025-01-02T03:04:05Z", ExternalReference: "lic-1", TriggerEventID: "evt-1",
	})

	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	entry := got.Entries[0]
	assert.Equal(t, "identity-bus", *entry.EventBusName)
	assert.Equal(t, "service.identity", *entry.Source)
	assert.Equal(t, "IdentityCreated", *entry.DetailType)
	assert.JSONEq(t, `{"userId":"sub-1","userName":"sub-1","signUpDate":"2025-01-02T03:04:05Z","externalReference":"lic-1","organization":"","isTeamMember":false,"triggerEventId":"evt-1"}`, *entry.Detail)
	assert.True(t, entry.Time.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestEmit_FailedEntry(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("PutEvents", ctx, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("ThrottlingException"), ErrorMessage: aws.String("slow down")}},
	}, nil).Once()

	err := NewEmitter(api).Emit(ctx, "bus", "src", "T", map[string]string{})

	assert.ErrorContains(t, err, "ThrottlingException slow down")
}

func TestEmit_CallError(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("PutEvents", ctx, mock.Anything).Return(nil, errors.New("timeout")).Once()

	assert.ErrorContains(t, NewEmitter(api).Emit(ctx, "bus", "src", "T", nil), "timeout")
}

func TestEmit_UnencodableDetail(t *testing.T) {
	api := new(mockAPI)

	err := NewEmitter(api).Emit(context.Background(), "bus", "src", "T", func() {})

	require.Error(t, err)
	api.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}
