package s3infra

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestArchive_PutsJSONObject(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	var body []byte
	api.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "dlq" && *in.Key == "dead-letter/2025/03/04/01J.json" && *in.ContentType == "application/json"
	})).Run(func(args mock.Arguments) {
		body, _ = io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	uri, err := NewArchive(api, "dlq").Archive(ctx, "dead-letter/2025/03/04/01J.json", []byte(`{"id":"01J"}`))

	require.NoError(t, err)
	assert.Equal(t, "s3://dlq/dead-letter/2025/03/04/01J.json", uri)
	assert.JSONEq(t, `{"id":"01J"}`, string(body))
}

func TestArchive_Error(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("PutObject", ctx, mock.Anything).Return(nil, errors.New("AccessDenied")).Once()

	_, err := NewArchive(api, "dlq").Archive(ctx, "k", nil)

	assert.ErrorContains(t, err, "AccessDenied")
}
