package s3infra

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// API is the subset of the S3 client the archive uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient creates an S3 client. When endpoint is set (LocalStack), it overrides the
// endpoint and enables path-style addressing.
func NewClient(awsCfg aws.Config, endpoint *string) *s3.Client {
	clientOpts := []func(*s3.Options){}
	if endpoint != nil {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = endpoint
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// Archive stores dead-lettered event records as JSON objects.
type Archive struct {
	client API
	bucket string
}

func NewArchive(client API, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// Archive writes body under key and returns the object's s3:// URI.
func (a *Archive) Archive(ctx context.Context, key string, body []byte) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
