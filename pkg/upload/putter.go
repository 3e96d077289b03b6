package upload

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter issues a single synchronous object upload. Implementations
// must be safe for concurrent use; the shared-client strategy calls one
// instance from every worker.
type ObjectPutter interface {
	Put(ctx context.Context, bucket, key string, body []byte) error
}

// s3Putter adapts *s3.Client to ObjectPutter.
type s3Putter struct {
	client *s3.Client
}

// NewPutter wraps an S3 client as an ObjectPutter.
func NewPutter(client *s3.Client) ObjectPutter {
	return &s3Putter{client: client}
}

func (p *s3Putter) Put(ctx context.Context, bucket, key string, body []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
