package upload

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

// Transferer is a managed transfer facility: submissions are multiplexed
// across an internal worker pool, and Wait blocks until every in-flight
// transfer has finished or the first one failed. A Transferer is good for
// one strategy run; do not Submit after Wait.
type Transferer interface {
	Submit(bucket, key string, body []byte)
	Wait() error
}

// managerTransfer wraps the AWS S3 Upload Manager behind a bounded
// errgroup, so whole-object submissions are parallelized the same way the
// manager parallelizes parts.
type managerTransfer struct {
	uploader *manager.Uploader
	group    *errgroup.Group
	ctx      context.Context
}

// NewManagerTransfer creates a Transferer backed by manager.Uploader with
// the given internal concurrency.
func NewManagerTransfer(ctx context.Context, client *s3.Client, concurrency int) Transferer {
	if concurrency <= 0 {
		concurrency = 4
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.Concurrency = concurrency
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	return &managerTransfer{
		uploader: uploader,
		group:    g,
		ctx:      gctx,
	}
}

func (t *managerTransfer) Submit(bucket, key string, body []byte) {
	t.group.Go(func() error {
		_, err := t.uploader.Upload(t.ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(body),
		})
		if err != nil {
			return fmt.Errorf("transfer s3://%s/%s: %w", bucket, key, err)
		}
		return nil
	})
}

func (t *managerTransfer) Wait() error {
	return t.group.Wait()
}
