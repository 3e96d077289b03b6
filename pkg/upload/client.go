// Package upload implements the three partition-upload strategies compared
// by the benchmark: a managed transfer pool, a per-task client pool, and a
// single shared client.
package upload

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// StaticCredentials are pass-through credentials for the benchmark run.
// When nil, the SDK's default credential chain is used instead.
type StaticCredentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// ClientConfig configures S3 client construction for one benchmark level.
type ClientConfig struct {
	// Region is the AWS region to target.
	Region string

	// MaxConns sizes the HTTP connection pool. The driver sets this to
	// the level's concurrency so the pool never starves the workers.
	MaxConns int

	// Credentials, when non-nil, override the default credential chain.
	Credentials *StaticCredentials
}

// NewAWSConfig builds an aws.Config with the connection pool sized to
// cfg.MaxConns. Each call constructs a fresh HTTP client, so clients made
// from distinct configs do not share connections.
func NewAWSConfig(ctx context.Context, cfg ClientConfig) (aws.Config, error) {
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 8
	}

	httpClient := awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		tr.MaxIdleConns = maxConns
		tr.MaxIdleConnsPerHost = maxConns
	})

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	}
	if c := cfg.Credentials; c != nil {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, c.SessionToken)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

// NewClient creates an S3 client from an aws.Config.
func NewClient(awsCfg aws.Config) *s3.Client {
	return s3.NewFromConfig(awsCfg)
}

// NewClientPool builds n independent S3 clients, each with its own HTTP
// connection pool, wrapped as ObjectPutters for the per-task strategy.
func NewClientPool(ctx context.Context, cfg ClientConfig, n int) ([]ObjectPutter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("client pool size must be positive, got %d", n)
	}

	putters := make([]ObjectPutter, n)
	for i := range putters {
		awsCfg, err := NewAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("build client %d: %w", i, err)
		}
		putters[i] = NewPutter(NewClient(awsCfg))
	}
	return putters, nil
}
