// Package bench orchestrates the upload benchmark: it loads the dataset,
// partitions it, and times the three upload strategies at each configured
// concurrency level.
package bench

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eunmann/s3split-bench/internal/logctx"
	"github.com/eunmann/s3split-bench/pkg/dataset"
	"github.com/eunmann/s3split-bench/pkg/humanfmt"
	"github.com/eunmann/s3split-bench/pkg/upload"
)

// DefaultDatasetURL is the taxi-trip sample dataset the original benchmark
// was built around. Its columns include the default grouping columns.
const DefaultDatasetURL = "https://github.com/mwaskom/seaborn-data/raw/master/taxis.csv"

// DefaultGroupBy are the grouping columns of the taxi dataset.
var DefaultGroupBy = []string{"color", "payment", "pickup_zone"}

// DefaultLevels is the concurrency sweep, run in order.
var DefaultLevels = []int{4, 8, 20}

// Config configures one benchmark invocation. Credentials and the bucket
// are explicit values here, never ambient process state.
type Config struct {
	// Bucket is the target S3 bucket. Required.
	Bucket string

	// Region is the AWS region to target.
	Region string

	// DatasetURL is the CSV source, re-fetched for every level.
	DatasetURL string

	// GroupBy are the partitioning columns, in key order.
	GroupBy []string

	// Levels are the concurrency levels to sweep.
	Levels []int

	// Select is the client selection policy for the per-task pool.
	Select upload.SelectPolicy

	// Credentials, when non-nil, are passed through to every client.
	// Otherwise the SDK default chain applies.
	Credentials *upload.StaticCredentials
}

// DefaultConfig returns the sweep the original benchmark ran: the taxi
// dataset grouped by color/payment/pickup_zone at concurrency 4, 8, 20.
func DefaultConfig() Config {
	return Config{
		Region:     "eu-west-1",
		DatasetURL: DefaultDatasetURL,
		GroupBy:    append([]string(nil), DefaultGroupBy...),
		Levels:     append([]int(nil), DefaultLevels...),
		Select:     upload.SelectRandom,
	}
}

// strategySet holds the clients one level's strategies run against.
type strategySet struct {
	// transfer is the managed transfer facility.
	transfer upload.Transferer
	// pool has one independent client per worker.
	pool []upload.ObjectPutter
	// shared is the single client every worker uses in the shared run.
	shared upload.ObjectPutter
}

// Runner executes the benchmark described by a Config.
type Runner struct {
	cfg Config

	// load and build are swappable for tests; the defaults hit the
	// network and AWS.
	load  func(ctx context.Context, url string) (*dataset.Table, error)
	build func(ctx context.Context, concurrency int) (*strategySet, error)
}

// NewRunner validates the config and returns a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.DatasetURL == "" {
		return nil, fmt.Errorf("dataset URL is required")
	}
	if len(cfg.GroupBy) == 0 {
		return nil, fmt.Errorf("at least one grouping column is required")
	}
	if len(cfg.Levels) == 0 {
		return nil, fmt.Errorf("at least one concurrency level is required")
	}
	for _, c := range cfg.Levels {
		if c <= 0 {
			return nil, fmt.Errorf("concurrency level must be positive, got %d", c)
		}
	}
	if cfg.Select == "" {
		cfg.Select = upload.SelectRandom
	}

	r := &Runner{cfg: cfg}
	r.load = dataset.Load
	r.build = r.buildAWS
	return r, nil
}

// Run sweeps the configured concurrency levels in order. Levels share
// nothing: the dataset is re-fetched and all clients are rebuilt each time.
// The first strategy error aborts the whole sweep.
func (r *Runner) Run(ctx context.Context) error {
	for _, concurrency := range r.cfg.Levels {
		if err := r.runLevel(ctx, concurrency); err != nil {
			return fmt.Errorf("concurrency %d: %w", concurrency, err)
		}
	}
	return nil
}

// runLevel runs the three strategies in fixed order against one fresh
// dataset load, sharing one run identifier so their objects are
// distinguishable without overwriting each other.
func (r *Runner) runLevel(ctx context.Context, concurrency int) error {
	ctx = logctx.WithInt(ctx, "concurrency", concurrency)
	log := logctx.FromContext(ctx)
	log.Info().Msg("running benchmark level")

	table, err := r.load(ctx, r.cfg.DatasetURL)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	parts, err := table.GroupBy(r.cfg.GroupBy...)
	if err != nil {
		return fmt.Errorf("partition dataset: %w", err)
	}

	runID := uuid.NewString()
	ctx = logctx.WithStr(ctx, "run_id", runID)

	set, err := r.build(ctx, concurrency)
	if err != nil {
		return fmt.Errorf("build clients: %w", err)
	}

	job := upload.Job{
		Bucket:     r.cfg.Bucket,
		RunID:      runID,
		Partitions: parts,
	}

	results := make([]upload.Result, 0, 3)

	managed, err := upload.Managed(ctx, set.transfer, job)
	if err != nil {
		return err
	}
	results = append(results, managed)

	pooled, err := upload.Pooled(ctx, set.pool, upload.NewSelector(r.cfg.Select), concurrency, job)
	if err != nil {
		return err
	}
	results = append(results, pooled)

	shared, err := upload.Pooled(ctx, []upload.ObjectPutter{set.shared}, upload.NewSelector(r.cfg.Select), concurrency, job)
	if err != nil {
		return err
	}
	results = append(results, shared)

	for _, res := range results {
		r.report(ctx, res)
	}
	return nil
}

// report emits the one timing line per strategy that is the benchmark's
// output artifact.
func (r *Runner) report(ctx context.Context, res upload.Result) {
	logger := logctx.FromContext(ctx)
	logger.Info().
		Str("method", res.Method).
		Int("partitions_count", res.Partitions).
		Str("bytes", humanfmt.Bytes(res.Bytes)).
		Str("elapsed", humanfmt.Duration(res.Elapsed)).
		Dur("elapsed_ms", res.Elapsed).
		Str("throughput", humanfmt.Throughput(res.Bytes, res.Elapsed)).
		Msg("strategy finished")
}

// buildAWS is the production strategy-set builder: one shared client and
// one transfer manager on a pool sized to the concurrency, plus an
// independent client per worker for the per-task pool.
func (r *Runner) buildAWS(ctx context.Context, concurrency int) (*strategySet, error) {
	clientCfg := upload.ClientConfig{
		Region:      r.cfg.Region,
		MaxConns:    concurrency,
		Credentials: r.cfg.Credentials,
	}

	awsCfg, err := upload.NewAWSConfig(ctx, clientCfg)
	if err != nil {
		return nil, err
	}
	client := upload.NewClient(awsCfg)

	pool, err := upload.NewClientPool(ctx, clientCfg, concurrency)
	if err != nil {
		return nil, err
	}

	return &strategySet{
		transfer: upload.NewManagerTransfer(ctx, client, concurrency),
		pool:     pool,
		shared:   upload.NewPutter(client),
	}, nil
}
