// Package cli implements the command-line interface for s3split-bench.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/eunmann/s3split-bench/internal/logctx"
	"github.com/eunmann/s3split-bench/pkg/bench"
	"github.com/eunmann/s3split-bench/pkg/logging"
	"github.com/eunmann/s3split-bench/pkg/upload"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	defaults := bench.DefaultConfig()

	fs := flag.NewFlagSet("s3split-bench", flag.ContinueOnError)
	bucket := fs.String("bucket", os.Getenv("BENCH_BUCKET"), "target S3 bucket (defaults to BENCH_BUCKET)")
	region := fs.String("region", defaults.Region, "AWS region")
	datasetURL := fs.String("dataset-url", defaults.DatasetURL, "CSV dataset URL, re-fetched per concurrency level")
	groupBy := fs.String("group-by", strings.Join(defaults.GroupBy, ","), "comma-separated grouping columns")
	levels := fs.String("concurrency", joinInts(defaults.Levels), "comma-separated concurrency levels")
	selectPolicy := fs.String("select", string(defaults.Select), "client selection policy: random or round-robin")
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-friendly console log output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	logging.Init(*debug, *human)

	if *bucket == "" {
		return errors.New("--bucket is required (or set BENCH_BUCKET)")
	}

	cfg := defaults
	cfg.Bucket = *bucket
	cfg.Region = *region
	cfg.DatasetURL = *datasetURL
	cfg.Credentials = credentialsFromEnv()

	var err error
	if cfg.GroupBy, err = parseColumns(*groupBy); err != nil {
		return fmt.Errorf("--group-by: %w", err)
	}
	if cfg.Levels, err = parseLevels(*levels); err != nil {
		return fmt.Errorf("--concurrency: %w", err)
	}
	if cfg.Select, err = upload.ParseSelectPolicy(*selectPolicy); err != nil {
		return fmt.Errorf("--select: %w", err)
	}

	runner, err := bench.NewRunner(cfg)
	if err != nil {
		return err
	}

	ctx := logctx.WithLogger(context.Background(), *logging.L())
	return runner.Run(ctx)
}

// credentialsFromEnv reads the pass-through static credentials. All three
// variables must be set; otherwise the SDK's default chain is used.
func credentialsFromEnv() *upload.StaticCredentials {
	access := os.Getenv("BENCH_ACCESS_KEY")
	secret := os.Getenv("BENCH_SECRET_KEY")
	session := os.Getenv("BENCH_SESSION_TOKEN")
	if access == "" || secret == "" {
		return nil
	}
	return &upload.StaticCredentials{
		AccessKey:    access,
		SecretKey:    secret,
		SessionToken: session,
	}
}

func parseColumns(s string) ([]string, error) {
	var cols []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cols = append(cols, part)
	}
	if len(cols) == 0 {
		return nil, errors.New("at least one column is required")
	}
	return cols, nil
}

func parseLevels(s string) ([]int, error) {
	var levels []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid level %q", part)
		}
		if n <= 0 {
			return nil, fmt.Errorf("level must be positive, got %d", n)
		}
		levels = append(levels, n)
	}
	if len(levels) == 0 {
		return nil, errors.New("at least one level is required")
	}
	return levels, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
