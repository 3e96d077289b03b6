package upload

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/s3split-bench/internal/logctx"
	"github.com/eunmann/s3split-bench/pkg/dataset"
	"github.com/eunmann/s3split-bench/pkg/objkey"
)

// Job is the work shared by every strategy in one benchmark level: the
// partitions of one dataset, the target bucket, and the run identifier
// scoping the object keys.
type Job struct {
	Bucket     string
	RunID      string
	Partitions []dataset.Partition
}

// Result is the timing outcome of one strategy run.
type Result struct {
	// Method is the key tag of the strategy ("manager", "client",
	// "clients[N]").
	Method string

	// Partitions is the number of objects uploaded.
	Partitions int

	// Bytes is the total encoded payload size.
	Bytes int64

	// Elapsed covers the first submission through join completion.
	Elapsed time.Duration
}

// MethodManager is the key tag of the managed-transfer strategy.
const MethodManager = "manager"

// PoolMethod returns the key tag for a pooled run with n clients: "client"
// for the shared single client, "clients[n]" for a per-task pool.
func PoolMethod(n int) string {
	if n > 1 {
		return fmt.Sprintf("clients[%d]", n)
	}
	return "client"
}

// Managed serializes every partition and hands all of them to the managed
// transfer facility. The clock stops when Wait returns, which blocks until
// the facility has drained. The first transfer failure aborts the run.
func Managed(ctx context.Context, tr Transferer, job Job) (Result, error) {
	res := Result{Method: MethodManager, Partitions: len(job.Partitions)}

	start := time.Now()
	for i := range job.Partitions {
		part := &job.Partitions[i]
		body, err := part.EncodeCSV()
		if err != nil {
			return Result{}, fmt.Errorf("encode partition: %w", err)
		}
		res.Bytes += int64(len(body))
		tr.Submit(job.Bucket, objkey.Build(job.RunID, MethodManager, part.Keys), body)
	}
	if err := tr.Wait(); err != nil {
		return Result{}, fmt.Errorf("managed transfer: %w", err)
	}
	res.Elapsed = time.Since(start)

	logger := logctx.FromContext(ctx)
	logger.Debug().
		Str("method", res.Method).
		Int("partitions_count", res.Partitions).
		Msg("strategy complete")

	return res, nil
}

// Pooled uploads partitions through a bounded worker pool. Each task
// encodes its partition, asks the selector for a client, and issues one
// synchronous put. All tasks join before the clock stops; the first error
// terminates the run with no retry and no partial accounting.
func Pooled(ctx context.Context, clients []ObjectPutter, sel Selector, concurrency int, job Job) (Result, error) {
	if len(clients) == 0 {
		return Result{}, fmt.Errorf("pooled strategy needs at least one client")
	}
	if concurrency <= 0 {
		return Result{}, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	method := PoolMethod(len(clients))
	res := Result{Method: method, Partitions: len(job.Partitions)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var bytesTotal atomic.Int64
	start := time.Now()
	for i := range job.Partitions {
		part := &job.Partitions[i]
		g.Go(func() error {
			body, err := part.EncodeCSV()
			if err != nil {
				return fmt.Errorf("encode partition: %w", err)
			}
			bytesTotal.Add(int64(len(body)))

			client := clients[sel.Next(len(clients))]
			key := objkey.Build(job.RunID, method, part.Keys)
			return client.Put(gctx, job.Bucket, key, body)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("pooled upload: %w", err)
	}
	res.Elapsed = time.Since(start)
	res.Bytes = bytesTotal.Load()

	logger := logctx.FromContext(ctx)
	logger.Debug().
		Str("method", res.Method).
		Int("partitions_count", res.Partitions).
		Int("clients_count", len(clients)).
		Msg("strategy complete")

	return res, nil
}
