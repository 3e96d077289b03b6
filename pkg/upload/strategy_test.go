package upload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/s3split-bench/pkg/benchutil"
)

// inflightTracker records the high-water mark of concurrent uploads.
// Shared by every fake client of one strategy run.
type inflightTracker struct {
	current atomic.Int64
	max     atomic.Int64
}

func (tr *inflightTracker) enter() {
	cur := tr.current.Add(1)
	for {
		max := tr.max.Load()
		if cur <= max || tr.max.CompareAndSwap(max, cur) {
			return
		}
	}
}

func (tr *inflightTracker) leave() {
	tr.current.Add(-1)
}

// fakePutter implements ObjectPutter with injectable delay and failure.
type fakePutter struct {
	tracker *inflightTracker
	delay   time.Duration
	err     error

	mu   sync.Mutex
	keys []string
}

func (f *fakePutter) Put(ctx context.Context, bucket, key string, body []byte) error {
	if f.tracker != nil {
		f.tracker.enter()
		defer f.tracker.leave()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()

	return f.err
}

func (f *fakePutter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

// fakeTransfer implements Transferer over an errgroup, mirroring the
// production shape without the S3 dependency.
type fakeTransfer struct {
	tracker *inflightTracker
	delay   time.Duration
	err     error

	group errgroup.Group

	mu   sync.Mutex
	keys []string
}

func newFakeTransfer(concurrency int) *fakeTransfer {
	t := &fakeTransfer{tracker: &inflightTracker{}}
	t.group.SetLimit(concurrency)
	return t
}

func (f *fakeTransfer) Submit(bucket, key string, body []byte) {
	f.group.Go(func() error {
		f.tracker.enter()
		defer f.tracker.leave()

		if f.delay > 0 {
			time.Sleep(f.delay)
		}

		f.mu.Lock()
		f.keys = append(f.keys, key)
		f.mu.Unlock()

		return f.err
	})
}

func (f *fakeTransfer) Wait() error {
	return f.group.Wait()
}

func testJob(t testing.TB, numRows int) Job {
	t.Helper()
	table := benchutil.TaxiTable(numRows, benchutil.BenchmarkSeed)
	parts, err := table.GroupBy("color", "payment", "pickup_zone")
	if err != nil {
		t.Fatalf("GroupBy: %v", err)
	}
	return Job{Bucket: "bench-bucket", RunID: "run1", Partitions: parts}
}

func TestManaged(t *testing.T) {
	job := testJob(t, 500)
	tr := newFakeTransfer(4)

	res, err := Managed(context.Background(), tr, job)
	if err != nil {
		t.Fatalf("Managed: %v", err)
	}

	if res.Method != MethodManager {
		t.Errorf("Method = %q, want %q", res.Method, MethodManager)
	}
	if res.Partitions != len(job.Partitions) {
		t.Errorf("Partitions = %d, want %d", res.Partitions, len(job.Partitions))
	}
	if len(tr.keys) != len(job.Partitions) {
		t.Errorf("transfer received %d keys, want %d", len(tr.keys), len(job.Partitions))
	}
	if res.Elapsed < 0 {
		t.Errorf("Elapsed = %v, want non-negative", res.Elapsed)
	}
	if res.Bytes <= 0 {
		t.Errorf("Bytes = %d, want positive", res.Bytes)
	}

	seen := make(map[string]bool)
	for _, key := range tr.keys {
		if !strings.HasPrefix(key, "run=run1/method=manager/") {
			t.Errorf("key %q missing run/method prefix", key)
		}
		if !strings.HasSuffix(key, "/data.csv") {
			t.Errorf("key %q missing filename segment", key)
		}
		if seen[key] {
			t.Errorf("duplicate key %q", key)
		}
		seen[key] = true
	}
}

func TestManagedFailurePropagates(t *testing.T) {
	job := testJob(t, 200)
	tr := newFakeTransfer(4)
	tr.err = errors.New("injected transfer failure")

	_, err := Managed(context.Background(), tr, job)
	if err == nil {
		t.Fatal("expected error from failing transfer")
	}
	if !strings.Contains(err.Error(), "injected transfer failure") {
		t.Errorf("error = %v, want injected failure", err)
	}
}

func TestManagedConcurrencyBound(t *testing.T) {
	job := testJob(t, 1000)
	const bound = 3
	tr := newFakeTransfer(bound)
	tr.delay = time.Millisecond

	if _, err := Managed(context.Background(), tr, job); err != nil {
		t.Fatalf("Managed: %v", err)
	}

	if max := tr.tracker.max.Load(); max > bound {
		t.Errorf("max in-flight = %d, want <= %d", max, bound)
	}
}

func TestPooledSharedClient(t *testing.T) {
	job := testJob(t, 500)
	shared := &fakePutter{tracker: &inflightTracker{}}

	res, err := Pooled(context.Background(), []ObjectPutter{shared}, NewSelector(SelectRoundRobin), 8, job)
	if err != nil {
		t.Fatalf("Pooled: %v", err)
	}

	if res.Method != "client" {
		t.Errorf("Method = %q, want %q", res.Method, "client")
	}
	// Every upload goes through the one shared instance.
	if shared.calls() != len(job.Partitions) {
		t.Errorf("shared client handled %d uploads, want %d", shared.calls(), len(job.Partitions))
	}
}

func TestPooledConcurrencyBound(t *testing.T) {
	job := testJob(t, 1000)
	const bound = 4

	tracker := &inflightTracker{}
	clients := make([]ObjectPutter, bound)
	for i := range clients {
		clients[i] = &fakePutter{tracker: tracker, delay: time.Millisecond}
	}

	if len(job.Partitions) <= bound {
		t.Fatalf("need more partitions (%d) than bound (%d)", len(job.Partitions), bound)
	}

	_, err := Pooled(context.Background(), clients, NewSelector(SelectRoundRobin), bound, job)
	if err != nil {
		t.Fatalf("Pooled: %v", err)
	}

	if max := tracker.max.Load(); max > bound {
		t.Errorf("max in-flight = %d, want <= %d", max, bound)
	}
}

func TestPooledClientReuse(t *testing.T) {
	job := testJob(t, 500)

	// More uploads than clients: at least one client must serve two or
	// more uploads, and together they serve all of them.
	const numClients = 3
	clients := make([]ObjectPutter, numClients)
	fakes := make([]*fakePutter, numClients)
	for i := range clients {
		fakes[i] = &fakePutter{}
		clients[i] = fakes[i]
	}

	if len(job.Partitions) <= numClients {
		t.Fatalf("need more partitions (%d) than clients (%d)", len(job.Partitions), numClients)
	}

	res, err := Pooled(context.Background(), clients, NewSelector(SelectRoundRobin), numClients, job)
	if err != nil {
		t.Fatalf("Pooled: %v", err)
	}

	if want := "clients[3]"; res.Method != want {
		t.Errorf("Method = %q, want %q", res.Method, want)
	}

	total, reused := 0, false
	for _, f := range fakes {
		total += f.calls()
		if f.calls() >= 2 {
			reused = true
		}
	}
	if total != len(job.Partitions) {
		t.Errorf("clients handled %d uploads total, want %d", total, len(job.Partitions))
	}
	if !reused {
		t.Error("no client handled two or more uploads")
	}
}

func TestPooledFailurePropagates(t *testing.T) {
	job := testJob(t, 200)
	failing := &fakePutter{err: errors.New("injected put failure")}

	_, err := Pooled(context.Background(), []ObjectPutter{failing}, NewSelector(SelectRoundRobin), 4, job)
	if err == nil {
		t.Fatal("expected error from failing client")
	}
	if !strings.Contains(err.Error(), "injected put failure") {
		t.Errorf("error = %v, want injected failure", err)
	}
}

func TestPooledElapsedGrowsWithDelay(t *testing.T) {
	job := testJob(t, 500)

	fast := &fakePutter{}
	resFast, err := Pooled(context.Background(), []ObjectPutter{fast}, NewSelector(SelectRoundRobin), 4, job)
	if err != nil {
		t.Fatalf("Pooled (no delay): %v", err)
	}

	slow := &fakePutter{delay: 5 * time.Millisecond}
	resSlow, err := Pooled(context.Background(), []ObjectPutter{slow}, NewSelector(SelectRoundRobin), 4, job)
	if err != nil {
		t.Fatalf("Pooled (delayed): %v", err)
	}

	if resFast.Elapsed < 0 || resSlow.Elapsed < 0 {
		t.Fatalf("elapsed times %v, %v; want non-negative", resFast.Elapsed, resSlow.Elapsed)
	}
	if resSlow.Elapsed <= resFast.Elapsed {
		t.Errorf("delayed run took %v, undelayed %v; want delayed slower", resSlow.Elapsed, resFast.Elapsed)
	}
}

func TestPooledValidation(t *testing.T) {
	job := testJob(t, 50)

	if _, err := Pooled(context.Background(), nil, NewSelector(SelectRandom), 4, job); err == nil {
		t.Error("expected error for empty client pool")
	}

	client := &fakePutter{}
	if _, err := Pooled(context.Background(), []ObjectPutter{client}, NewSelector(SelectRandom), 0, job); err == nil {
		t.Error("expected error for non-positive concurrency")
	}
}

func TestPoolMethod(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "client"},
		{2, "clients[2]"},
		{20, "clients[20]"},
	}
	for _, tt := range tests {
		if got := PoolMethod(tt.n); got != tt.want {
			t.Errorf("PoolMethod(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
