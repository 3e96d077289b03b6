// Package benchutil provides synthetic taxi-trip tables for benchmarks and testing.
package benchutil

import (
	"fmt"
	"math/rand"
	"os"
	"testing"

	"github.com/eunmann/s3split-bench/pkg/dataset"
)

// BenchmarkSeed is the default seed for reproducible benchmark data generation.
const BenchmarkSeed = 42

// BenchmarkSizes are standard row counts for quick benchmark runs.
var BenchmarkSizes = []int{1000, 10000, 100000}

// SkipIfNoLongBench skips the benchmark if S3SPLIT_LONG_BENCH is not set.
// Use this to gate long-running benchmarks that shouldn't run by default.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("S3SPLIT_LONG_BENCH") == "" {
		b.Skip("set S3SPLIT_LONG_BENCH=1 to run scaling benchmark")
	}
}

var (
	colors   = []string{"yellow", "green"}
	payments = []string{"credit card", "cash", ""}
	zones    = []string{
		"Midtown Center", "Upper West Side North", "Hudson Sq",
		"Lenox Hill East", "Astoria", "Clinton East", "East Harlem South",
		"Battery Park City", "Murray Hill", "Lincoln Square West",
	}
)

// TaxiTable generates a synthetic table shaped like the taxi-trip dataset:
// the three grouping columns plus a fare column, with values drawn from a
// small fixed vocabulary so partition counts stay realistic.
func TaxiTable(numRows int, seed int64) *dataset.Table {
	if seed == 0 {
		seed = BenchmarkSeed
	}
	rng := rand.New(rand.NewSource(seed))

	columns := []string{"color", "payment", "pickup_zone", "fare"}
	rows := make([][]string, numRows)
	for i := range rows {
		rows[i] = []string{
			colors[rng.Intn(len(colors))],
			payments[rng.Intn(len(payments))],
			zones[rng.Intn(len(zones))],
			fmt.Sprintf("%.2f", 2.5+rng.Float64()*60),
		}
	}

	table, err := dataset.New(columns, rows)
	if err != nil {
		// Generated rows always match the header width.
		panic(err)
	}
	return table
}
