// Package objkey builds the object keys under which partitions are stored.
package objkey

import (
	"strings"

	"github.com/eunmann/s3split-bench/pkg/dataset"
)

// Filename is the final path segment of every partition object.
const Filename = "data.csv"

// Build returns the object key for one partition upload:
//
//	run=<runID>/method=<method>/<col>=<val>/.../data.csv
//
// Keys are unique within one (runID, method) pair as long as the key
// tuples are distinct, which GroupBy guarantees.
func Build(runID, method string, keys []dataset.KeyValue) string {
	segs := make([]string, 0, len(keys)+3)
	segs = append(segs, "run="+runID, "method="+method)
	for _, kv := range keys {
		segs = append(segs, kv.Column+"="+kv.Value)
	}
	segs = append(segs, Filename)
	return strings.Join(segs, "/")
}
