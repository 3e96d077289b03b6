// Command s3split-bench times three strategies for uploading a partitioned
// dataset to S3.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/s3split-bench/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
