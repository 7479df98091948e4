// Command awsop invokes Elasticsearch, OpenSearch and Translate operations
// from the command line, one call at a time or once per record of a
// JSON-lines batch.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gurre/awsop/invoker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdin, os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 2 for a declined
// confirmation, 130 for an interrupt and 1 otherwise.
func exitCode(err error) int {
	switch {
	case errors.Is(err, invoker.ErrDeclined):
		return 2
	case errors.Is(err, invoker.ErrCancelled), errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
