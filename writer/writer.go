// Package writer delivers batch invocation results to a sink: JSON lines on a
// stream or file, a single S3 object, or a DynamoDB table.
package writer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gurre/awsop/aws"
)

// Result is the outcome of one batch record.
type Result struct {
	Source       string `json:"source"`                 // URI of the input the record came from
	Offset       int64  `json:"offset"`                 // Byte offset of the record within its source
	InvocationID string `json:"invocationId,omitempty"` // Empty when the record never reached the adapter
	Output       any    `json:"output,omitempty"`       // Selected value
	Error        string `json:"error,omitempty"`        // Failure message; Output is empty when set
}

// ID identifies a result across retries of the same source.
func (r Result) ID() string {
	return fmt.Sprintf("%s#%d", r.Source, r.Offset)
}

// Writer receives results from the batch workers. Implementations are safe
// for concurrent use.
type Writer interface {
	WriteBatch(ctx context.Context, results []Result) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// New opens the sink named by uri: "" or "-" for stdout, s3://bucket/key,
// dynamodb://table, or a local file path.
// Example:
//
//	w, err := writer.New("s3://my-bucket/results/run-1.jsonl", clients, os.Stdout)
//	if err != nil {
//	    return err
//	}
//	defer w.Close(ctx)
func New(uri string, clients *aws.Clients, stdout io.Writer) (Writer, error) {
	switch {
	case uri == "" || uri == "-":
		return NewJSONLinesWriter(stdout), nil
	case strings.HasPrefix(uri, "s3://"):
		if clients == nil || clients.S3 == nil {
			return nil, fmt.Errorf("no S3 client configured for %s", uri)
		}
		return NewS3Writer(clients.S3, uri)
	case strings.HasPrefix(uri, "dynamodb://"):
		if clients == nil || clients.DynamoDB == nil {
			return nil, fmt.Errorf("no DynamoDB client configured for %s", uri)
		}
		return NewDynamoDBWriter(clients.DynamoDB, uri, maxBatchSize)
	default:
		path := filepath.Clean(strings.TrimPrefix(uri, "file://"))
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create results file: %w", err)
		}
		return NewJSONLinesWriter(f), nil
	}
}

// JSONLinesWriter writes one JSON object per result. When the underlying
// writer is an io.Closer it is closed by Close.
type JSONLinesWriter struct {
	mu  sync.Mutex
	out io.Writer
	buf *bufio.Writer
}

// NewJSONLinesWriter creates a JSONLinesWriter over w.
func NewJSONLinesWriter(w io.Writer) *JSONLinesWriter {
	return &JSONLinesWriter{out: w, buf: bufio.NewWriter(w)}
}

// WriteBatch implements Writer.
func (w *JSONLinesWriter) WriteBatch(ctx context.Context, results []Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return encodeLines(w.buf, results)
}

// Flush implements Writer.
func (w *JSONLinesWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush results: %w", err)
	}
	return nil
}

// Close implements Writer.
func (w *JSONLinesWriter) Close(ctx context.Context) error {
	if err := w.Flush(ctx); err != nil {
		return err
	}
	if c, ok := w.out.(io.Closer); ok && w.out != os.Stdout && w.out != os.Stderr {
		return c.Close()
	}
	return nil
}

func encodeLines(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode result %s: %w", r.ID(), err)
		}
	}
	return nil
}
