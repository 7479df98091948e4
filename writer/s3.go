package writer

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gurre/awsop/aws"
)

// S3Writer collects results as JSON lines and uploads them as one object.
// Every Flush rewrites the object with everything written so far, so a run
// interrupted between flushes leaves the last complete upload behind.
type S3Writer struct {
	client aws.S3Client
	bucket string
	key    string

	mu    sync.Mutex
	buf   bytes.Buffer
	dirty bool
}

// NewS3Writer creates an S3Writer for s3://bucket/key.
func NewS3Writer(client aws.S3Client, uri string) (*S3Writer, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 URI: %w", err)
	}
	if u.Scheme != "s3" {
		return nil, fmt.Errorf("invalid S3 URI scheme: %s", u.Scheme)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
		return nil, fmt.Errorf("invalid S3 URI %s: bucket and object key are required", uri)
	}
	return &S3Writer{client: client, bucket: u.Host, key: key}, nil
}

// WriteBatch implements Writer.
func (w *S3Writer) WriteBatch(ctx context.Context, results []Result) error {
	if len(results) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := encodeLines(&w.buf, results); err != nil {
		return err
	}
	w.dirty = true
	return nil
}

// Flush implements Writer.
func (w *S3Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirty {
		return nil
	}

	contentType := "application/x-ndjson"
	if _, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &w.bucket,
		Key:         &w.key,
		Body:        bytes.NewReader(w.buf.Bytes()),
		ContentType: &contentType,
	}); err != nil {
		return fmt.Errorf("failed to upload results to s3://%s/%s: %w", w.bucket, w.key, err)
	}
	w.dirty = false
	return nil
}

// Close implements Writer.
func (w *S3Writer) Close(ctx context.Context) error {
	return w.Flush(ctx)
}
