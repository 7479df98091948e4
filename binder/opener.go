package binder

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gurre/awsop/aws"
)

// Opener resolves the string form of a byte payload to a readable stream.
type Opener interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// SourceOpener opens payload sources given as a local path, "-" for standard
// input, or an s3://bucket/key URI.
// Example:
//
//	opener := &binder.SourceOpener{S3: clients.S3, Stdin: os.Stdin}
//	rc, err := opener.Open(ctx, "s3://my-bucket/terms.csv")
type SourceOpener struct {
	S3    aws.S3Client // Required for s3:// sources
	Stdin io.Reader    // Read for "-"; os.Stdin when nil
}

// Open implements Opener.
func (o *SourceOpener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch {
	case source == "-":
		in := o.Stdin
		if in == nil {
			in = os.Stdin
		}
		return io.NopCloser(in), nil

	case strings.HasPrefix(source, "s3://"):
		if o.S3 == nil {
			return nil, fmt.Errorf("no S3 client configured for %s", source)
		}
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("invalid S3 URI: %w", err)
		}
		bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
		if bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid S3 URI %s: bucket and key are required", source)
		}
		resp, err := o.S3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &key,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get payload object: %w", err)
		}
		return resp.Body, nil

	default:
		path := strings.TrimPrefix(source, "file://")
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to open payload file: %w", err)
		}
		return f, nil
	}
}
