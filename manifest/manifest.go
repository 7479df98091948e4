// Package manifest loads batch job manifests and verifies the integrity of the
// input sources they list. A manifest names the operation to run, optional
// default inputs merged into every record, and the JSON-lines sources with
// their MD5 checksums.
package manifest

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/binder"
	"github.com/gurre/awsop/schema"
)

// s3URIPattern is compiled once at package level to avoid recompilation per call.
var s3URIPattern = regexp.MustCompile(`^s3://([^/]+)/(.+)$`)

// Job is a batch job manifest.
// Example:
//
//	{
//	  "version": "1",
//	  "service": "translate",
//	  "operation": "TranslateText",
//	  "defaults": {"SourceLanguageCode": "de", "TargetLanguageCode": "en"},
//	  "sources": [
//	    {"uri": "records-1.jsonl", "md5Checksum": "1B2M2Y8AsgTpgAmY7PhCfg==", "recordCount": 1000}
//	  ]
//	}
type Job struct {
	Version   string         `json:"version"`   // Format version
	Service   string         `json:"service"`   // Service of the operation, e.g. es
	Operation string         `json:"operation"` // Operation name or command name
	Defaults  map[string]any `json:"defaults"`  // Inputs applied to every record unless the record sets them
	Sources   []Source       `json:"sources"`   // Input files, processed in order of listing
}

// Source is one JSON-lines input of a job.
type Source struct {
	URI         string `json:"uri"`         // s3://bucket/key or a local path; relative keys resolve against the manifest
	MD5Base64   string `json:"md5Checksum"` // Base64-encoded MD5; empty skips verification
	RecordCount int64  `json:"recordCount"` // Expected number of records, informational
}

// Loader loads job manifests and verifies their sources.
type Loader interface {
	Load(ctx context.Context, uri string) (Job, error)
	VerifyChecksums(ctx context.Context, job Job) error
}

// SourceLoader reads manifests through a binder.Opener and verifies S3
// sources with HeadObject.
// Example:
//
//	loader := manifest.NewSourceLoader(opener, clients.S3)
//	job, err := loader.Load(ctx, "s3://my-bucket/jobs/translate.json")
//	if err != nil {
//	    return err
//	}
//	err = loader.VerifyChecksums(ctx, job)
type SourceLoader struct {
	opener binder.Opener
	client aws.S3Client
}

// NewSourceLoader creates a SourceLoader. client may be nil when no S3
// sources are involved.
func NewSourceLoader(opener binder.Opener, client aws.S3Client) *SourceLoader {
	return &SourceLoader{opener: opener, client: client}
}

// Load reads and validates the manifest at uri.
func (l *SourceLoader) Load(ctx context.Context, uri string) (Job, error) {
	body, err := l.opener.Open(ctx, uri)
	if err != nil {
		return Job{}, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer func() { _ = body.Close() }()

	var job Job
	if err := json.NewDecoder(body).Decode(&job); err != nil {
		return Job{}, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if job.Operation == "" {
		return Job{}, fmt.Errorf("manifest %s: operation is required", uri)
	}
	if len(job.Sources) == 0 {
		return Job{}, fmt.Errorf("manifest %s: no sources listed", uri)
	}

	for i := range job.Sources {
		if job.Sources[i].URI == "" {
			return Job{}, fmt.Errorf("manifest %s: source %d has no uri", uri, i)
		}
		job.Sources[i].URI = resolve(uri, job.Sources[i].URI)
	}
	return job, nil
}

// resolve makes a relative source URI absolute against the manifest's
// location: same bucket for S3 manifests, same directory for local ones.
func resolve(manifestURI, source string) string {
	if strings.HasPrefix(source, "s3://") || strings.HasPrefix(source, "file://") || filepath.IsAbs(source) || source == "-" {
		return source
	}
	if m := s3URIPattern.FindStringSubmatch(manifestURI); m != nil {
		dir := ""
		if i := strings.LastIndex(m[2], "/"); i >= 0 {
			dir = m[2][:i+1]
		}
		return "s3://" + m[1] + "/" + dir + source
	}
	if manifestURI == "-" {
		return source
	}
	return filepath.Join(filepath.Dir(strings.TrimPrefix(manifestURI, "file://")), source)
}

// VerifyChecksums compares each source's MD5 with the S3 ETag, or with the
// digest of the local file. Sources without a checksum are skipped.
// Example:
//
//	if err := loader.VerifyChecksums(ctx, job); err != nil {
//	    log.Fatal("Checksum verification failed:", err)
//	}
func (l *SourceLoader) VerifyChecksums(ctx context.Context, job Job) error {
	for _, src := range job.Sources {
		if src.MD5Base64 == "" {
			continue
		}
		md5Bytes, err := base64.StdEncoding.DecodeString(src.MD5Base64)
		if err != nil {
			return fmt.Errorf("failed to decode MD5 Base64 for source %s: %w", src.URI, err)
		}
		expectedMD5Hex := fmt.Sprintf("%x", md5Bytes)

		var actual string
		if strings.HasPrefix(src.URI, "s3://") {
			actual, err = l.etag(ctx, src.URI)
		} else {
			actual, err = fileMD5(src.URI)
		}
		if err != nil {
			return err
		}

		// This assumes no multipart uploads, as S3 calculates ETags differently for multipart uploads
		if actual != expectedMD5Hex {
			return fmt.Errorf("checksum mismatch for source %s: expected %s, got %s",
				src.URI, expectedMD5Hex, actual)
		}
	}
	return nil
}

func (l *SourceLoader) etag(ctx context.Context, uri string) (string, error) {
	if l.client == nil {
		return "", fmt.Errorf("no S3 client configured for %s", uri)
	}
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return "", err
	}
	resp, err := l.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get metadata for source %s: %w", uri, err)
	}
	if resp.ETag == nil {
		return "", fmt.Errorf("ETag is nil for source %s", uri)
	}
	// Remove the quotes that may surround the ETag
	return strings.Trim(*resp.ETag, "\""), nil
}

func fileMD5(uri string) (string, error) {
	f, err := os.Open(filepath.Clean(strings.TrimPrefix(uri, "file://")))
	if err != nil {
		return "", fmt.Errorf("failed to open source %s: %w", uri, err)
	}
	defer func() { _ = f.Close() }()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read source %s: %w", uri, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	matches := s3URIPattern.FindStringSubmatch(uri)
	if len(matches) != 3 {
		return "", "", fmt.Errorf("invalid S3 URI format: %s (must be s3://bucket/key)", uri)
	}
	return matches[1], matches[2], nil
}

// Merge returns the inputs of one record with the job defaults filled in.
// Keys naming the same parameter of op, by name or alias in any case,
// collide, and the record wins.
func (j Job) Merge(op *schema.Operation, inputs map[string]any) map[string]any {
	if len(j.Defaults) == 0 {
		return inputs
	}
	merged := make(map[string]any, len(inputs)+len(j.Defaults))
	seen := make(map[string]bool, len(inputs))
	for k, v := range inputs {
		merged[k] = v
		seen[canonical(op, k)] = true
	}
	for k, v := range j.Defaults {
		if !seen[canonical(op, k)] {
			merged[k] = v
		}
	}
	return merged
}

// canonical is the parameter a key binds to, or the lowered key for
// reserved and unknown keys.
func canonical(op *schema.Operation, key string) string {
	if op != nil {
		if f, ok := op.Field(key); ok {
			return f.Name
		}
	}
	return strings.ToLower(key)
}
