package manifest

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gurre/awsop/binder"
	"github.com/gurre/awsop/schema"
)

// mockS3Client implements the aws.S3Client interface for testing
type mockS3Client struct {
	data  map[string][]byte // Keyed by bucket/key
	etags map[string]string // Custom ETags for specific objects
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.data[*params.Bucket+"/"+*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	name := *params.Bucket + "/" + *params.Key
	if etag, ok := m.etags[name]; ok {
		return &s3.HeadObjectOutput{ETag: aws.String(etag)}, nil
	}
	data, ok := m.data[name]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ETag: aws.String(fmt.Sprintf("\"%x\"", md5.Sum(data)))}, nil
}

func md5Base64(data []byte) string {
	sum := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

const records = `{"Text":"Hallo"}
{"Text":"Welt"}
`

func newLoader(client *mockS3Client) *SourceLoader {
	return NewSourceLoader(&binder.SourceOpener{S3: client}, client)
}

func TestLoad_S3(t *testing.T) {
	client := &mockS3Client{data: map[string][]byte{
		"jobs-bucket/jobs/translate.json": []byte(`{
			"version": "1",
			"service": "translate",
			"operation": "TranslateText",
			"defaults": {"SourceLanguageCode": "de", "TargetLanguageCode": "en"},
			"sources": [
				{"uri": "records-1.jsonl", "recordCount": 2},
				{"uri": "s3://other-bucket/records-2.jsonl"}
			]
		}`),
	}}

	job, err := newLoader(client).Load(context.Background(), "s3://jobs-bucket/jobs/translate.json")
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}
	if job.Service != "translate" || job.Operation != "TranslateText" {
		t.Errorf("job = %s/%s", job.Service, job.Operation)
	}
	if len(job.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(job.Sources))
	}
	if got := job.Sources[0].URI; got != "s3://jobs-bucket/jobs/records-1.jsonl" {
		t.Errorf("relative source resolved to %s", got)
	}
	if got := job.Sources[1].URI; got != "s3://other-bucket/records-2.jsonl" {
		t.Errorf("absolute source rewritten to %s", got)
	}
	if job.Sources[0].RecordCount != 2 {
		t.Errorf("recordCount = %d", job.Sources[0].RecordCount)
	}
}

func TestLoad_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.json")
	if err := os.WriteFile(path, []byte(`{"service":"es","operation":"DescribeElasticsearchDomain","sources":[{"uri":"domains.jsonl"}]}`), 0644); err != nil {
		t.Fatal(err)
	}

	job, err := newLoader(&mockS3Client{}).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}
	if want := filepath.Join(dir, "domains.jsonl"); job.Sources[0].URI != want {
		t.Errorf("source = %s, want %s", job.Sources[0].URI, want)
	}
}

// TestManifestLoaderErrorCases tests error handling in the loader
func TestManifestLoaderErrorCases(t *testing.T) {
	client := &mockS3Client{data: map[string][]byte{
		"b/corrupt.json":      []byte(`{"operation":`),
		"b/no-op.json":        []byte(`{"sources":[{"uri":"a.jsonl"}]}`),
		"b/no-sources.json":   []byte(`{"operation":"ListTags"}`),
		"b/empty-source.json": []byte(`{"operation":"ListTags","sources":[{"uri":""}]}`),
	}}
	loader := newLoader(client)

	for _, uri := range []string{
		"s3://b/missing.json",
		"s3://b/corrupt.json",
		"s3://b/no-op.json",
		"s3://b/no-sources.json",
		"s3://b/empty-source.json",
	} {
		if _, err := loader.Load(context.Background(), uri); err == nil {
			t.Errorf("expected error loading %s, got nil", uri)
		}
	}
}

func TestVerifyChecksums(t *testing.T) {
	data := []byte(records)
	client := &mockS3Client{
		data: map[string][]byte{"b/records.jsonl": data},
		etags: map[string]string{
			"b/multipart.jsonl": "\"9b2cf535f27731c974343645a3985328-2\"",
		},
	}
	local := filepath.Join(t.TempDir(), "records.jsonl")
	if err := os.WriteFile(local, data, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		sources []Source
		wantErr bool
	}{
		{"s3 match", []Source{{URI: "s3://b/records.jsonl", MD5Base64: md5Base64(data)}}, false},
		{"local match", []Source{{URI: local, MD5Base64: md5Base64(data)}}, false},
		{"no checksum skipped", []Source{{URI: "s3://b/absent.jsonl"}}, false},
		{"s3 mismatch", []Source{{URI: "s3://b/records.jsonl", MD5Base64: md5Base64([]byte("other"))}}, true},
		{"multipart etag", []Source{{URI: "s3://b/multipart.jsonl", MD5Base64: md5Base64(data)}}, true},
		{"local mismatch", []Source{{URI: local, MD5Base64: md5Base64(nil)}}, true},
		{"missing object", []Source{{URI: "s3://b/absent.jsonl", MD5Base64: md5Base64(data)}}, true},
		{"bad base64", []Source{{URI: local, MD5Base64: "%%%"}}, true},
	}
	loader := newLoader(client)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loader.VerifyChecksums(context.Background(), Job{Sources: tt.sources})
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyChecksums() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://bucket/path/to/records.jsonl")
	if err != nil || bucket != "bucket" || key != "path/to/records.jsonl" {
		t.Errorf("ParseS3URI() = %q, %q, %v", bucket, key, err)
	}

	// TestInvalidS3URI
	for _, uri := range []string{"not-an-s3-uri", "s3://", "s3://bucket", "file:///path/to/file"} {
		if _, _, err := ParseS3URI(uri); err == nil {
			t.Errorf("expected error for invalid URI %s, got nil", uri)
		}
	}
}

func TestMerge(t *testing.T) {
	job := Job{Defaults: map[string]any{"SourceLanguageCode": "de", "TargetLanguageCode": "en"}}
	got := job.Merge(nil, map[string]any{"Text": "Hallo", "targetlanguagecode": "fr"})

	if len(got) != 3 {
		t.Fatalf("merged = %v", got)
	}
	if got["SourceLanguageCode"] != "de" {
		t.Errorf("default not applied: %v", got)
	}
	if _, ok := got["TargetLanguageCode"]; ok {
		t.Errorf("default overrode record value: %v", got)
	}
	if got["targetlanguagecode"] != "fr" {
		t.Errorf("record value lost: %v", got)
	}

	in := map[string]any{"Text": "x"}
	if out := (Job{}).Merge(nil, in); len(out) != 1 {
		t.Errorf("Merge without defaults = %v", out)
	}
}

func TestMergeResolvesAliases(t *testing.T) {
	op := &schema.Operation{
		Service: "translate",
		Name:    "TranslateText",
		Fields: []schema.Field{
			{Name: "SourceLanguageCode", Aliases: []string{"From"}, Path: "SourceLanguageCode", Type: schema.TypeString},
			{Name: "TargetLanguageCode", Aliases: []string{"To"}, Path: "TargetLanguageCode", Type: schema.TypeString},
			{Name: "Text", Path: "Text", Type: schema.TypeString},
		},
	}
	job := Job{Defaults: map[string]any{"SourceLanguageCode": "de", "to": "en", "Select": "TranslatedText"}}
	got := job.Merge(op, map[string]any{"Text": "Hallo", "From": "fr", "TargetLanguageCode": "sv"})

	if _, ok := got["SourceLanguageCode"]; ok {
		t.Errorf("default added beside its alias: %v", got)
	}
	if _, ok := got["to"]; ok {
		t.Errorf("aliased default added beside the record value: %v", got)
	}
	if got["From"] != "fr" || got["TargetLanguageCode"] != "sv" {
		t.Errorf("record values lost: %v", got)
	}
	if got["Select"] != "TranslatedText" {
		t.Errorf("reserved default not applied: %v", got)
	}
	if len(got) != 4 {
		t.Errorf("merged = %v", got)
	}
}
