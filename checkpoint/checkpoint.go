// Package checkpoint persists progress so interrupted runs can resume. A
// paginated invocation stores the continuation token of the last page it
// finished; a batch run stores the byte offset reached in each input source.
// Each piece of progress lives under its own key, so concurrent workers never
// share a record.
package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	json "github.com/goccy/go-json"
	"github.com/gurre/awsop/aws"
)

// State is the progress recorded under one key.
// Example:
//
//	state, err := store.Load(ctx, "es/ListElasticsearchVersions")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Resuming after token %q\n", state.NextToken)
type State struct {
	Key       string    `json:"key" dynamodbav:"key"`             // Identifies the run or source
	NextToken string    `json:"nextToken" dynamodbav:"nextToken"` // Continuation token to resume from
	Offset    int64     `json:"offset" dynamodbav:"offset"`       // Byte offset reached in a batch source
	Done      bool      `json:"done" dynamodbav:"done"`           // Whether the run or source completed
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Store saves and loads State by key. Loading a key that was never saved
// returns a zero State carrying the key, not an error.
type Store interface {
	Load(ctx context.Context, key string) (State, error)
	Save(ctx context.Context, s State) error
}

// NewStore opens the store named by uri:
//
//	""  or mem://              in-process memory
//	file:///abs/dir            one JSON file per key under dir
//	s3://bucket/prefix         one JSON object per key under prefix
//	dynamodb://table           one item per key, partition key "key"
func NewStore(uri string, clients *aws.Clients) (Store, error) {
	switch {
	case uri == "" || strings.HasPrefix(uri, "mem://"):
		return NewMemoryStore(), nil
	case strings.HasPrefix(uri, "file://"):
		return NewFileStore(uri)
	case strings.HasPrefix(uri, "s3://"):
		if clients == nil || clients.S3 == nil {
			return nil, fmt.Errorf("S3 checkpoint store requires an S3 client")
		}
		return NewS3Store(clients.S3, uri)
	case strings.HasPrefix(uri, "dynamodb://"):
		if clients == nil || clients.DynamoDB == nil {
			return nil, fmt.Errorf("DynamoDB checkpoint store requires a DynamoDB client")
		}
		return NewDynamoDBStore(clients.DynamoDB, uri)
	default:
		return nil, fmt.Errorf("unsupported checkpoint URI: %s", uri)
	}
}

// objectName maps a key to a file or object name. Keys contain slashes
// (service/operation) so they are escaped rather than used as paths.
func objectName(key string) string {
	return url.PathEscape(key) + ".json"
}

// S3Store keeps one JSON object per key under a bucket prefix.
type S3Store struct {
	client aws.S3Client
	bucket string
	prefix string
}

// NewS3Store creates an S3Store from an s3://bucket/prefix URI.
// Example:
//
//	store, err := checkpoint.NewS3Store(client, "s3://my-bucket/awsop/checkpoints")
func NewS3Store(client aws.S3Client, uri string) (*S3Store, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 URI: %w", err)
	}
	if u.Scheme != "s3" {
		return nil, fmt.Errorf("invalid S3 URI scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid S3 URI %s: bucket is required", uri)
	}

	return &S3Store{
		client: client,
		bucket: u.Host,
		prefix: strings.Trim(u.Path, "/"),
	}, nil
}

func (s *S3Store) objectKey(key string) string {
	return path.Join(s.prefix, objectName(key))
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, key string) (State, error) {
	objKey := s.objectKey(key)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return State{Key: key}, nil
		}
		// Some S3-compatible stores answer with NotFound instead.
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return State{Key: key}, nil
		}
		return State{}, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var state State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return State{}, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return state, nil
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, state State) error {
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	objKey := s.objectKey(state.Key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &objKey,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// FileStore keeps one JSON file per key in a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore from a file:// URI naming a directory. The
// path must be absolute; the directory is created when missing.
// Example:
//
//	store, err := checkpoint.NewFileStore("file:///var/lib/awsop/checkpoints")
func NewFileStore(uri string) (*FileStore, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid file URI: %w", err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("invalid file URI scheme: %s", u.Scheme)
	}

	dir := filepath.Clean(u.Path)
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("checkpoint path must be absolute: %s", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// Load implements Store.
func (f *FileStore) Load(ctx context.Context, key string) (State, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, objectName(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return State{Key: key}, nil
		}
		return State{}, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return state, nil
}

// Save implements Store. The file is replaced atomically via rename.
func (f *FileStore) Save(ctx context.Context, state State) error {
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	target := filepath.Join(f.dir, objectName(state.Key))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}
