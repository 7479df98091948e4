package mock

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is an in-memory mock of aws.S3StreamClient. ETags are the hex MD5
// of the content, as S3 computes them for single-part uploads.
type S3Client struct {
	mu sync.RWMutex
	// Maps bucket/key to file content
	Files map[string][]byte
	// Maps bucket/key to metadata
	Metadata map[string]map[string]string
	// Maps bucket/key to ETags
	ETags map[string]*string
	// Number of PutObject calls per bucket/key
	Puts map[string]int
}

// NewS3Client creates a new mock S3 client
func NewS3Client() *S3Client {
	return &S3Client{
		Files:    make(map[string][]byte),
		Metadata: make(map[string]map[string]string),
		ETags:    make(map[string]*string),
		Puts:     make(map[string]int),
	}
}

// AddFile stores content under bucket/key.
func (m *S3Client) AddFile(bucket, key string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFile(bucket+"/"+key, content, nil)
}

func (m *S3Client) addFile(bucketKey string, content []byte, metadata map[string]string) {
	m.Files[bucketKey] = content
	if metadata == nil {
		metadata = make(map[string]string)
	}
	m.Metadata[bucketKey] = metadata
	sum := md5.Sum(content)
	m.ETags[bucketKey] = aws.String(fmt.Sprintf("\"%x\"", sum))
}

// Object returns the content stored under bucket/key.
func (m *S3Client) Object(bucket, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.Files[bucket+"/"+key]
	return data, ok
}

// MD5Base64 returns the base64 MD5 of the object, the form job manifests use.
func (m *S3Client) MD5Base64(bucket, key string) string {
	data, _ := m.Object(bucket, key)
	sum := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (m *S3Client) lookup(bucket, key *string) (string, []byte, error) {
	bucketKey := fmt.Sprintf("%s/%s", aws.ToString(bucket), aws.ToString(key))
	content, ok := m.Files[bucketKey]
	if !ok {
		return "", nil, &types.NoSuchKey{
			Message: aws.String(fmt.Sprintf("The specified key does not exist: %s (have %v)", bucketKey, m.listKeys())),
		}
	}
	return bucketKey, content, nil
}

// GetObject implements the S3Client interface for reading objects. A Range
// of the form bytes=N- is honored.
func (m *S3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucketKey, content, err := m.lookup(params.Bucket, params.Key)
	if err != nil {
		return nil, err
	}

	if r := aws.ToString(params.Range); r != "" {
		var start, end int64 = 0, int64(len(content)) - 1
		if _, err := fmt.Sscanf(r, "bytes=%d-%d", &start, &end); err != nil {
			if _, err := fmt.Sscanf(r, "bytes=%d-", &start); err != nil {
				return nil, fmt.Errorf("mock S3: unsupported range %q", r)
			}
		}
		if start > int64(len(content)) {
			start = int64(len(content))
		}
		if end >= int64(len(content)) {
			end = int64(len(content)) - 1
		}
		if end < start {
			content = nil
		} else {
			content = content[start : end+1]
		}
	}

	contentLength := int64(len(content))
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(content)),
		Metadata:      m.Metadata[bucketKey],
		ETag:          m.ETags[bucketKey],
		ContentLength: &contentLength,
	}, nil
}

// PutObject implements the S3Client interface for writing objects
func (m *S3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	bucketKey := fmt.Sprintf("%s/%s", *params.Bucket, *params.Key)
	m.addFile(bucketKey, data, params.Metadata)
	m.Puts[bucketKey]++

	return &s3.PutObjectOutput{ETag: m.ETags[bucketKey]}, nil
}

// HeadObject implements the S3Client interface for retrieving object metadata
func (m *S3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucketKey, content, err := m.lookup(params.Bucket, params.Key)
	if err != nil {
		return nil, err
	}
	contentLength := int64(len(content))
	return &s3.HeadObjectOutput{
		ETag:          m.ETags[bucketKey],
		Metadata:      m.Metadata[bucketKey],
		ContentLength: &contentLength,
	}, nil
}

// listKeys returns a list of all keys in the mock S3 bucket (for debugging)
func (m *S3Client) listKeys() []string {
	keys := make([]string, 0, len(m.Files))
	for k := range m.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CreateMultipartUpload is a stub implementation for the s3streamer.S3Client interface
func (m *S3Client) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, fmt.Errorf("CreateMultipartUpload not implemented in mock")
}

// UploadPart is a stub implementation for the s3streamer.S3Client interface
func (m *S3Client) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, fmt.Errorf("UploadPart not implemented in mock")
}

// CompleteMultipartUpload is a stub implementation for the s3streamer.S3Client interface
func (m *S3Client) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, fmt.Errorf("CompleteMultipartUpload not implemented in mock")
}

// AbortMultipartUpload is a stub implementation for the s3streamer.S3Client interface
func (m *S3Client) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, fmt.Errorf("AbortMultipartUpload not implemented in mock")
}
