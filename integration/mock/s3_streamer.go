package mock

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
)

// Stream serves an object line by line the way the batch coordinator expects
// of a streamer: each line with the byte offset at which it starts, reading
// from offset onwards. It lets tests control offsets exactly without going
// through ranged reads.
func (m *S3Client) Stream(ctx context.Context, bucket, key string, offset int64, fn func([]byte, int64) error) error {
	content, ok := m.Object(bucket, key)
	if !ok {
		return fmt.Errorf("mock S3: key not found: %s/%s", bucket, key)
	}
	if offset > int64(len(content)) {
		return fmt.Errorf("mock S3: offset %d beyond end of %s/%s", offset, bucket, key)
	}

	r := bufio.NewReader(bytes.NewReader(content[offset:]))
	pos := offset
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := r.ReadBytes('\n')
		if len(raw) > 0 {
			if ferr := fn(bytes.TrimRight(raw, "\r\n"), pos); ferr != nil {
				return ferr
			}
			pos += int64(len(raw))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading lines: %w", err)
		}
	}
}
