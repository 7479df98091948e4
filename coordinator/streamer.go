package coordinator

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Streamer delivers the lines of one source with the byte offset at which
// each line starts. s3streamer.Streamer satisfies it for S3 objects.
type Streamer interface {
	Stream(ctx context.Context, bucket, key string, offset int64, fn func(line []byte, byteOffset int64) error) error
}

// maxLineSize bounds a single record.
const maxLineSize = 16 << 20

// FileStreamer streams local files and standard input. The bucket argument
// is ignored; key is the path, "-" for stdin.
type FileStreamer struct {
	Stdin io.Reader // Read for "-"; os.Stdin when nil
}

// Stream implements Streamer. Reading starts at offset, which must fall on a
// line boundary.
func (s *FileStreamer) Stream(ctx context.Context, _, key string, offset int64, fn func([]byte, int64) error) error {
	var r io.Reader
	if key == "-" {
		r = s.Stdin
		if r == nil {
			r = os.Stdin
		}
		if offset > 0 {
			if _, err := io.CopyN(io.Discard, r, offset); err != nil {
				return fmt.Errorf("failed to skip to offset %d: %w", offset, err)
			}
		}
	} else {
		f, err := os.Open(filepath.Clean(strings.TrimPrefix(key, "file://")))
		if err != nil {
			return fmt.Errorf("failed to open source: %w", err)
		}
		defer func() { _ = f.Close() }()
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to offset %d: %w", offset, err)
		}
		r = f
	}

	br := bufio.NewReaderSize(r, 64<<10)
	pos := offset
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := br.ReadBytes('\n')
		if len(raw) > maxLineSize {
			return fmt.Errorf("line at offset %d exceeds %d bytes", pos, maxLineSize)
		}
		if len(raw) > 0 {
			line := bytes.TrimRight(raw, "\r\n")
			if ferr := fn(line, pos); ferr != nil {
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
