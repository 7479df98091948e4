// Package output renders selected values for the terminal or a file.
package output

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
)

// Format names an output rendering.
type Format string

const (
	JSON Format = "json" // Indented JSON document
	Text Format = "text" // Scalars as-is, lists one element per line, bytes raw
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, Text:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want json or text)", s)
	}
}

// Write renders v to w in format f. A nil value writes nothing in text
// format and null in JSON.
func Write(w io.Writer, v any, f Format) error {
	if f == Text {
		return writeText(w, v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func writeText(w io.Writer, v any) error {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		// Documents are written byte for byte.
		_, err := w.Write(val)
		return err
	case []string:
		for _, s := range val {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range val {
			s, err := scalar(item)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
		return nil
	default:
		s, err := scalar(val)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, s)
		return err
	}
}

// scalar renders strings, numbers and booleans bare and everything else as
// compact JSON.
func scalar(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case bool, int, int32, int64, float64:
		return fmt.Sprint(val), nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("failed to encode output: %w", err)
		}
		return string(data), nil
	}
}
