// Package record decodes batch input lines into raw operation inputs.
package record

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// ErrCorrupt is returned when a line is not a JSON object of inputs.
var ErrCorrupt = fmt.Errorf("corrupt record")

// Record is one invocation's worth of inputs. Keys are parameter names or
// aliases, plus the reserved Select and PassThru keys, exactly as they would
// be given on the command line.
type Record struct {
	Inputs map[string]any
}

// Decoder turns one line into a Record.
type Decoder interface {
	Decode(line []byte) (Record, error)
}

// JSONDecoder decodes JSON-lines records. Numbers are kept as json.Number so
// large integers survive until the binder converts them.
type JSONDecoder struct{}

// NewJSONDecoder creates a JSONDecoder.
func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{}
}

// Decode parses a single JSON object. A JSON null value marks its parameter
// absent, the same as leaving it out.
// Example:
//
//	rec, err := d.Decode([]byte(`{"DomainName":"logs","Select":"DomainStatus.Endpoint"}`))
func (d *JSONDecoder) Decode(line []byte) (Record, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return Record{}, fmt.Errorf("%w: not a JSON object", ErrCorrupt)
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var inputs map[string]any
	if err := dec.Decode(&inputs); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if dec.More() {
		return Record{}, fmt.Errorf("%w: trailing data after object", ErrCorrupt)
	}
	return Record{Inputs: inputs}, nil
}

// Blank reports whether a line carries no record and should be skipped.
func Blank(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}
