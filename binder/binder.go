// Package binder maps named external inputs onto a RequestContext for one
// operation. It resolves aliases, converts values to the field's declared
// type, reads byte payloads into pooled buffers and checks required fields in
// either lenient or strict mode.
package binder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/gurre/awsop/schema"
	"go.uber.org/zap"
)

// Reserved input names that configure the invocation rather than a request field.
const (
	KeySelect   = "Select"
	KeyPassThru = "PassThru"
)

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Options controls binding behaviour.
type Options struct {
	Strict bool        // Missing required and unknown fields are errors instead of warnings
	Opener Opener      // Resolves string byte-payload sources; a SourceOpener without S3 when nil
	Logger *zap.Logger // Receives lenient-mode warnings; no-op when nil
}

// RequestContext holds the values bound for one invocation. It is owned by a
// single invocation and must be released once the request has completed.
type RequestContext struct {
	Operation *schema.Operation
	Values    map[string]any // Canonical field name to converted value
	Select    string         // Selection expression, empty for the operation default
	PassThru  bool           // Legacy switch echoing the operation's pass-thru field
	Warnings  []error        // Problems tolerated in lenient mode

	buffers []*bytes.Buffer
}

// Value returns the bound value of a field looked up by name or alias.
func (rc *RequestContext) Value(name string) (any, bool) {
	f, ok := rc.Operation.Field(name)
	if !ok {
		return nil, false
	}
	v, ok := rc.Values[f.Name]
	return v, ok
}

// Release returns byte-payload buffers to the pool. Byte slices bound to the
// context must not be used afterwards. Release is idempotent.
func (rc *RequestContext) Release() {
	for _, b := range rc.buffers {
		b.Reset()
		bufferPool.Put(b)
	}
	rc.buffers = nil
}

// Bind builds a RequestContext from raw inputs. Keys are matched against
// field names and aliases case-insensitively; nil values count as absent.
// On error every buffer acquired so far has already been released.
// Example:
//
//	rc, err := binder.Bind(ctx, map[string]any{
//	    "DomainName":   "logs",
//	    "InstanceType": "m5.large.search",
//	}, op, binder.Options{Strict: true})
//	if err != nil {
//	    return err
//	}
//	defer rc.Release()
func Bind(ctx context.Context, raw map[string]any, op *schema.Operation, opts Options) (_ *RequestContext, err error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opener := opts.Opener
	if opener == nil {
		opener = &SourceOpener{}
	}

	rc := &RequestContext{
		Operation: op,
		Values:    make(map[string]any, len(raw)),
	}
	defer func() {
		if err != nil {
			rc.Release()
		}
	}()

	// Deterministic order keeps duplicate and unknown-field reports stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string][]string)
	var problems []error

	for _, key := range keys {
		value := raw[key]
		if value == nil {
			continue
		}

		switch {
		case strings.EqualFold(key, KeySelect):
			s, cerr := toString(value)
			if cerr != nil {
				return nil, &InvalidValueError{Field: KeySelect, Type: schema.TypeString, Err: cerr}
			}
			rc.Select = s
			continue
		case strings.EqualFold(key, KeyPassThru):
			b, cerr := toBool(value)
			if cerr != nil {
				return nil, &InvalidValueError{Field: KeyPassThru, Type: schema.TypeBoolean, Err: cerr}
			}
			rc.PassThru = b
			continue
		}

		f, ok := op.Field(key)
		if !ok {
			problems = append(problems, &UnknownFieldError{Operation: op.Name, Name: key})
			continue
		}
		seen[f.Name] = append(seen[f.Name], key)
		if len(seen[f.Name]) > 1 {
			return nil, &DuplicateFieldError{Field: f.Name, Names: seen[f.Name]}
		}

		var converted any
		if f.Type == schema.TypeBytes {
			converted, err = rc.bindPayload(ctx, opener, f, value)
			if err != nil {
				return nil, err
			}
		} else {
			converted, err = convert(f, value)
			if err != nil {
				return nil, &InvalidValueError{Field: f.Name, Type: f.Type, Err: err}
			}
		}
		rc.Values[f.Name] = converted
	}

	for _, f := range op.Fields {
		if !f.Required {
			continue
		}
		if _, ok := rc.Values[f.Name]; !ok {
			problems = append(problems, &MissingRequiredFieldError{Operation: op.Name, Field: f.Name})
		}
	}

	if len(problems) == 0 {
		return rc, nil
	}
	if opts.Strict {
		return nil, errors.Join(problems...)
	}
	for _, p := range problems {
		log.Warn("binding problem tolerated", zap.String("operation", op.Name), zap.Error(p))
	}
	rc.Warnings = problems
	return rc, nil
}

// bindPayload normalizes a byte-payload input into a pooled buffer. Accepted
// shapes are []byte, io.Reader (read to the end, not closed) and a string
// source resolved by the opener.
func (rc *RequestContext) bindPayload(ctx context.Context, opener Opener, f schema.Field, value any) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	rc.buffers = append(rc.buffers, buf)

	switch v := value.(type) {
	case []byte:
		buf.Write(v)
	case io.Reader:
		if _, err := buf.ReadFrom(v); err != nil {
			return nil, &InvalidValueError{Field: f.Name, Type: f.Type, Err: err}
		}
	case string:
		r, err := opener.Open(ctx, v)
		if err != nil {
			return nil, &InvalidValueError{Field: f.Name, Type: f.Type, Err: err}
		}
		_, err = buf.ReadFrom(r)
		_ = r.Close()
		if err != nil {
			return nil, &InvalidValueError{Field: f.Name, Type: f.Type, Err: fmt.Errorf("failed to read payload: %w", err)}
		}
	default:
		return nil, &InvalidValueError{Field: f.Name, Type: f.Type, Err: fmt.Errorf("%w: %T", errUnsupported, value)}
	}
	return buf.Bytes(), nil
}
