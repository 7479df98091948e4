// Package selector projects an operation response through a selection
// expression. An expression is "*" for the whole response, a dotted path into
// the response (gjson syntax, so DomainNames.#.DomainName walks a list), or
// "^Field" to echo a bound input instead of reading the response at all.
package selector

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gurre/awsop/binder"
	"github.com/gurre/awsop/schema"
	"github.com/tidwall/gjson"
)

// Whole selects the entire response.
const Whole = "*"

// Kind distinguishes the three forms of expression.
type Kind int

const (
	KindWhole Kind = iota // The response unchanged
	KindPath              // A property path into the response
	KindEcho              // A bound input field
)

// Expression is a parsed selection expression.
type Expression struct {
	Kind  Kind
	Path  string // Set for KindPath
	Field string // Set for KindEcho
}

func (e Expression) String() string {
	switch e.Kind {
	case KindPath:
		return e.Path
	case KindEcho:
		return "^" + e.Field
	default:
		return Whole
	}
}

// UnknownSelectionError reports an expression that does not resolve.
type UnknownSelectionError struct {
	Expression string
	Reason     string
}

func (e *UnknownSelectionError) Error() string {
	return fmt.Sprintf("unknown selection %q: %s", e.Expression, e.Reason)
}

// ConflictingSelectionError reports an explicit selection combined with the
// pass-thru switch.
type ConflictingSelectionError struct {
	Select string
}

func (e *ConflictingSelectionError) Error() string {
	return fmt.Sprintf("selection %q cannot be combined with pass-thru", e.Select)
}

// Parse parses a selection expression.
func Parse(s string) (Expression, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == Whole:
		return Expression{Kind: KindWhole}, nil
	case strings.HasPrefix(s, "^"):
		field := strings.TrimPrefix(s, "^")
		if field == "" {
			return Expression{}, &UnknownSelectionError{Expression: s, Reason: "missing field name"}
		}
		return Expression{Kind: KindEcho, Field: field}, nil
	case s == "":
		return Expression{}, &UnknownSelectionError{Expression: s, Reason: "empty expression"}
	default:
		return Expression{Kind: KindPath, Path: s}, nil
	}
}

// Resolve determines the expression for an invocation from the bound context
// and the operation defaults. Echo expressions must name a declared field.
func Resolve(op *schema.Operation, rc *binder.RequestContext) (Expression, error) {
	raw := rc.Select
	switch {
	case rc.PassThru && raw != "":
		return Expression{}, &ConflictingSelectionError{Select: raw}
	case rc.PassThru:
		if op.PassThru == "" {
			return Expression{}, &UnknownSelectionError{Expression: "^", Reason: op.Name + " has no pass-thru field"}
		}
		raw = "^" + op.PassThru
	case raw == "":
		raw = op.DefaultSelect
		if raw == "" {
			raw = Whole
		}
	}

	expr, err := Parse(raw)
	if err != nil {
		return Expression{}, err
	}
	if expr.Kind == KindEcho {
		f, ok := op.Field(expr.Field)
		if !ok {
			return Expression{}, &UnknownSelectionError{Expression: raw, Reason: "no such input field"}
		}
		expr.Field = f.Name
	}
	return expr, nil
}

// Select applies expr to resp. Echo expressions read rc and ignore resp, so
// they work even when resp is nil. Select has no side effects.
//
// Byte values are returned as copies, raw rather than base64, so they stay
// valid after rc is released.
// Example:
//
//	expr, _ := selector.Parse("DomainStatus.Endpoint")
//	v, err := selector.Select(out, expr, rc)
func Select(resp any, expr Expression, rc *binder.RequestContext) (any, error) {
	switch expr.Kind {
	case KindWhole:
		return resp, nil

	case KindEcho:
		v, ok := rc.Value(expr.Field)
		if !ok {
			return nil, nil
		}
		if b, ok := v.([]byte); ok {
			return bytes.Clone(b), nil
		}
		return v, nil

	case KindPath:
		if resp == nil {
			return nil, &UnknownSelectionError{Expression: expr.Path, Reason: "response is empty"}
		}
		if b, ok := byteLeaf(resp, expr.Path); ok {
			return bytes.Clone(b), nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to encode response: %w", err)
		}
		result := gjson.GetBytes(data, expr.Path)
		if !result.Exists() {
			return nil, &UnknownSelectionError{Expression: expr.Path, Reason: "path not found in response"}
		}
		return result.Value(), nil

	default:
		return nil, &UnknownSelectionError{Expression: expr.String(), Reason: "unsupported expression"}
	}
}

// byteLeaf walks a plain dotted path through struct fields and string-keyed
// maps and reports the value at its end if that is a byte slice. Paths using
// any gjson syntax beyond dots are left to gjson.
func byteLeaf(resp any, path string) ([]byte, bool) {
	if strings.ContainsAny(path, `#*?|@\!`) {
		return nil, false
	}
	v := reflect.ValueOf(resp)
	for _, name := range strings.Split(path, ".") {
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil, false
			}
			v = v.Elem()
		}
		switch v.Kind() {
		case reflect.Struct:
			v = v.FieldByName(name)
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			v = v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		default:
			return nil, false
		}
		if !v.IsValid() {
			return nil, false
		}
	}
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice || v.Type().Elem().Kind() != reflect.Uint8 {
		return nil, false
	}
	return v.Bytes(), true
}

// Lookup returns the raw JSON at path in resp, empty when the path does not
// resolve. The pagination driver uses it to read continuation tokens.
func Lookup(resp any, path string) (string, error) {
	if resp == nil {
		return "", nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to encode response: %w", err)
	}
	r := gjson.GetBytes(data, path)
	if !r.Exists() || r.Type == gjson.Null {
		return "", nil
	}
	return r.String(), nil
}
