// Package schema describes remote operations as static data: the input fields
// an operation accepts, where each field lands in the request, what the
// operation returns by default and how it pages. Operation values are built
// once at startup and never mutated.
package schema

import (
	"fmt"
	"strings"
)

// FieldType is the external type of an input parameter.
type FieldType int

const (
	TypeString     FieldType = iota // Plain string
	TypeInteger                     // Whole number, stored as int64
	TypeBoolean                     // true/false
	TypeBytes                       // Byte payload: raw bytes, a file, a stream or an S3 object
	TypeStringList                  // List of strings
	TypeEnum                        // String restricted to Field.Enum
	TypeObject                      // Free-form object (JSON)
	TypeObjectList                  // List of objects (JSON)
	TypeTimestamp                   // RFC 3339 timestamp
)

// String returns the name used in help text and error messages.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	case TypeBytes:
		return "bytes"
	case TypeStringList:
		return "string-list"
	case TypeEnum:
		return "enum"
	case TypeObject:
		return "object"
	case TypeObjectList:
		return "object-list"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Field describes one input parameter.
//
// Name is the external parameter name. Nested parameters are flattened with an
// underscore (ElasticsearchClusterConfig_InstanceType) while Path uses dots to
// address the composite group the value belongs to
// (ElasticsearchClusterConfig.InstanceType).
type Field struct {
	Name        string    // External parameter name
	Aliases     []string  // Historical names accepted for the same parameter
	Path        string    // Dotted location in the request
	Type        FieldType // External type
	Required    bool      // Whether the remote API requires the value
	Enum        []string  // Allowed values for TypeEnum
	Description string    // Help text
}

// Leaf returns the last segment of the field's path.
func (f Field) Leaf() string {
	if i := strings.LastIndexByte(f.Path, '.'); i >= 0 {
		return f.Path[i+1:]
	}
	return f.Path
}

// Parent returns the path of the group containing the field, empty for
// top-level fields.
func (f Field) Parent() string {
	if i := strings.LastIndexByte(f.Path, '.'); i >= 0 {
		return f.Path[:i]
	}
	return ""
}

// Names returns the canonical name followed by all aliases.
func (f Field) Names() []string {
	names := make([]string, 0, 1+len(f.Aliases))
	names = append(names, f.Name)
	return append(names, f.Aliases...)
}

// Paging describes how a list operation continues.
type Paging struct {
	InputToken  string // Request path of the continuation token
	OutputToken string // Response path of the next token
}

// Operation is the static descriptor of one remote API call.
type Operation struct {
	Service       string   // Service identifier (es, opensearch, translate)
	Name          string   // API operation name, e.g. CreateElasticsearchDomain
	Description   string   // One-line help text
	Fields        []Field  // Input parameters
	Groups        []string // Composite groups declared even when they hold no fields
	DefaultSelect string   // Selection applied when the caller gives none
	PassThru      string   // Field echoed by the legacy pass-thru switch
	Mutating      bool     // Whether the call creates, changes or deletes resources
	Paging        *Paging  // Non-nil for paginated operations
}

// Paginated reports whether the operation returns continuation tokens.
func (o *Operation) Paginated() bool {
	return o.Paging != nil
}

// CommandName returns the kebab-case command name, e.g. create-elasticsearch-domain.
func (o *Operation) CommandName() string {
	return FlagName(o.Name)
}

// IAMAction returns the IAM action the operation is authorized against.
// Elasticsearch and OpenSearch share the "es" action prefix.
func (o *Operation) IAMAction() string {
	prefix := o.Service
	if prefix == "opensearch" {
		prefix = "es"
	}
	return prefix + ":" + o.Name
}

// Field looks up a field by canonical name or alias. The lookup is
// case-insensitive since external names reach us through command-line flags.
func (o *Operation) Field(name string) (Field, bool) {
	for _, f := range o.Fields {
		for _, n := range f.Names() {
			if strings.EqualFold(n, name) {
				return f, true
			}
		}
	}
	return Field{}, false
}

// FieldByPath looks up a field by its request path.
func (o *Operation) FieldByPath(path string) (Field, bool) {
	for _, f := range o.Fields {
		if f.Path == path {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the descriptor for internal consistency: unique names and
// paths, no path that is both a leaf and a group, and references from
// PassThru and Paging that point at declared fields.
func (o *Operation) Validate() error {
	if o.Service == "" {
		return fmt.Errorf("operation %q: service is required", o.Name)
	}
	if o.Name == "" {
		return fmt.Errorf("operation in service %q: name is required", o.Service)
	}

	names := make(map[string]string)
	paths := make(map[string]bool)
	groups := make(map[string]bool)
	for _, g := range o.Groups {
		groups[g] = true
	}

	for _, f := range o.Fields {
		if f.Path == "" {
			return fmt.Errorf("operation %s: field %q has no path", o.Name, f.Name)
		}
		for _, seg := range strings.Split(f.Path, ".") {
			if seg == "" {
				return fmt.Errorf("operation %s: field %q has an empty path segment", o.Name, f.Name)
			}
		}
		for _, n := range f.Names() {
			key := strings.ToLower(n)
			if prev, ok := names[key]; ok {
				return fmt.Errorf("operation %s: name %q of field %q already used by %q", o.Name, n, f.Name, prev)
			}
			names[key] = f.Name
		}
		if paths[f.Path] {
			return fmt.Errorf("operation %s: path %q declared twice", o.Name, f.Path)
		}
		paths[f.Path] = true
		if f.Type == TypeEnum && len(f.Enum) == 0 {
			return fmt.Errorf("operation %s: enum field %q has no values", o.Name, f.Name)
		}
		for p := f.Parent(); p != ""; p = parentOf(p) {
			groups[p] = true
		}
	}

	for p := range paths {
		if groups[p] {
			return fmt.Errorf("operation %s: path %q is both a field and a group", o.Name, p)
		}
	}

	if o.PassThru != "" {
		if _, ok := o.Field(o.PassThru); !ok {
			return fmt.Errorf("operation %s: pass-thru field %q is not declared", o.Name, o.PassThru)
		}
	}
	if o.Paging != nil {
		if _, ok := o.FieldByPath(o.Paging.InputToken); !ok {
			return fmt.Errorf("operation %s: paging token field %q is not declared", o.Name, o.Paging.InputToken)
		}
		if o.Paging.OutputToken == "" {
			return fmt.Errorf("operation %s: paging output token is required", o.Name)
		}
	}

	return nil
}

func parentOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return ""
}
