// Package wire builds the nested request for an operation from a bound
// RequestContext. Composite groups are resolved bottom-up: a group is present
// only when at least one leaf below it is set, and a group with nothing set
// is left out entirely rather than sent as an empty object.
package wire

import (
	"bytes"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gurre/awsop/binder"
	"github.com/gurre/awsop/schema"
)

// Request is the nested request object for one invocation. The root is always
// present; nested groups are map[string]any values keyed by path segment.
type Request struct {
	root map[string]any
}

// Build constructs the request for rc.Operation. Every bound value lands at its
// field's path exactly once.
// Example:
//
//	req, err := wire.Build(rc)
//	if err != nil {
//	    return err
//	}
//	var in elasticsearchservice.CreateElasticsearchDomainInput
//	err = req.Decode(&in)
func Build(rc *binder.RequestContext) (*Request, error) {
	root, placed := buildGroup(rc.Operation.Tree(), rc.Values)
	if root == nil {
		root = map[string]any{}
	}
	if placed != len(rc.Values) {
		return nil, fmt.Errorf("failed to build %s request: placed %d of %d bound values", rc.Operation.Name, placed, len(rc.Values))
	}
	return &Request{root: root}, nil
}

// buildGroup populates g from values in post order. It returns nil when no
// leaf in or below g is set, together with the number of leaves placed.
func buildGroup(g *schema.Group, values map[string]any) (map[string]any, int) {
	var out map[string]any
	placed := 0

	for _, f := range g.Fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[f.Leaf()] = v
		placed++
	}

	for _, child := range g.Groups {
		sub, n := buildGroup(child, values)
		if sub == nil {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[child.Name] = sub
		placed += n
	}

	return out, placed
}

// Get returns the value at a dotted path.
func (r *Request) Get(path string) (any, bool) {
	var cur any = r.root
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set stores v at a dotted path, creating intermediate groups. Setting nil
// removes the value and prunes groups left empty.
func (r *Request) Set(path string, v any) {
	segs := strings.Split(path, ".")
	if v == nil {
		remove(r.root, segs)
		return
	}
	m := r.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[seg] = next
		}
		m = next
	}
	m[segs[len(segs)-1]] = v
}

func remove(m map[string]any, segs []string) {
	if len(segs) == 1 {
		delete(m, segs[0])
		return
	}
	next, ok := m[segs[0]].(map[string]any)
	if !ok {
		return
	}
	remove(next, segs[1:])
	if len(next) == 0 {
		delete(m, segs[0])
	}
}

// Map returns the underlying nested map. Callers must not modify it.
func (r *Request) Map() map[string]any {
	return r.root
}

// MarshalJSON encodes the request as it would be sent.
func (r *Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.root)
}

// Decode fills v, a pointer to an SDK input struct, from the request. Names in
// the request that v does not declare are rejected.
func (r *Request) Decode(v any) error {
	data, err := json.Marshal(r.root)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode request into %T: %w", v, err)
	}
	return nil
}
