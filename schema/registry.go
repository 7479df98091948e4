package schema

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Registry holds the operation descriptors known to the program, keyed by
// service and operation name.
type Registry struct {
	ops      map[string]*Operation
	services map[string][]*Operation
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		ops:      make(map[string]*Operation),
		services: make(map[string][]*Operation),
	}
}

// Register validates op and adds it to the registry.
func (r *Registry) Register(op *Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	key := registryKey(op.Service, op.Name)
	if _, ok := r.ops[key]; ok {
		return fmt.Errorf("operation %s/%s registered twice", op.Service, op.Name)
	}
	r.ops[key] = op
	r.services[op.Service] = append(r.services[op.Service], op)
	return nil
}

// MustRegister is Register for static tables; it panics on invalid descriptors.
func (r *Registry) MustRegister(ops ...*Operation) {
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
}

// Lookup finds an operation by its API name (CreateElasticsearchDomain) or
// its command name (create-elasticsearch-domain).
func (r *Registry) Lookup(service, name string) (*Operation, bool) {
	if op, ok := r.ops[registryKey(service, name)]; ok {
		return op, true
	}
	for _, op := range r.services[service] {
		if op.CommandName() == name {
			return op, true
		}
	}
	return nil, false
}

// Services returns the registered service identifiers in sorted order.
func (r *Registry) Services() []string {
	out := make([]string, 0, len(r.services))
	for s := range r.services {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Operations returns the operations of a service in registration order.
func (r *Registry) Operations(service string) []*Operation {
	return r.services[service]
}

func registryKey(service, name string) string {
	return service + "/" + strings.ToLower(name)
}

// FlagName converts an external parameter or operation name to kebab-case:
// ElasticsearchClusterConfig_InstanceType becomes
// elasticsearch-cluster-config-instance-type and EBSOptions_VolumeSize becomes
// ebs-options-volume-size.
func FlagName(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(runes) + 8)

	dash := func() {
		if s := b.String(); s != "" && !strings.HasSuffix(s, "-") {
			b.WriteByte('-')
		}
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.':
			dash()
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				dash()
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
