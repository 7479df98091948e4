// Package catalog holds the operation tables for the Elasticsearch Service,
// OpenSearch Service and Translate APIs and binds each descriptor to its SDK
// input type and client method. The tables are plain data; the only code per
// operation is the one-line binding to the SDK method.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/schema"
	"github.com/gurre/awsop/wire"
)

// entry ties a descriptor to the SDK call that serves it.
type entry struct {
	op       *schema.Operation
	newInput func() any
	send     func(ctx context.Context, c *aws.Clients, in any) (any, error)
}

// call adapts an SDK client method, given as a method expression such as
// aws.TranslateClient.TranslateText, into an entry.
func call[C any, In any, Out any, O any](
	op *schema.Operation,
	pick func(*aws.Clients) C,
	method func(C, context.Context, *In, ...func(*O)) (*Out, error),
) entry {
	return entry{
		op:       op,
		newInput: func() any { return new(In) },
		send: func(ctx context.Context, c *aws.Clients, in any) (any, error) {
			client := pick(c)
			if any(client) == nil {
				return nil, fmt.Errorf("no %s client configured", op.Service)
			}
			typed, ok := in.(*In)
			if !ok {
				return nil, fmt.Errorf("%s: input is %T, want %T", op.Name, in, new(In))
			}
			out, err := method(client, ctx, typed)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

func elasticsearch(c *aws.Clients) aws.ElasticsearchClient { return c.Elasticsearch }
func openSearch(c *aws.Clients) aws.OpenSearchClient       { return c.OpenSearch }
func translation(c *aws.Clients) aws.TranslateClient       { return c.Translate }

// Catalog is the set of operations awsop can invoke.
type Catalog struct {
	registry *schema.Registry
	entries  map[*schema.Operation]entry
}

// New builds the catalog of every supported operation.
func New() *Catalog {
	c := &Catalog{
		registry: schema.NewRegistry(),
		entries:  make(map[*schema.Operation]entry),
	}
	for _, group := range [][]entry{elasticsearchEntries(), openSearchEntries(), translateEntries()} {
		for _, e := range group {
			c.registry.MustRegister(e.op)
			c.entries[e.op] = e
		}
	}
	return c
}

// Registry returns the operation descriptors.
func (c *Catalog) Registry() *schema.Registry {
	return c.registry
}

// Lookup finds an operation by service and API or command name.
func (c *Catalog) Lookup(service, name string) (*schema.Operation, error) {
	op, ok := c.registry.Lookup(service, name)
	if !ok {
		return nil, fmt.Errorf("unknown operation %s %s", service, name)
	}
	return op, nil
}

// NewInput returns a fresh SDK input value for op.
func (c *Catalog) NewInput(op *schema.Operation) (any, error) {
	e, ok := c.entries[op]
	if !ok {
		return nil, fmt.Errorf("operation %s/%s is not in the catalog", op.Service, op.Name)
	}
	return e.newInput(), nil
}

// SDKTransport sends catalog operations through the AWS SDK clients.
// Example:
//
//	t := &catalog.SDKTransport{Catalog: catalog.New(), Clients: aws.NewClients(cfg)}
//	inv := invoker.New(t)
type SDKTransport struct {
	Catalog *Catalog
	Clients *aws.Clients
}

// Send decodes req into the operation's SDK input and calls the client.
func (t *SDKTransport) Send(ctx context.Context, op *schema.Operation, req *wire.Request) (any, error) {
	e, ok := t.Catalog.entries[op]
	if !ok {
		return nil, fmt.Errorf("operation %s/%s is not in the catalog", op.Service, op.Name)
	}
	in := e.newInput()
	if err := req.Decode(in); err != nil {
		return nil, err
	}
	return e.send(ctx, t.Clients, in)
}

// Endpoint implements invoker.Transport.
func (t *SDKTransport) Endpoint(service string) string {
	return t.Clients.Endpoint(service)
}

// Field constructors keep the tables readable. Names are derived from paths
// the way the flattened parameter names read: the innermost group and the
// leaf joined with an underscore (EBSOptions.VolumeSize is EBSOptions_VolumeSize).

func nameOf(path string) string {
	segs := strings.Split(path, ".")
	if len(segs) == 1 {
		return path
	}
	return segs[len(segs)-2] + "_" + segs[len(segs)-1]
}

func field(path string, t schema.FieldType, desc string) schema.Field {
	return schema.Field{Name: nameOf(path), Path: path, Type: t, Description: desc}
}

func str(path, desc string) schema.Field   { return field(path, schema.TypeString, desc) }
func num(path, desc string) schema.Field   { return field(path, schema.TypeInteger, desc) }
func flag(path, desc string) schema.Field  { return field(path, schema.TypeBoolean, desc) }
func list(path, desc string) schema.Field  { return field(path, schema.TypeStringList, desc) }
func obj(path, desc string) schema.Field   { return field(path, schema.TypeObject, desc) }
func objs(path, desc string) schema.Field  { return field(path, schema.TypeObjectList, desc) }
func blob(path, desc string) schema.Field  { return field(path, schema.TypeBytes, desc) }
func stamp(path, desc string) schema.Field { return field(path, schema.TypeTimestamp, desc) }

func oneOf(path, desc string, values ...string) schema.Field {
	f := field(path, schema.TypeEnum, desc)
	f.Enum = values
	return f
}

func required(f schema.Field) schema.Field {
	f.Required = true
	return f
}

func aka(f schema.Field, aliases ...string) schema.Field {
	f.Aliases = aliases
	return f
}

func paged() *schema.Paging {
	return &schema.Paging{InputToken: "NextToken", OutputToken: "NextToken"}
}

func pageFields() []schema.Field {
	return []schema.Field{
		num("MaxResults", "Maximum number of results per page"),
		str("NextToken", "Continuation token from a previous page"),
	}
}
