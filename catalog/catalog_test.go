package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/elasticsearchservice"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	awsop "github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/binder"
	"github.com/gurre/awsop/schema"
	"github.com/gurre/awsop/wire"
)

func sampleValue(f schema.Field) any {
	switch f.Type {
	case schema.TypeInteger:
		return 1
	case schema.TypeBoolean:
		return true
	case schema.TypeBytes:
		return []byte("payload")
	case schema.TypeStringList:
		return []string{"a", "b"}
	case schema.TypeEnum:
		return f.Enum[0]
	case schema.TypeObject:
		return map[string]any{}
	case schema.TypeObjectList:
		return []any{map[string]any{}}
	case schema.TypeTimestamp:
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	default:
		return "value"
	}
}

// TestEveryFieldDecodesIntoSDKInput binds every declared field of every
// operation and decodes the built request into the SDK input type, which
// rejects names the SDK does not declare.
func TestEveryFieldDecodesIntoSDKInput(t *testing.T) {
	c := New()
	for _, svc := range c.Registry().Services() {
		for _, op := range c.Registry().Operations(svc) {
			t.Run(svc+"/"+op.Name, func(t *testing.T) {
				raw := make(map[string]any, len(op.Fields))
				for _, f := range op.Fields {
					raw[f.Name] = sampleValue(f)
				}
				rc, err := binder.Bind(context.Background(), raw, op, binder.Options{Strict: true})
				if err != nil {
					t.Fatalf("Bind() error: %v", err)
				}
				defer rc.Release()

				req, err := wire.Build(rc)
				if err != nil {
					t.Fatalf("Build() error: %v", err)
				}
				in, err := c.NewInput(op)
				if err != nil {
					t.Fatal(err)
				}
				if err := req.Decode(in); err != nil {
					t.Fatalf("Decode() error: %v", err)
				}
			})
		}
	}
}

func TestCatalogShape(t *testing.T) {
	c := New()
	want := map[string]int{
		awsop.ServiceElasticsearch: 13,
		awsop.ServiceOpenSearch:    9,
		awsop.ServiceTranslate:     14,
	}
	for svc, n := range want {
		if got := len(c.Registry().Operations(svc)); got != n {
			t.Errorf("%s operations = %d, want %d", svc, got, n)
		}
	}

	for _, svc := range c.Registry().Services() {
		for _, op := range c.Registry().Operations(svc) {
			verb := op.Name
			for _, prefix := range []string{"Create", "Delete", "Update", "Upgrade", "Add", "Remove", "Import", "Start", "Stop", "Tag", "Untag"} {
				if strings.HasPrefix(verb, prefix) && !op.Mutating {
					t.Errorf("%s/%s should be mutating", svc, op.Name)
				}
			}
			for _, prefix := range []string{"Describe", "List", "Get"} {
				if strings.HasPrefix(verb, prefix) && op.Mutating {
					t.Errorf("%s/%s should not be mutating", svc, op.Name)
				}
			}
			if strings.HasPrefix(verb, "List") && op.Paginated() {
				if _, ok := op.FieldByPath("NextToken"); !ok {
					t.Errorf("%s/%s paginated without NextToken field", svc, op.Name)
				}
			}
		}
	}
}

func TestLookup(t *testing.T) {
	c := New()
	op, err := c.Lookup("es", "create-elasticsearch-domain")
	if err != nil {
		t.Fatal(err)
	}
	if op.Name != "CreateElasticsearchDomain" {
		t.Errorf("Lookup() = %s", op.Name)
	}
	if _, err := c.Lookup("es", "translate-text"); err == nil {
		t.Error("expected error for operation of another service")
	}
}

type esStub struct {
	awsop.ElasticsearchClient
	got *elasticsearchservice.DescribeElasticsearchDomainInput
}

func (s *esStub) DescribeElasticsearchDomain(ctx context.Context, in *elasticsearchservice.DescribeElasticsearchDomainInput, _ ...func(*elasticsearchservice.Options)) (*elasticsearchservice.DescribeElasticsearchDomainOutput, error) {
	s.got = in
	return &elasticsearchservice.DescribeElasticsearchDomainOutput{}, nil
}

func TestSDKTransportSend(t *testing.T) {
	c := New()
	stub := &esStub{}
	tr := &SDKTransport{Catalog: c, Clients: &awsop.Clients{Elasticsearch: stub, BaseEndpoint: "http://localhost:4566"}}

	op, _ := c.Lookup("es", "DescribeElasticsearchDomain")
	rc, err := binder.Bind(context.Background(), map[string]any{"DomainName": "logs"}, op, binder.Options{})
	if err != nil {
		t.Fatal(err)
	}
	req, err := wire.Build(rc)
	if err != nil {
		t.Fatal(err)
	}

	out, err := tr.Send(context.Background(), op, req)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if _, ok := out.(*elasticsearchservice.DescribeElasticsearchDomainOutput); !ok {
		t.Errorf("output type %T", out)
	}
	if stub.got == nil || *stub.got.DomainName != "logs" {
		t.Errorf("input = %+v", stub.got)
	}
	if got := tr.Endpoint("es"); got != "http://localhost:4566" {
		t.Errorf("Endpoint() = %q", got)
	}
}

func TestSDKTransportMissingClient(t *testing.T) {
	c := New()
	tr := &SDKTransport{Catalog: c, Clients: &awsop.Clients{}}
	op, _ := c.Lookup("translate", "TranslateText")
	rc, _ := binder.Bind(context.Background(), map[string]any{"Text": "hej", "From": "sv", "To": "en"}, op, binder.Options{})
	req, err := wire.Build(rc)
	if err != nil {
		t.Fatal(err)
	}

	_, err = tr.Send(context.Background(), op, req)
	if err == nil || !strings.Contains(err.Error(), "no translate client") {
		t.Fatalf("Send() error = %v, want missing client", err)
	}

	in, _ := c.NewInput(op)
	if _, ok := in.(*translate.TranslateTextInput); !ok {
		t.Errorf("NewInput() = %T", in)
	}
}
