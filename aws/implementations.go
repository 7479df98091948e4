package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/elasticsearchservice"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/opensearch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/translate"
)

// Service identifiers used by operation schemas.
const (
	ServiceElasticsearch = "es"
	ServiceOpenSearch    = "opensearch"
	ServiceTranslate     = "translate"
)

// Clients bundles every service client awsop talks to. Fields may be nil in
// tests; callers check before use.
type Clients struct {
	Elasticsearch ElasticsearchClient
	OpenSearch    OpenSearchClient
	Translate     TranslateClient
	S3            S3Client
	IAM           IAMClient
	DynamoDB      DynamoDBClient

	Region       string // Region the clients were configured for
	BaseEndpoint string // Endpoint override, empty when SDK resolution applies
}

// NewClients creates all service clients from a loaded AWS configuration.
// A non-empty cfg.BaseEndpoint is honoured by every client.
func NewClients(cfg awssdk.Config) *Clients {
	c := &Clients{
		Elasticsearch: elasticsearchservice.NewFromConfig(cfg),
		OpenSearch:    opensearch.NewFromConfig(cfg),
		Translate:     translate.NewFromConfig(cfg),
		S3:            s3.NewFromConfig(cfg),
		IAM:           iam.NewFromConfig(cfg),
		DynamoDB:      dynamodb.NewFromConfig(cfg),
		Region:        cfg.Region,
	}
	if cfg.BaseEndpoint != nil {
		c.BaseEndpoint = *cfg.BaseEndpoint
	}
	return c
}

// Endpoint returns the endpoint URL requests for service are sent to. It uses
// the configured override when present and otherwise asks the service's
// default endpoint resolver. An unresolvable endpoint yields a descriptive
// placeholder rather than an error since the value is only used in messages.
func (c *Clients) Endpoint(service string) string {
	if c.BaseEndpoint != "" {
		return c.BaseEndpoint
	}

	ctx := context.Background()
	region := awssdk.String(c.Region)

	var (
		uri string
		err error
	)
	switch service {
	case ServiceElasticsearch:
		ep, rerr := elasticsearchservice.NewDefaultEndpointResolverV2().ResolveEndpoint(ctx, elasticsearchservice.EndpointParameters{Region: region})
		uri, err = ep.URI.String(), rerr
	case ServiceOpenSearch:
		ep, rerr := opensearch.NewDefaultEndpointResolverV2().ResolveEndpoint(ctx, opensearch.EndpointParameters{Region: region})
		uri, err = ep.URI.String(), rerr
	case ServiceTranslate:
		ep, rerr := translate.NewDefaultEndpointResolverV2().ResolveEndpoint(ctx, translate.EndpointParameters{Region: region})
		uri, err = ep.URI.String(), rerr
	default:
		return fmt.Sprintf("<unknown service %q>", service)
	}
	if err != nil {
		return fmt.Sprintf("<unresolved %s endpoint in region %q>", service, c.Region)
	}
	return uri
}
