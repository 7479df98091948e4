package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	es "github.com/aws/aws-sdk-go-v2/service/elasticsearchservice"
	estypes "github.com/aws/aws-sdk-go-v2/service/elasticsearchservice/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	trtypes "github.com/aws/aws-sdk-go-v2/service/translate/types"
	"github.com/gurre/awsop/aws"
)

// ElasticsearchClient keeps created domains in memory. Methods it does not
// override panic through the nil embedded interface.
type ElasticsearchClient struct {
	aws.ElasticsearchClient

	mu      sync.Mutex
	domains map[string]*es.CreateElasticsearchDomainInput
	Creates []*es.CreateElasticsearchDomainInput
}

// NewElasticsearchClient creates an empty mock.
func NewElasticsearchClient() *ElasticsearchClient {
	return &ElasticsearchClient{domains: make(map[string]*es.CreateElasticsearchDomainInput)}
}

func (m *ElasticsearchClient) status(in *es.CreateElasticsearchDomainInput) *estypes.ElasticsearchDomainStatus {
	name := awssdk.ToString(in.DomainName)
	return &estypes.ElasticsearchDomainStatus{
		ARN:                        awssdk.String("arn:aws:es:eu-west-1:123456789012:domain/" + name),
		DomainId:                   awssdk.String("123456789012/" + name),
		DomainName:                 in.DomainName,
		ElasticsearchVersion:       in.ElasticsearchVersion,
		ElasticsearchClusterConfig: in.ElasticsearchClusterConfig,
		EBSOptions:                 in.EBSOptions,
		Endpoint:                   awssdk.String("search-" + name + ".eu-west-1.es.amazonaws.com"),
		Created:                    awssdk.Bool(true),
	}
}

// CreateElasticsearchDomain implements aws.ElasticsearchClient.
func (m *ElasticsearchClient) CreateElasticsearchDomain(ctx context.Context, params *es.CreateElasticsearchDomainInput, optFns ...func(*es.Options)) (*es.CreateElasticsearchDomainOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := awssdk.ToString(params.DomainName)
	if _, exists := m.domains[name]; exists {
		return nil, &estypes.ResourceAlreadyExistsException{Message: awssdk.String("domain " + name + " already exists")}
	}
	m.domains[name] = params
	m.Creates = append(m.Creates, params)
	return &es.CreateElasticsearchDomainOutput{DomainStatus: m.status(params)}, nil
}

// DescribeElasticsearchDomain implements aws.ElasticsearchClient.
func (m *ElasticsearchClient) DescribeElasticsearchDomain(ctx context.Context, params *es.DescribeElasticsearchDomainInput, optFns ...func(*es.Options)) (*es.DescribeElasticsearchDomainOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.domains[awssdk.ToString(params.DomainName)]
	if !ok {
		return nil, &estypes.ResourceNotFoundException{Message: awssdk.String("domain not found: " + awssdk.ToString(params.DomainName))}
	}
	return &es.DescribeElasticsearchDomainOutput{DomainStatus: m.status(in)}, nil
}

// TranslateClient serves terminologies in fixed pages and translates text
// by upper-casing it.
type TranslateClient struct {
	aws.TranslateClient

	mu            sync.Mutex
	Terminologies []string
	PageSize      int
	ListCalls     []*translate.ListTerminologiesInput
	Translations  []*translate.TranslateTextInput
	// FailListAt fails the ListTerminologies call with this 1-based index.
	FailListAt int
}

// ListTerminologies implements aws.TranslateClient. Tokens are the index of
// the next terminology.
func (m *TranslateClient) ListTerminologies(ctx context.Context, params *translate.ListTerminologiesInput, optFns ...func(*translate.Options)) (*translate.ListTerminologiesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls = append(m.ListCalls, params)
	if m.FailListAt > 0 && len(m.ListCalls) == m.FailListAt {
		return nil, fmt.Errorf("simulated list failure")
	}

	start := 0
	if tok := awssdk.ToString(params.NextToken); tok != "" {
		if _, err := fmt.Sscanf(tok, "t%d", &start); err != nil {
			return nil, &trtypes.InvalidParameterValueException{Message: awssdk.String("bad token " + tok)}
		}
	}
	size := m.PageSize
	if size < 1 {
		size = len(m.Terminologies)
	}
	end := min(start+size, len(m.Terminologies))

	out := &translate.ListTerminologiesOutput{}
	for _, name := range m.Terminologies[start:end] {
		out.TerminologyPropertiesList = append(out.TerminologyPropertiesList, trtypes.TerminologyProperties{
			Name: awssdk.String(name),
		})
	}
	if end < len(m.Terminologies) {
		out.NextToken = awssdk.String(fmt.Sprintf("t%d", end))
	}
	return out, nil
}

// TranslateText implements aws.TranslateClient.
func (m *TranslateClient) TranslateText(ctx context.Context, params *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Translations = append(m.Translations, params)
	return &translate.TranslateTextOutput{
		TranslatedText:     awssdk.String(strings.ToUpper(awssdk.ToString(params.Text))),
		SourceLanguageCode: params.SourceLanguageCode,
		TargetLanguageCode: params.TargetLanguageCode,
	}, nil
}

// IAMClient answers policy simulations from a table of allowed actions.
type IAMClient struct {
	mu      sync.Mutex
	Allowed map[string]bool
	Calls   int
}

// SimulatePrincipalPolicy implements aws.IAMClient.
func (m *IAMClient) SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	out := &iam.SimulatePrincipalPolicyOutput{}
	for _, action := range params.ActionNames {
		decision := iamtypes.PolicyEvaluationDecisionTypeImplicitDeny
		if m.Allowed[action] {
			decision = iamtypes.PolicyEvaluationDecisionTypeAllowed
		}
		out.EvaluationResults = append(out.EvaluationResults, iamtypes.EvaluationResult{
			EvalActionName: awssdk.String(action),
			EvalDecision:   decision,
		})
	}
	return out, nil
}
