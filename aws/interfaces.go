// Package aws declares the narrow AWS service interfaces the adapter depends on.
// Each interface lists only the SDK methods awsop actually calls, with the SDK's
// own signatures, so the SDK clients satisfy them directly and tests can
// substitute hand-written mocks.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/elasticsearchservice"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/opensearch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/translate"
)

// ElasticsearchClient is the subset of the Elasticsearch Service API exposed as operations.
type ElasticsearchClient interface {
	CreateElasticsearchDomain(ctx context.Context, params *elasticsearchservice.CreateElasticsearchDomainInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.CreateElasticsearchDomainOutput, error)
	DeleteElasticsearchDomain(ctx context.Context, params *elasticsearchservice.DeleteElasticsearchDomainInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.DeleteElasticsearchDomainOutput, error)
	DescribeElasticsearchDomain(ctx context.Context, params *elasticsearchservice.DescribeElasticsearchDomainInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.DescribeElasticsearchDomainOutput, error)
	DescribeElasticsearchDomains(ctx context.Context, params *elasticsearchservice.DescribeElasticsearchDomainsInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.DescribeElasticsearchDomainsOutput, error)
	UpdateElasticsearchDomainConfig(ctx context.Context, params *elasticsearchservice.UpdateElasticsearchDomainConfigInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.UpdateElasticsearchDomainConfigOutput, error)
	ListDomainNames(ctx context.Context, params *elasticsearchservice.ListDomainNamesInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.ListDomainNamesOutput, error)
	ListElasticsearchVersions(ctx context.Context, params *elasticsearchservice.ListElasticsearchVersionsInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.ListElasticsearchVersionsOutput, error)
	ListElasticsearchInstanceTypes(ctx context.Context, params *elasticsearchservice.ListElasticsearchInstanceTypesInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.ListElasticsearchInstanceTypesOutput, error)
	GetUpgradeHistory(ctx context.Context, params *elasticsearchservice.GetUpgradeHistoryInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.GetUpgradeHistoryOutput, error)
	UpgradeElasticsearchDomain(ctx context.Context, params *elasticsearchservice.UpgradeElasticsearchDomainInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.UpgradeElasticsearchDomainOutput, error)
	AddTags(ctx context.Context, params *elasticsearchservice.AddTagsInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.AddTagsOutput, error)
	ListTags(ctx context.Context, params *elasticsearchservice.ListTagsInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.ListTagsOutput, error)
	RemoveTags(ctx context.Context, params *elasticsearchservice.RemoveTagsInput, optFns ...func(*elasticsearchservice.Options)) (*elasticsearchservice.RemoveTagsOutput, error)
}

// OpenSearchClient is the subset of the OpenSearch Service API exposed as operations.
type OpenSearchClient interface {
	CreateDomain(ctx context.Context, params *opensearch.CreateDomainInput, optFns ...func(*opensearch.Options)) (*opensearch.CreateDomainOutput, error)
	DeleteDomain(ctx context.Context, params *opensearch.DeleteDomainInput, optFns ...func(*opensearch.Options)) (*opensearch.DeleteDomainOutput, error)
	DescribeDomain(ctx context.Context, params *opensearch.DescribeDomainInput, optFns ...func(*opensearch.Options)) (*opensearch.DescribeDomainOutput, error)
	UpdateDomainConfig(ctx context.Context, params *opensearch.UpdateDomainConfigInput, optFns ...func(*opensearch.Options)) (*opensearch.UpdateDomainConfigOutput, error)
	ListDomainNames(ctx context.Context, params *opensearch.ListDomainNamesInput, optFns ...func(*opensearch.Options)) (*opensearch.ListDomainNamesOutput, error)
	ListVersions(ctx context.Context, params *opensearch.ListVersionsInput, optFns ...func(*opensearch.Options)) (*opensearch.ListVersionsOutput, error)
	AddTags(ctx context.Context, params *opensearch.AddTagsInput, optFns ...func(*opensearch.Options)) (*opensearch.AddTagsOutput, error)
	ListTags(ctx context.Context, params *opensearch.ListTagsInput, optFns ...func(*opensearch.Options)) (*opensearch.ListTagsOutput, error)
	RemoveTags(ctx context.Context, params *opensearch.RemoveTagsInput, optFns ...func(*opensearch.Options)) (*opensearch.RemoveTagsOutput, error)
}

// TranslateClient is the subset of the Amazon Translate API exposed as operations.
type TranslateClient interface {
	TranslateText(ctx context.Context, params *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error)
	TranslateDocument(ctx context.Context, params *translate.TranslateDocumentInput, optFns ...func(*translate.Options)) (*translate.TranslateDocumentOutput, error)
	ListLanguages(ctx context.Context, params *translate.ListLanguagesInput, optFns ...func(*translate.Options)) (*translate.ListLanguagesOutput, error)
	ListTerminologies(ctx context.Context, params *translate.ListTerminologiesInput, optFns ...func(*translate.Options)) (*translate.ListTerminologiesOutput, error)
	GetTerminology(ctx context.Context, params *translate.GetTerminologyInput, optFns ...func(*translate.Options)) (*translate.GetTerminologyOutput, error)
	ImportTerminology(ctx context.Context, params *translate.ImportTerminologyInput, optFns ...func(*translate.Options)) (*translate.ImportTerminologyOutput, error)
	DeleteTerminology(ctx context.Context, params *translate.DeleteTerminologyInput, optFns ...func(*translate.Options)) (*translate.DeleteTerminologyOutput, error)
	StartTextTranslationJob(ctx context.Context, params *translate.StartTextTranslationJobInput, optFns ...func(*translate.Options)) (*translate.StartTextTranslationJobOutput, error)
	DescribeTextTranslationJob(ctx context.Context, params *translate.DescribeTextTranslationJobInput, optFns ...func(*translate.Options)) (*translate.DescribeTextTranslationJobOutput, error)
	StopTextTranslationJob(ctx context.Context, params *translate.StopTextTranslationJobInput, optFns ...func(*translate.Options)) (*translate.StopTextTranslationJobOutput, error)
	ListTextTranslationJobs(ctx context.Context, params *translate.ListTextTranslationJobsInput, optFns ...func(*translate.Options)) (*translate.ListTextTranslationJobsOutput, error)
	TagResource(ctx context.Context, params *translate.TagResourceInput, optFns ...func(*translate.Options)) (*translate.TagResourceOutput, error)
	UntagResource(ctx context.Context, params *translate.UntagResourceInput, optFns ...func(*translate.Options)) (*translate.UntagResourceOutput, error)
	ListTagsForResource(ctx context.Context, params *translate.ListTagsForResourceInput, optFns ...func(*translate.Options)) (*translate.ListTagsForResourceOutput, error)
}

// S3Client defines the S3 operations used for payload sources, checkpoints,
// batch manifests and result sinks.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3StreamClient is the S3 surface the batch input streamer needs. The
// multipart methods are never called when streaming reads.
type S3StreamClient interface {
	S3Client
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// IAMClient defines the IAM operations used for preflight permission checks.
type IAMClient interface {
	SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error)
}

// DynamoDBClient defines the DynamoDB operations used by the table-backed
// checkpoint store and the batch results sink.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Compile-time checks that the SDK clients satisfy the interfaces
var (
	_ ElasticsearchClient = (*elasticsearchservice.Client)(nil)
	_ OpenSearchClient    = (*opensearch.Client)(nil)
	_ TranslateClient     = (*translate.Client)(nil)
	_ S3Client            = (*s3.Client)(nil)
	_ S3StreamClient      = (*s3.Client)(nil)
	_ IAMClient           = (*iam.Client)(nil)
	_ DynamoDBClient      = (*dynamodb.Client)(nil)
)
