package catalog

import (
	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/schema"
)

var (
	formalities      = []string{"FORMAL", "INFORMAL"}
	profanities      = []string{"MASK"}
	terminologyForms = []string{"CSV", "TMX", "TSV"}
	directionalities = []string{"UNI", "MULTI"}
	jobStatuses      = []string{"SUBMITTED", "IN_PROGRESS", "COMPLETED", "COMPLETED_WITH_ERROR", "FAILED", "STOP_REQUESTED", "STOPPED"}
	displayLanguages = []string{"de", "en", "es", "fr", "it", "ja", "ko", "pt", "zh", "zh-TW"}
	documentTypes    = []string{"text/html", "text/plain", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"}

	terminologyName = required(str("Name", "Name of the custom terminology"))
	jobID           = required(str("JobId", "Identifier of the translation job"))
	resourceARN     = required(str("ResourceArn", "ARN of the Translate resource"))
)

func languagePair() []schema.Field {
	return []schema.Field{
		aka(required(str("SourceLanguageCode", "Source language code, or auto")), "From"),
		aka(required(str("TargetLanguageCode", "Target language code")), "To"),
	}
}

func translationSettings() []schema.Field {
	return []schema.Field{
		oneOf("Settings.Formality", "Formality of the translation", formalities...),
		oneOf("Settings.Profanity", "Mask profane words", profanities...),
		list("TerminologyNames", "Custom terminologies to apply"),
	}
}

func translateEntries() []entry {
	const svc = aws.ServiceTranslate

	text := &schema.Operation{
		Service:     svc,
		Name:        "TranslateText",
		Description: "Translate text between languages",
		Fields: append(append([]schema.Field{
			required(str("Text", "Text to translate")),
		}, languagePair()...), translationSettings()...),
		DefaultSelect: "TranslatedText",
		PassThru:      "Text",
	}

	document := &schema.Operation{
		Service:     svc,
		Name:        "TranslateDocument",
		Description: "Translate a document between languages",
		Fields: append(append([]schema.Field{
			aka(required(blob("Document.Content", "Document bytes: a path, - for stdin, or an s3:// URI")), "Content"),
			aka(required(oneOf("Document.ContentType", "Document media type", documentTypes...)), "ContentType"),
		}, languagePair()...), translationSettings()...),
		DefaultSelect: "TranslatedDocument.Content",
	}

	jobs := &schema.Operation{
		Service:     svc,
		Name:        "ListTextTranslationJobs",
		Description: "List batch translation jobs",
		Fields: append([]schema.Field{
			str("Filter.JobName", "Only jobs with this name"),
			oneOf("Filter.JobStatus", "Only jobs in this status", jobStatuses...),
			stamp("Filter.SubmittedAfterTime", "Only jobs submitted after this time (RFC 3339)"),
			stamp("Filter.SubmittedBeforeTime", "Only jobs submitted before this time (RFC 3339)"),
		}, pageFields()...),
		Groups:        []string{"Filter"},
		DefaultSelect: "TextTranslationJobPropertiesList",
		Paging:        paged(),
	}

	start := &schema.Operation{
		Service:     svc,
		Name:        "StartTextTranslationJob",
		Description: "Start an asynchronous batch translation job",
		Fields: append([]schema.Field{
			str("JobName", "Name of the job"),
			str("ClientToken", "Idempotency token"),
			required(str("DataAccessRoleArn", "Role granting Translate access to the input and output buckets")),
			aka(required(str("InputDataConfig.S3Uri", "S3 prefix of the input documents")), "InputUri"),
			aka(required(str("InputDataConfig.ContentType", "Media type of the input documents")), "InputContentType"),
			aka(required(str("OutputDataConfig.S3Uri", "S3 prefix for the translated documents")), "OutputUri"),
			oneOf("OutputDataConfig.EncryptionKey.Type", "Output encryption key type", "KMS"),
			str("OutputDataConfig.EncryptionKey.Id", "Output encryption key ARN"),
			aka(required(str("SourceLanguageCode", "Source language code")), "From"),
			required(list("TargetLanguageCodes", "Target language codes")),
			list("ParallelDataNames", "Parallel data resources to apply"),
		}, translationSettings()...),
		DefaultSelect: "*",
		PassThru:      "JobName",
		Mutating:      true,
	}

	importTerminology := &schema.Operation{
		Service:     svc,
		Name:        "ImportTerminology",
		Description: "Create or replace a custom terminology",
		Fields: []schema.Field{
			terminologyName,
			str("Description", "Description of the terminology"),
			required(oneOf("MergeStrategy", "How an existing terminology is merged", "OVERWRITE")),
			aka(required(blob("TerminologyData.File", "Terminology file: a path, - for stdin, or an s3:// URI")), "File"),
			aka(required(oneOf("TerminologyData.Format", "Terminology file format", terminologyForms...)), "Format"),
			oneOf("TerminologyData.Directionality", "Whether the terminology is uni- or multi-directional", directionalities...),
			oneOf("EncryptionKey.Type", "Encryption key type", "KMS"),
			str("EncryptionKey.Id", "Encryption key ARN"),
			objs("Tags", "Tags as a list of {Key, Value} objects"),
		},
		DefaultSelect: "TerminologyProperties",
		PassThru:      "Name",
		Mutating:      true,
	}

	return []entry{
		call(text, translation, aws.TranslateClient.TranslateText),
		call(document, translation, aws.TranslateClient.TranslateDocument),
		call(&schema.Operation{
			Service:       svc,
			Name:          "ListLanguages",
			Description:   "List the languages Translate supports",
			Fields:        append([]schema.Field{oneOf("DisplayLanguageCode", "Language for the language names", displayLanguages...)}, pageFields()...),
			DefaultSelect: "Languages",
			Paging:        paged(),
		}, translation, aws.TranslateClient.ListLanguages),
		call(&schema.Operation{
			Service:       svc,
			Name:          "ListTerminologies",
			Description:   "List custom terminologies",
			Fields:        pageFields(),
			DefaultSelect: "TerminologyPropertiesList",
			Paging:        paged(),
		}, translation, aws.TranslateClient.ListTerminologies),
		call(&schema.Operation{
			Service:     svc,
			Name:        "GetTerminology",
			Description: "Get a custom terminology",
			Fields: []schema.Field{
				terminologyName,
				oneOf("TerminologyDataFormat", "Format of the returned terminology file", terminologyForms...),
			},
			DefaultSelect: "TerminologyProperties",
			PassThru:      "Name",
		}, translation, aws.TranslateClient.GetTerminology),
		call(importTerminology, translation, aws.TranslateClient.ImportTerminology),
		call(&schema.Operation{
			Service:       svc,
			Name:          "DeleteTerminology",
			Description:   "Delete a custom terminology",
			Fields:        []schema.Field{terminologyName},
			DefaultSelect: "*",
			PassThru:      "Name",
			Mutating:      true,
		}, translation, aws.TranslateClient.DeleteTerminology),
		call(start, translation, aws.TranslateClient.StartTextTranslationJob),
		call(&schema.Operation{
			Service:       svc,
			Name:          "DescribeTextTranslationJob",
			Description:   "Describe a batch translation job",
			Fields:        []schema.Field{jobID},
			DefaultSelect: "TextTranslationJobProperties",
			PassThru:      "JobId",
		}, translation, aws.TranslateClient.DescribeTextTranslationJob),
		call(&schema.Operation{
			Service:       svc,
			Name:          "StopTextTranslationJob",
			Description:   "Stop a running batch translation job",
			Fields:        []schema.Field{jobID},
			DefaultSelect: "*",
			PassThru:      "JobId",
			Mutating:      true,
		}, translation, aws.TranslateClient.StopTextTranslationJob),
		call(jobs, translation, aws.TranslateClient.ListTextTranslationJobs),
		call(&schema.Operation{
			Service:     svc,
			Name:        "TagResource",
			Description: "Attach tags to a Translate resource",
			Fields: []schema.Field{
				resourceARN,
				required(objs("Tags", "Tags as a list of {Key, Value} objects")),
			},
			DefaultSelect: "*",
			PassThru:      "ResourceArn",
			Mutating:      true,
		}, translation, aws.TranslateClient.TagResource),
		call(&schema.Operation{
			Service:     svc,
			Name:        "UntagResource",
			Description: "Remove tags from a Translate resource",
			Fields: []schema.Field{
				resourceARN,
				required(list("TagKeys", "Keys of the tags to remove")),
			},
			DefaultSelect: "*",
			PassThru:      "ResourceArn",
			Mutating:      true,
		}, translation, aws.TranslateClient.UntagResource),
		call(&schema.Operation{
			Service:       svc,
			Name:          "ListTagsForResource",
			Description:   "List the tags of a Translate resource",
			Fields:        []schema.Field{resourceARN},
			DefaultSelect: "Tags",
			PassThru:      "ResourceArn",
		}, translation, aws.TranslateClient.ListTagsForResource),
	}
}
