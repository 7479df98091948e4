package catalog

import (
	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/schema"
)

var (
	volumeTypes       = []string{"standard", "gp2", "io1", "gp3"}
	tlsPolicies       = []string{"Policy-Min-TLS-1-0-2019-07", "Policy-Min-TLS-1-2-2019-07"}
	engineTypes       = []string{"OpenSearch", "Elasticsearch"}
	autoTuneStates    = []string{"ENABLED", "DISABLED"}
	esDomainGroups    = []string{"AdvancedSecurityOptions", "CognitoOptions", "EncryptionAtRestOptions", "VPCOptions"}
	esDomainName      = required(str("DomainName", "Name of the Elasticsearch domain"))
	esClusterConfig   = "ElasticsearchClusterConfig"
	esClusterSubgroup = esClusterConfig + ".ZoneAwarenessConfig"
)

// esDomainOptions are the configuration fields shared by create and update.
func esDomainOptions() []schema.Field {
	return []schema.Field{
		str("AccessPolicies", "IAM access policy as a JSON document"),
		obj("AdvancedOptions", "Advanced options as key/value pairs"),

		aka(str(esClusterConfig+".InstanceType", "Instance type for data nodes"), "InstanceType"),
		aka(num(esClusterConfig+".InstanceCount", "Number of data nodes"), "InstanceCount"),
		flag(esClusterConfig+".DedicatedMasterEnabled", "Whether dedicated master nodes are used"),
		str(esClusterConfig+".DedicatedMasterType", "Instance type for dedicated master nodes"),
		num(esClusterConfig+".DedicatedMasterCount", "Number of dedicated master nodes"),
		flag(esClusterConfig+".ZoneAwarenessEnabled", "Whether zone awareness is enabled"),
		num(esClusterSubgroup+".AvailabilityZoneCount", "Number of availability zones"),
		flag(esClusterConfig+".WarmEnabled", "Whether UltraWarm nodes are enabled"),
		str(esClusterConfig+".WarmType", "Instance type for UltraWarm nodes"),
		num(esClusterConfig+".WarmCount", "Number of UltraWarm nodes"),
		flag(esClusterConfig+".ColdStorageOptions.Enabled", "Whether cold storage is enabled"),

		flag("EBSOptions.EBSEnabled", "Whether EBS volumes are attached"),
		aka(oneOf("EBSOptions.VolumeType", "EBS volume type", volumeTypes...), "VolumeType"),
		aka(num("EBSOptions.VolumeSize", "EBS volume size in GiB"), "VolumeSize"),
		num("EBSOptions.Iops", "Provisioned IOPS"),
		num("EBSOptions.Throughput", "Provisioned throughput in MiB/s"),

		num("SnapshotOptions.AutomatedSnapshotStartHour", "UTC hour of the daily automated snapshot"),

		list("VPCOptions.SubnetIds", "VPC subnet IDs"),
		list("VPCOptions.SecurityGroupIds", "VPC security group IDs"),

		flag("CognitoOptions.Enabled", "Whether Cognito authentication for Kibana is enabled"),
		str("CognitoOptions.UserPoolId", "Cognito user pool ID"),
		str("CognitoOptions.IdentityPoolId", "Cognito identity pool ID"),
		str("CognitoOptions.RoleArn", "Role granting access to Cognito"),

		flag("EncryptionAtRestOptions.Enabled", "Whether encryption at rest is enabled"),
		str("EncryptionAtRestOptions.KmsKeyId", "KMS key used for encryption at rest"),

		flag("NodeToNodeEncryptionOptions.Enabled", "Whether node-to-node encryption is enabled"),

		flag("DomainEndpointOptions.EnforceHTTPS", "Whether HTTPS is required"),
		oneOf("DomainEndpointOptions.TLSSecurityPolicy", "Minimum TLS policy", tlsPolicies...),
		flag("DomainEndpointOptions.CustomEndpointEnabled", "Whether a custom endpoint is enabled"),
		str("DomainEndpointOptions.CustomEndpoint", "Fully qualified custom endpoint"),
		str("DomainEndpointOptions.CustomEndpointCertificateArn", "ACM certificate for the custom endpoint"),

		flag("AdvancedSecurityOptions.Enabled", "Whether fine-grained access control is enabled"),
		flag("AdvancedSecurityOptions.InternalUserDatabaseEnabled", "Whether the internal user database is enabled"),
		str("AdvancedSecurityOptions.MasterUserOptions.MasterUserARN", "ARN of the master user"),
		str("AdvancedSecurityOptions.MasterUserOptions.MasterUserName", "Name of the internal master user"),
		str("AdvancedSecurityOptions.MasterUserOptions.MasterUserPassword", "Password of the internal master user"),

		oneOf("AutoTuneOptions.DesiredState", "Auto-Tune state", autoTuneStates...),

		obj("LogPublishingOptions", "Log publishing options keyed by log type"),
	}
}

func elasticsearchEntries() []entry {
	const svc = aws.ServiceElasticsearch

	create := &schema.Operation{
		Service:     svc,
		Name:        "CreateElasticsearchDomain",
		Description: "Create an Elasticsearch domain",
		Fields: append([]schema.Field{
			esDomainName,
			str("ElasticsearchVersion", "Elasticsearch version, e.g. 7.10"),
			objs("TagList", "Tags as a list of {Key, Value} objects"),
		}, esDomainOptions()...),
		Groups:        esDomainGroups,
		DefaultSelect: "DomainStatus",
		PassThru:      "DomainName",
		Mutating:      true,
	}

	update := &schema.Operation{
		Service:     svc,
		Name:        "UpdateElasticsearchDomainConfig",
		Description: "Modify the configuration of an Elasticsearch domain",
		Fields: append([]schema.Field{
			esDomainName,
			flag("DryRun", "Validate the change without applying it"),
		}, esDomainOptions()...),
		Groups:        esDomainGroups,
		DefaultSelect: "DomainConfig",
		PassThru:      "DomainName",
		Mutating:      true,
	}

	return []entry{
		call(create, elasticsearch, aws.ElasticsearchClient.CreateElasticsearchDomain),
		call(update, elasticsearch, aws.ElasticsearchClient.UpdateElasticsearchDomainConfig),
		call(&schema.Operation{
			Service:       svc,
			Name:          "DeleteElasticsearchDomain",
			Description:   "Delete an Elasticsearch domain and all of its data",
			Fields:        []schema.Field{esDomainName},
			DefaultSelect: "DomainStatus",
			PassThru:      "DomainName",
			Mutating:      true,
		}, elasticsearch, aws.ElasticsearchClient.DeleteElasticsearchDomain),
		call(&schema.Operation{
			Service:       svc,
			Name:          "DescribeElasticsearchDomain",
			Description:   "Describe one Elasticsearch domain",
			Fields:        []schema.Field{esDomainName},
			DefaultSelect: "DomainStatus",
			PassThru:      "DomainName",
		}, elasticsearch, aws.ElasticsearchClient.DescribeElasticsearchDomain),
		call(&schema.Operation{
			Service:       svc,
			Name:          "DescribeElasticsearchDomains",
			Description:   "Describe up to five Elasticsearch domains",
			Fields:        []schema.Field{aka(required(list("DomainNames", "Domain names")), "DomainName")},
			DefaultSelect: "DomainStatusList",
		}, elasticsearch, aws.ElasticsearchClient.DescribeElasticsearchDomains),
		call(&schema.Operation{
			Service:       svc,
			Name:          "ListDomainNames",
			Description:   "List the domain names owned by the account",
			Fields:        []schema.Field{oneOf("EngineType", "Filter by engine", engineTypes...)},
			DefaultSelect: "DomainNames",
		}, elasticsearch, aws.ElasticsearchClient.ListDomainNames),
		call(&schema.Operation{
			Service:       svc,
			Name:          "ListElasticsearchVersions",
			Description:   "List supported Elasticsearch versions",
			Fields:        pageFields(),
			DefaultSelect: "ElasticsearchVersions",
			Paging:        paged(),
		}, elasticsearch, aws.ElasticsearchClient.ListElasticsearchVersions),
		call(&schema.Operation{
			Service:     svc,
			Name:        "ListElasticsearchInstanceTypes",
			Description: "List instance types supported by an Elasticsearch version",
			Fields: append([]schema.Field{
				required(str("ElasticsearchVersion", "Elasticsearch version")),
				str("DomainName", "Restrict to instance types valid for this domain"),
			}, pageFields()...),
			DefaultSelect: "ElasticsearchInstanceTypes",
			Paging:        paged(),
		}, elasticsearch, aws.ElasticsearchClient.ListElasticsearchInstanceTypes),
		call(&schema.Operation{
			Service:       svc,
			Name:          "GetUpgradeHistory",
			Description:   "List the upgrade history of a domain",
			Fields:        append([]schema.Field{esDomainName}, pageFields()...),
			DefaultSelect: "UpgradeHistories",
			PassThru:      "DomainName",
			Paging:        paged(),
		}, elasticsearch, aws.ElasticsearchClient.GetUpgradeHistory),
		call(&schema.Operation{
			Service:     svc,
			Name:        "UpgradeElasticsearchDomain",
			Description: "Upgrade a domain to a newer Elasticsearch version",
			Fields: []schema.Field{
				esDomainName,
				required(str("TargetVersion", "Version to upgrade to")),
				flag("PerformCheckOnly", "Only check upgrade eligibility"),
			},
			DefaultSelect: "*",
			PassThru:      "DomainName",
			Mutating:      true,
		}, elasticsearch, aws.ElasticsearchClient.UpgradeElasticsearchDomain),
		call(&schema.Operation{
			Service:     svc,
			Name:        "AddTags",
			Description: "Attach tags to a domain",
			Fields: []schema.Field{
				required(str("ARN", "Domain ARN")),
				required(objs("TagList", "Tags as a list of {Key, Value} objects")),
			},
			DefaultSelect: "*",
			PassThru:      "ARN",
			Mutating:      true,
		}, elasticsearch, aws.ElasticsearchClient.AddTags),
		call(&schema.Operation{
			Service:       svc,
			Name:          "ListTags",
			Description:   "List the tags of a domain",
			Fields:        []schema.Field{required(str("ARN", "Domain ARN"))},
			DefaultSelect: "TagList",
			PassThru:      "ARN",
		}, elasticsearch, aws.ElasticsearchClient.ListTags),
		call(&schema.Operation{
			Service:     svc,
			Name:        "RemoveTags",
			Description: "Remove tags from a domain",
			Fields: []schema.Field{
				required(str("ARN", "Domain ARN")),
				required(list("TagKeys", "Keys of the tags to remove")),
			},
			DefaultSelect: "*",
			PassThru:      "ARN",
			Mutating:      true,
		}, elasticsearch, aws.ElasticsearchClient.RemoveTags),
	}
}
