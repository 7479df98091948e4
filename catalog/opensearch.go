package catalog

import (
	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/schema"
)

var (
	osDomainName   = required(str("DomainName", "Name of the OpenSearch domain"))
	osDomainGroups = []string{"EncryptionAtRestOptions", "VPCOptions"}
	ipAddressTypes = []string{"ipv4", "dualstack"}
	dryRunModes    = []string{"Basic", "Verbose"}
)

// osDomainOptions are the configuration fields shared by create and update.
func osDomainOptions() []schema.Field {
	return []schema.Field{
		str("AccessPolicies", "IAM access policy as a JSON document"),
		obj("AdvancedOptions", "Advanced options as key/value pairs"),
		oneOf("IPAddressType", "Address type of the domain endpoint", ipAddressTypes...),

		aka(str("ClusterConfig.InstanceType", "Instance type for data nodes"), "InstanceType"),
		aka(num("ClusterConfig.InstanceCount", "Number of data nodes"), "InstanceCount"),
		flag("ClusterConfig.DedicatedMasterEnabled", "Whether dedicated master nodes are used"),
		str("ClusterConfig.DedicatedMasterType", "Instance type for dedicated master nodes"),
		num("ClusterConfig.DedicatedMasterCount", "Number of dedicated master nodes"),
		flag("ClusterConfig.ZoneAwarenessEnabled", "Whether zone awareness is enabled"),
		num("ClusterConfig.ZoneAwarenessConfig.AvailabilityZoneCount", "Number of availability zones"),
		flag("ClusterConfig.MultiAZWithStandbyEnabled", "Whether Multi-AZ with standby is enabled"),
		flag("ClusterConfig.WarmEnabled", "Whether UltraWarm nodes are enabled"),
		str("ClusterConfig.WarmType", "Instance type for UltraWarm nodes"),
		num("ClusterConfig.WarmCount", "Number of UltraWarm nodes"),
		flag("ClusterConfig.ColdStorageOptions.Enabled", "Whether cold storage is enabled"),

		flag("EBSOptions.EBSEnabled", "Whether EBS volumes are attached"),
		aka(oneOf("EBSOptions.VolumeType", "EBS volume type", volumeTypes...), "VolumeType"),
		aka(num("EBSOptions.VolumeSize", "EBS volume size in GiB"), "VolumeSize"),
		num("EBSOptions.Iops", "Provisioned IOPS"),
		num("EBSOptions.Throughput", "Provisioned throughput in MiB/s"),

		num("SnapshotOptions.AutomatedSnapshotStartHour", "UTC hour of the daily automated snapshot"),

		list("VPCOptions.SubnetIds", "VPC subnet IDs"),
		list("VPCOptions.SecurityGroupIds", "VPC security group IDs"),

		flag("EncryptionAtRestOptions.Enabled", "Whether encryption at rest is enabled"),
		str("EncryptionAtRestOptions.KmsKeyId", "KMS key used for encryption at rest"),

		flag("NodeToNodeEncryptionOptions.Enabled", "Whether node-to-node encryption is enabled"),

		flag("DomainEndpointOptions.EnforceHTTPS", "Whether HTTPS is required"),
		oneOf("DomainEndpointOptions.TLSSecurityPolicy", "Minimum TLS policy", tlsPolicies...),

		flag("AdvancedSecurityOptions.Enabled", "Whether fine-grained access control is enabled"),
		flag("AdvancedSecurityOptions.InternalUserDatabaseEnabled", "Whether the internal user database is enabled"),
		str("AdvancedSecurityOptions.MasterUserOptions.MasterUserARN", "ARN of the master user"),
		str("AdvancedSecurityOptions.MasterUserOptions.MasterUserName", "Name of the internal master user"),
		str("AdvancedSecurityOptions.MasterUserOptions.MasterUserPassword", "Password of the internal master user"),

		obj("LogPublishingOptions", "Log publishing options keyed by log type"),
	}
}

func openSearchEntries() []entry {
	const svc = aws.ServiceOpenSearch

	create := &schema.Operation{
		Service:     svc,
		Name:        "CreateDomain",
		Description: "Create an OpenSearch Service domain",
		Fields: append([]schema.Field{
			osDomainName,
			str("EngineVersion", "Engine version, e.g. OpenSearch_2.11"),
			objs("TagList", "Tags as a list of {Key, Value} objects"),
		}, osDomainOptions()...),
		Groups:        osDomainGroups,
		DefaultSelect: "DomainStatus",
		PassThru:      "DomainName",
		Mutating:      true,
	}

	update := &schema.Operation{
		Service:     svc,
		Name:        "UpdateDomainConfig",
		Description: "Modify the configuration of an OpenSearch Service domain",
		Fields: append([]schema.Field{
			osDomainName,
			flag("DryRun", "Validate the change without applying it"),
			oneOf("DryRunMode", "Depth of dry-run validation", dryRunModes...),
		}, osDomainOptions()...),
		Groups:        osDomainGroups,
		DefaultSelect: "DomainConfig",
		PassThru:      "DomainName",
		Mutating:      true,
	}

	return []entry{
		call(create, openSearch, aws.OpenSearchClient.CreateDomain),
		call(update, openSearch, aws.OpenSearchClient.UpdateDomainConfig),
		call(&schema.Operation{
			Service:       svc,
			Name:          "DeleteDomain",
			Description:   "Delete an OpenSearch Service domain and all of its data",
			Fields:        []schema.Field{osDomainName},
			DefaultSelect: "DomainStatus",
			PassThru:      "DomainName",
			Mutating:      true,
		}, openSearch, aws.OpenSearchClient.DeleteDomain),
		call(&schema.Operation{
			Service:       svc,
			Name:          "DescribeDomain",
			Description:   "Describe one OpenSearch Service domain",
			Fields:        []schema.Field{osDomainName},
			DefaultSelect: "DomainStatus",
			PassThru:      "DomainName",
		}, openSearch, aws.OpenSearchClient.DescribeDomain),
		call(&schema.Operation{
			Service:       svc,
			Name:          "ListDomainNames",
			Description:   "List the domain names owned by the account",
			Fields:        []schema.Field{oneOf("EngineType", "Filter by engine", engineTypes...)},
			DefaultSelect: "DomainNames",
		}, openSearch, aws.OpenSearchClient.ListDomainNames),
		call(&schema.Operation{
			Service:       svc,
			Name:          "ListVersions",
			Description:   "List supported OpenSearch and Elasticsearch versions",
			Fields:        pageFields(),
			DefaultSelect: "Versions",
			Paging:        paged(),
		}, openSearch, aws.OpenSearchClient.ListVersions),
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
		}, openSearch, aws.OpenSearchClient.AddTags),
		call(&schema.Operation{
			Service:       svc,
			Name:          "ListTags",
			Description:   "List the tags of a domain",
			Fields:        []schema.Field{required(str("ARN", "Domain ARN"))},
			DefaultSelect: "TagList",
			PassThru:      "ARN",
		}, openSearch, aws.OpenSearchClient.ListTags),
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
		}, openSearch, aws.OpenSearchClient.RemoveTags),
	}
}
