package schema

import (
	"strings"
	"testing"
)

func clusterOperation() *Operation {
	return &Operation{
		Service: "es",
		Name:    "CreateElasticsearchDomain",
		Fields: []Field{
			{Name: "DomainName", Path: "DomainName", Type: TypeString, Required: true},
			{Name: "ElasticsearchClusterConfig_InstanceType", Aliases: []string{"InstanceType"}, Path: "ElasticsearchClusterConfig.InstanceType", Type: TypeString},
			{Name: "ElasticsearchClusterConfig_DedicatedMasterEnabled", Path: "ElasticsearchClusterConfig.DedicatedMasterEnabled", Type: TypeBoolean},
			{Name: "ZoneAwarenessConfig_AvailabilityZoneCount", Path: "ElasticsearchClusterConfig.ZoneAwarenessConfig.AvailabilityZoneCount", Type: TypeInteger},
		},
		Groups:   []string{"EncryptionAtRestOptions"},
		PassThru: "DomainName",
		Mutating: true,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Operation)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Operation) {},
		},
		{
			name:    "missing service",
			mutate:  func(o *Operation) { o.Service = "" },
			wantErr: "service is required",
		},
		{
			name: "alias collides with name",
			mutate: func(o *Operation) {
				o.Fields[1].Aliases = []string{"domainname"}
			},
			wantErr: "already used",
		},
		{
			name: "duplicate path",
			mutate: func(o *Operation) {
				o.Fields[2].Path = o.Fields[1].Path
			},
			wantErr: "declared twice",
		},
		{
			name: "leaf and group share a path",
			mutate: func(o *Operation) {
				o.Fields = append(o.Fields, Field{Name: "Config", Path: "ElasticsearchClusterConfig", Type: TypeObject})
			},
			wantErr: "both a field and a group",
		},
		{
			name:    "empty segment",
			mutate:  func(o *Operation) { o.Fields[1].Path = "ElasticsearchClusterConfig..InstanceType" },
			wantErr: "empty path segment",
		},
		{
			name:    "unknown pass-thru",
			mutate:  func(o *Operation) { o.PassThru = "Missing" },
			wantErr: "pass-thru field",
		},
		{
			name: "paging token not declared",
			mutate: func(o *Operation) {
				o.Paging = &Paging{InputToken: "NextToken", OutputToken: "NextToken"}
			},
			wantErr: "paging token field",
		},
		{
			name: "enum without values",
			mutate: func(o *Operation) {
				o.Fields[1].Type = TypeEnum
			},
			wantErr: "has no values",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := clusterOperation()
			tt.mutate(op)
			err := op.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFieldLookupByAlias(t *testing.T) {
	op := clusterOperation()

	byName, ok := op.Field("ElasticsearchClusterConfig_InstanceType")
	if !ok {
		t.Fatal("field not found by name")
	}
	byAlias, ok := op.Field("instancetype")
	if !ok {
		t.Fatal("field not found by alias")
	}
	if byName.Path != byAlias.Path {
		t.Errorf("alias resolved to %q, want %q", byAlias.Path, byName.Path)
	}
	if _, ok := op.Field("Nope"); ok {
		t.Error("unexpected match for unknown field")
	}
}

func TestTree(t *testing.T) {
	root := clusterOperation().Tree()

	if len(root.Fields) != 1 || root.Fields[0].Name != "DomainName" {
		t.Fatalf("root fields = %+v, want only DomainName", root.Fields)
	}
	if len(root.Groups) != 2 {
		t.Fatalf("root groups = %d, want 2", len(root.Groups))
	}

	cluster := root.Groups[0]
	if cluster.Path != "ElasticsearchClusterConfig" {
		t.Errorf("first group = %q, want ElasticsearchClusterConfig", cluster.Path)
	}
	if len(cluster.Fields) != 2 {
		t.Errorf("cluster fields = %d, want 2", len(cluster.Fields))
	}
	if len(cluster.Groups) != 1 || cluster.Groups[0].Name != "ZoneAwarenessConfig" {
		t.Errorf("cluster groups = %+v, want ZoneAwarenessConfig", cluster.Groups)
	}
	if cluster.LeafCount() != 3 {
		t.Errorf("cluster LeafCount() = %d, want 3", cluster.LeafCount())
	}

	enc := root.Groups[1]
	if enc.Path != "EncryptionAtRestOptions" || enc.LeafCount() != 0 {
		t.Errorf("declared container = %+v, want empty EncryptionAtRestOptions", enc)
	}
}

func TestIAMAction(t *testing.T) {
	tests := []struct {
		service, name, want string
	}{
		{"es", "CreateElasticsearchDomain", "es:CreateElasticsearchDomain"},
		{"opensearch", "CreateDomain", "es:CreateDomain"},
		{"translate", "TranslateText", "translate:TranslateText"},
	}
	for _, tt := range tests {
		op := &Operation{Service: tt.service, Name: tt.name}
		if got := op.IAMAction(); got != tt.want {
			t.Errorf("IAMAction(%s/%s) = %q, want %q", tt.service, tt.name, got, tt.want)
		}
	}
}

func TestFlagName(t *testing.T) {
	tests := map[string]string{
		"DomainName": "domain-name",
		"ElasticsearchClusterConfig_InstanceType": "elasticsearch-cluster-config-instance-type",
		"EBSOptions_VolumeSize":                   "ebs-options-volume-size",
		"EnforceHTTPS":                            "enforce-https",
		"TLSSecurityPolicy":                       "tls-security-policy",
		"KmsKeyId":                                "kms-key-id",
		"S3Uri":                                   "s3-uri",
		"ARN":                                     "arn",
		"CreateElasticsearchDomain":               "create-elasticsearch-domain",
	}
	for in, want := range tests {
		if got := FlagName(in); got != want {
			t.Errorf("FlagName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	op := clusterOperation()
	if err := r.Register(op); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Register(op); err == nil {
		t.Error("expected error registering the same operation twice")
	}

	for _, name := range []string{"CreateElasticsearchDomain", "create-elasticsearch-domain", "createelasticsearchdomain"} {
		if got, ok := r.Lookup("es", name); !ok || got != op {
			t.Errorf("Lookup(es, %q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := r.Lookup("translate", "CreateElasticsearchDomain"); ok {
		t.Error("lookup crossed services")
	}
	if got := r.Services(); len(got) != 1 || got[0] != "es" {
		t.Errorf("Services() = %v", got)
	}
}
