package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Region = "eu-west-1"
	return cfg
}

func TestValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected valid config to pass validation, got: %v", err)
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("expected defaults to pass validation, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"yaml output", func(c *Config) { c.Output = "yaml" }},
		{"trace level", func(c *Config) { c.LogLevel = "trace" }},
		{"logfmt format", func(c *Config) { c.LogFormat = "logfmt" }},
		{"relative endpoint", func(c *Config) { c.EndpointURL = "localhost:4566" }},
		{"ftp endpoint", func(c *Config) { c.EndpointURL = "ftp://localhost:4566" }},
		{"principal not an ARN", func(c *Config) { c.PrincipalARN = "role/admin" }},
		{"redis checkpoint", func(c *Config) { c.CheckpointURI = "redis://localhost" }},
		{"zero workers", func(c *Config) { c.MaxWorkers = 0 }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"zero checkpoint interval", func(c *Config) { c.CheckpointInterval = 0 }},
		{"report not on S3", func(c *Config) { c.ReportS3URI = "/tmp/report.json" }},
		{"short shutdown timeout", func(c *Config) { c.ShutdownTimeout = 100 * time.Millisecond }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	cfg := validConfig()
	cfg.EndpointURL = "http://localhost:4566"
	cfg.PrincipalARN = "arn:aws:iam::123456789012:role/operator"
	cfg.CheckpointURI = "dynamodb://awsop-checkpoints"
	cfg.ReportS3URI = "s3://reports/run.json"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// isolate points the config directory and AWSOP_* environment at an empty state.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, key := range []string{"AWSOP_REGION", "AWSOP_OUTPUT", "AWSOP_WORKERS", "AWSOP_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := DefaultConfig()
	if cfg.Output != want.Output || cfg.MaxWorkers != want.MaxWorkers || cfg.ShutdownTimeout != want.ShutdownTimeout {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	if err := os.MkdirAll(filepath.Join(dir, AppName), 0755); err != nil {
		t.Fatal(err)
	}
	file := `region: eu-central-1
output: text
workers: 8
shutdown_timeout: 2m
log_level: info
`
	if err := os.WriteFile(filepath.Join(dir, AppName, ConfigFileName), []byte(file), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AWSOP_WORKERS", "16")
	t.Setenv("AWSOP_LOG_LEVEL", "debug")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "warn", "")
	fs.String("output", "json", "")
	fs.String("domain-name", "", "operation parameter, not configuration")
	if err := fs.Parse([]string{"--log-level", "error", "--domain-name", "logs"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{Flags: fs})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"file", cfg.Region, "eu-central-1"},
		{"file over unchanged flag", cfg.Output, "text"},
		{"env over file", cfg.MaxWorkers, 16},
		{"flag over env", cfg.LogLevel, "error"},
		{"duration from file", cfg.ShutdownTimeout, 2 * time.Minute},
		{"default", cfg.BatchSize, 25},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("force: true\ncheckpoint: s3://state/awsop/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Force || cfg.CheckpointURI != "s3://state/awsop/" {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)
	if _, err := Load(LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Error("expected error for missing config file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("workers: [1, 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(LoadOptions{ConfigFilePath: bad}); err == nil {
		t.Error("expected error for malformed YAML")
	}

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("output: xml\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(LoadOptions{ConfigFilePath: invalid}); err == nil {
		t.Error("expected validation error")
	}
}
