// Package config holds the run-wide settings of awsop and loads them from an
// optional YAML file, AWSOP_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "awsop"
	// EnvPrefix prefixes every environment variable, e.g. AWSOP_REGION.
	EnvPrefix = "AWSOP"
	// ConfigFileName is the name of the config file inside ConfigDir.
	ConfigFileName = "config.yaml"
)

// Config holds all configuration for a run. Keys are the snake_case form of
// the long flag names.
type Config struct {
	Region          string `mapstructure:"region"`            // AWS region; SDK default chain when empty
	Profile         string `mapstructure:"profile"`           // Shared config profile
	EndpointURL     string `mapstructure:"endpoint_url"`      // Base endpoint override for every service
	Output          string `mapstructure:"output"`            // "json"|"text"
	LogLevel        string `mapstructure:"log_level"`         // debug, info, warn or error
	LogFormat       string `mapstructure:"log_format"`        // "json"|"console"
	Strict          bool   `mapstructure:"strict"`            // Missing required or unknown inputs are errors
	Force           bool   `mapstructure:"force"`             // Skip confirmation of mutating operations
	DryRun          bool   `mapstructure:"dry_run"`           // Build requests without sending them
	NoAutoIteration bool   `mapstructure:"no_auto_iteration"` // Return a single page per invocation
	PrincipalARN    string `mapstructure:"principal_arn"`     // Enables the IAM preflight check for this principal
	ResumeKey       string `mapstructure:"resume_key"`        // Checkpoint key for resumable paging
	CheckpointURI   string `mapstructure:"checkpoint"`        // mem://, file://dir, s3://bucket/prefix or dynamodb://table

	// Batch mode
	MaxWorkers         int           `mapstructure:"workers"`             // Sources processed concurrently
	BatchSize          int           `mapstructure:"batch"`               // Results per sink write
	CheckpointInterval int           `mapstructure:"checkpoint_interval"` // Records between offset checkpoints
	ResultsURI         string        `mapstructure:"results"`             // "-" for stdout, a file, s3://bucket/key or dynamodb://table
	ReportS3URI        string        `mapstructure:"report"`              // S3 URI for the final report
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`    // Grace period to flush after an interrupt
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Output:             "json",
		LogLevel:           "warn",
		LogFormat:          "console",
		CheckpointURI:      "mem://",
		MaxWorkers:         4,
		BatchSize:          25,
		CheckpointInterval: 100,
		ResultsURI:         "-",
		ShutdownTimeout:    30 * time.Second,
	}
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	switch c.Output {
	case "json", "text":
	default:
		return fmt.Errorf("output must be json or text")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error")
	}

	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("log format must be json or console")
	}

	if c.EndpointURL != "" {
		u, err := url.Parse(c.EndpointURL)
		if err != nil {
			return fmt.Errorf("invalid endpoint URL: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("endpoint URL must be an absolute http or https URL")
		}
	}

	if c.PrincipalARN != "" && !strings.HasPrefix(c.PrincipalARN, "arn:") {
		return fmt.Errorf("principal ARN must start with arn:")
	}

	switch scheme, _, _ := strings.Cut(c.CheckpointURI, "://"); scheme {
	case "", "mem", "file", "s3", "dynamodb":
	default:
		return fmt.Errorf("checkpoint URI scheme must be mem, file, s3 or dynamodb")
	}

	if c.MaxWorkers < 1 {
		return fmt.Errorf("max workers must be at least 1")
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}

	if c.CheckpointInterval < 1 {
		return fmt.Errorf("checkpoint interval must be at least 1")
	}

	if c.ReportS3URI != "" && !strings.HasPrefix(c.ReportS3URI, "s3://") {
		return fmt.Errorf("report S3 URI must start with s3://")
	}

	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second")
	}

	return nil
}

// ConfigDir returns the directory holding the config file,
// $XDG_CONFIG_HOME/awsop or ~/.config/awsop.
func ConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, AppName), nil
}

// LoadOptions controls Load.
type LoadOptions struct {
	// ConfigFilePath is used exclusively when set and must exist.
	ConfigFilePath string
	// Flags are bound by long name: --log-level sets log_level. Only flags
	// the user changed override the file and environment.
	Flags *pflag.FlagSet
}

// Load builds and validates the configuration.
// Example:
//
//	cfg, err := config.Load(config.LoadOptions{Flags: cmd.Flags()})
//	if err != nil {
//	    return err
//	}
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("region", defaults.Region)
	v.SetDefault("profile", defaults.Profile)
	v.SetDefault("endpoint_url", defaults.EndpointURL)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("strict", defaults.Strict)
	v.SetDefault("force", defaults.Force)
	v.SetDefault("dry_run", defaults.DryRun)
	v.SetDefault("no_auto_iteration", defaults.NoAutoIteration)
	v.SetDefault("principal_arn", defaults.PrincipalARN)
	v.SetDefault("resume_key", defaults.ResumeKey)
	v.SetDefault("checkpoint", defaults.CheckpointURI)
	v.SetDefault("workers", defaults.MaxWorkers)
	v.SetDefault("batch", defaults.BatchSize)
	v.SetDefault("checkpoint_interval", defaults.CheckpointInterval)
	v.SetDefault("results", defaults.ResultsURI)
	v.SetDefault("report", defaults.ReportS3URI)
	v.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := opts.ConfigFilePath
	if path == "" {
		dir, err := ConfigDir()
		if err == nil {
			if candidate := filepath.Join(dir, ConfigFileName); fileExists(candidate) {
				path = candidate
			}
		}
	} else if !fileExists(path) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !knownKeys[key] {
				return
			}
			bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Output = strings.ToLower(cfg.Output)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// knownKeys lists the keys Load binds flags to. Operation parameter flags
// share the command's flag set and must not leak into the configuration.
var knownKeys = map[string]bool{
	"region": true, "profile": true, "endpoint_url": true, "output": true,
	"log_level": true, "log_format": true, "strict": true, "force": true,
	"dry_run": true, "no_auto_iteration": true, "principal_arn": true,
	"resume_key": true, "checkpoint": true, "workers": true, "batch": true,
	"checkpoint_interval": true, "results": true, "report": true,
	"shutdown_timeout": true,
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
