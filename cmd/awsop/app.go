package main

import (
	"context"
	"fmt"
	"io"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gurre/awsop/adapter"
	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/binder"
	"github.com/gurre/awsop/catalog"
	"github.com/gurre/awsop/checkpoint"
	"github.com/gurre/awsop/config"
	"github.com/gurre/awsop/invoker"
	"github.com/gurre/awsop/metrics"
	"github.com/gurre/awsop/preflight"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the process-wide state shared by every command. Configuration,
// logger and clients are set up once the command line has been parsed.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	catalog    *catalog.Catalog
	configFile string

	// Overridden in tests.
	loadClients  func(ctx context.Context, cfg *config.Config) (*aws.Clients, error)
	newTransport func(clients *aws.Clients) invoker.Transport

	cfg     *config.Config
	logger  *zap.Logger
	clients *aws.Clients
	metrics *metrics.Metrics
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	a := &app{
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
		catalog:     catalog.New(),
		loadClients: loadClients,
	}
	a.newTransport = func(clients *aws.Clients) invoker.Transport {
		return &catalog.SDKTransport{Catalog: a.catalog, Clients: clients}
	}
	return a
}

// execute runs the command line args.
func (a *app) execute(ctx context.Context, args []string) error {
	root := a.newRootCommand()
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

func (a *app) newRootCommand() *cobra.Command {
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Invoke Elasticsearch, OpenSearch and Translate operations",
		Long: `awsop invokes AWS Elasticsearch, OpenSearch and Translate operations.

Each operation is a command whose flags are its parameters. Nested request
structures are flattened, so ElasticsearchClusterConfig.InstanceType is set
with --elasticsearch-cluster-config-instance-type. The response is reduced
to the operation's default selection unless --select names another.

Examples:
  awsop es describe-elasticsearch-domain --domain-name logs
  awsop es describe-elasticsearch-domain --domain-name logs --select '*'
  awsop translate list-terminologies --no-auto-iteration --max-results 10
  awsop batch translate translate-text --source s3://bucket/texts.jsonl`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/awsop/config.yaml)")
	pf.String("region", defaults.Region, "AWS region")
	pf.String("profile", defaults.Profile, "shared config profile")
	pf.String("endpoint-url", defaults.EndpointURL, "endpoint URL override for every service")
	pf.StringP("output", "o", defaults.Output, "output format: json or text")
	pf.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	pf.String("log-format", defaults.LogFormat, "log format: json or console")
	pf.Bool("strict", defaults.Strict, "fail on missing required or unknown parameters")
	pf.Bool("force", defaults.Force, "do not ask before mutating operations")
	pf.Bool("dry-run", defaults.DryRun, "print the request instead of sending it")
	pf.Bool("no-auto-iteration", defaults.NoAutoIteration, "return a single page of paginated operations")
	pf.String("principal-arn", defaults.PrincipalARN, "simulate the IAM policy of this principal before each call")
	pf.String("resume-key", defaults.ResumeKey, "checkpoint key for resuming a paginated listing")
	pf.String("checkpoint", defaults.CheckpointURI, "checkpoint store: mem://, file://dir, s3://bucket/prefix or dynamodb://table")

	for _, service := range a.catalog.Registry().Services() {
		root.AddCommand(a.newServiceCommand(service, root))
	}
	root.AddCommand(a.newBatchCommand())
	return root
}

// setup loads configuration and creates the logger and AWS clients.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFilePath: a.configFile,
		Flags:          cmd.Flags(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = newLogger(cfg.LogLevel, cfg.LogFormat, a.stderr)
	if err != nil {
		return err
	}
	a.metrics = metrics.NewMetrics()

	a.clients, err = a.loadClients(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.logger.Debug("configuration loaded",
		zap.String("region", a.clients.Region),
		zap.String("endpoint", cfg.EndpointURL),
		zap.String("checkpoint", cfg.CheckpointURI))
	return nil
}

// newAdapter wires an adapter from the loaded configuration. A batch adapter
// never prompts and never resumes a listing; the batch run confirms once and
// checkpoints by source instead.
func (a *app) newAdapter(batch bool) (*adapter.Adapter, error) {
	store, err := checkpoint.NewStore(a.cfg.CheckpointURI, a.clients)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	opts := adapter.Options{
		Strict:          a.cfg.Strict,
		Force:           a.cfg.Force || batch,
		DryRun:          a.cfg.DryRun,
		NoAutoIteration: a.cfg.NoAutoIteration,
		Confirmer:       &invoker.Prompt{In: a.stdin, Out: a.stderr},
		Checkpoints:     store,
		Opener:          &binder.SourceOpener{S3: a.clients.S3, Stdin: a.stdin},
		Logger:          a.logger,
		Metrics:         a.metrics,
	}
	if !batch {
		opts.ResumeKey = a.cfg.ResumeKey
	}
	if a.cfg.PrincipalARN != "" {
		opts.Checker = preflight.NewChecker(a.clients.IAM, a.cfg.PrincipalARN, a.logger)
	}

	inv := invoker.New(a.newTransport(a.clients),
		invoker.WithLogger(a.logger),
		invoker.WithMetrics(a.metrics))
	return adapter.New(inv, opts), nil
}

// loadClients resolves credentials and region through the SDK's default
// chain and creates every service client.
func loadClients(ctx context.Context, cfg *config.Config) (*aws.Clients, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = awssdk.String(cfg.EndpointURL)
	}
	return aws.NewClients(awsCfg), nil
}

// newLogger creates a logger writing to w at level in the given encoding.
func newLogger(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encCfg.EncodeDuration = zapcore.StringDurationEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl)), nil
}
