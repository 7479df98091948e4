package main

import (
	"context"
	"fmt"

	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/binder"
	"github.com/gurre/awsop/checkpoint"
	"github.com/gurre/awsop/config"
	"github.com/gurre/awsop/coordinator"
	"github.com/gurre/awsop/invoker"
	"github.com/gurre/awsop/manifest"
	"github.com/gurre/awsop/record"
	"github.com/gurre/awsop/writer"
	"github.com/gurre/s3streamer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// batchOptions are the flags of the batch command that are not configuration.
type batchOptions struct {
	sources        []string
	manifestURI    string
	verifyChecksum bool
}

func (a *app) newBatchCommand() *cobra.Command {
	defaults := config.DefaultConfig()
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch [service operation]",
		Short: "Invoke an operation once per record of JSON-lines sources",
		Long: `Invoke an operation once per record of one or more JSON-lines sources.

Each line is a JSON object of parameters keyed by parameter name, the same
names the operation's flags are derived from. Results are written as JSON
lines with the source and byte offset of their record. Progress is
checkpointed per source so an interrupted run picks up where it stopped.

A manifest names the operation, shared default parameters and the sources:

  {"version": "1", "service": "translate", "operation": "TranslateText",
   "defaults": {"SourceLanguageCode": "en", "TargetLanguageCode": "sv"},
   "sources": [{"uri": "part-0.jsonl", "md5Checksum": "..."}]}

Examples:
  awsop batch translate translate-text --source texts.jsonl
  awsop batch --manifest s3://bucket/jobs/job.json --results s3://bucket/out/results.jsonl --checkpoint s3://bucket/state/`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected service and operation, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd.Context(), args, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringArrayVar(&opts.sources, "source", nil, "JSON-lines source: file path, - for stdin, or s3://bucket/key (repeatable)")
	fs.StringVar(&opts.manifestURI, "manifest", "", "job manifest: file path or s3://bucket/key")
	fs.BoolVar(&opts.verifyChecksum, "verify-checksums", true, "verify manifest source checksums before processing")
	fs.Int("workers", defaults.MaxWorkers, "sources processed concurrently")
	fs.Int("batch", defaults.BatchSize, "results per sink write")
	fs.Int("checkpoint-interval", defaults.CheckpointInterval, "records between checkpoints")
	fs.String("results", defaults.ResultsURI, "results sink: - for stdout, a file, s3://bucket/key or dynamodb://table")
	fs.String("report", defaults.ReportS3URI, "S3 URI for the final report")
	fs.Duration("shutdown-timeout", defaults.ShutdownTimeout, "grace period to flush results after an interrupt")
	return cmd
}

func (a *app) runBatch(ctx context.Context, args []string, opts batchOptions) error {
	job, err := a.loadJob(ctx, args, opts)
	if err != nil {
		return err
	}
	op, err := a.catalog.Lookup(job.Service, job.Operation)
	if err != nil {
		return err
	}

	// Confirm once for the whole run rather than once per record.
	if !a.cfg.DryRun {
		if op.Mutating && !a.cfg.Force && readsStdin(job) {
			return fmt.Errorf("%s reads records from stdin and cannot ask for confirmation; use --force", op.Name)
		}
		confirmer := &invoker.Prompt{In: a.stdin, Out: a.stderr}
		target := fmt.Sprintf("%d source(s)", len(job.Sources))
		if err := invoker.Gate(ctx, confirmer, op, a.cfg.Force, target); err != nil {
			return err
		}
	}

	ad, err := a.newAdapter(true)
	if err != nil {
		return err
	}
	w, err := writer.New(a.cfg.ResultsURI, a.clients, a.stdout)
	if err != nil {
		return err
	}
	store, err := checkpoint.NewStore(a.cfg.CheckpointURI, a.clients)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	var s3Streamer coordinator.Streamer
	if client, ok := a.clients.S3.(aws.S3StreamClient); ok {
		s3Streamer = s3streamer.NewS3Streamer(client)
	}
	var uploader coordinator.ReportUploader
	if a.clients.S3 != nil {
		uploader = coordinator.NewS3ReportUploader(a.clients.S3)
	}

	coord := coordinator.NewCoordinator(a.cfg, ad, s3Streamer, record.NewJSONDecoder(), w, store, a.metrics, a.logger, uploader)
	coord.SetOutput(a.stderr)
	coord.SetFileStreamer(&coordinator.FileStreamer{Stdin: a.stdin})

	a.logger.Info("starting batch",
		zap.String("service", op.Service),
		zap.String("operation", op.Name),
		zap.Int("sources", len(job.Sources)),
		zap.Int("workers", a.cfg.MaxWorkers))

	_, runErr := coord.Run(ctx, op, job)
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := w.Close(closeCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close results: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("batch failed: %w", runErr)
	}
	return nil
}

// loadJob builds the job from a manifest or from the command line. Service
// and operation given on the command line must match the manifest's.
func (a *app) loadJob(ctx context.Context, args []string, opts batchOptions) (manifest.Job, error) {
	var job manifest.Job
	if opts.manifestURI != "" {
		loader := manifest.NewSourceLoader(&binder.SourceOpener{S3: a.clients.S3, Stdin: a.stdin}, a.clients.S3)
		var err error
		job, err = loader.Load(ctx, opts.manifestURI)
		if err != nil {
			return job, err
		}
		if opts.verifyChecksum {
			if err := loader.VerifyChecksums(ctx, job); err != nil {
				return job, err
			}
		}
	}

	if len(args) == 2 {
		service, operation := args[0], args[1]
		if job.Service != "" && job.Service != service {
			return job, fmt.Errorf("manifest is for service %s, not %s", job.Service, service)
		}
		if job.Operation != "" {
			mop, err := a.catalog.Lookup(service, job.Operation)
			if err != nil {
				return job, err
			}
			aop, err := a.catalog.Lookup(service, operation)
			if err != nil {
				return job, err
			}
			if mop != aop {
				return job, fmt.Errorf("manifest is for operation %s, not %s", job.Operation, operation)
			}
		}
		job.Service, job.Operation = service, operation
	}
	if job.Service == "" || job.Operation == "" {
		return job, fmt.Errorf("service and operation are required without a manifest")
	}

	for _, uri := range opts.sources {
		job.Sources = append(job.Sources, manifest.Source{URI: uri})
	}
	if len(job.Sources) == 0 {
		return job, fmt.Errorf("at least one --source or a --manifest is required")
	}
	return job, nil
}

func readsStdin(job manifest.Job) bool {
	for _, src := range job.Sources {
		if src.URI == "-" {
			return true
		}
	}
	return false
}
