// Package coordinator runs an operation once per record of one or more
// JSON-lines sources using a pool of workers. Each worker streams a source,
// decodes its records, invokes the operation through the adapter and hands
// the results to a writer, checkpointing its byte offset so an interrupted
// run resumes where it stopped.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gurre/awsop/adapter"
	"github.com/gurre/awsop/checkpoint"
	"github.com/gurre/awsop/config"
	"github.com/gurre/awsop/manifest"
	"github.com/gurre/awsop/metrics"
	"github.com/gurre/awsop/record"
	"github.com/gurre/awsop/schema"
	"github.com/gurre/awsop/writer"
	"go.uber.org/zap"
)

// WorkerStatus tracks the progress and errors of one worker.
// Fields are ordered largest-to-smallest for optimal memory alignment.
type WorkerStatus struct {
	LastErrorTime time.Time // When the last error occurred
	StartTime     time.Time // When the worker started
	LastActive    time.Time // Last activity timestamp
	LastError     error     // Last error encountered
	CurrentSource string    // Source currently being processed
	Records       int64     // Records invoked, successfully or not
	Failed        int64     // Records whose invocation failed
	ID            int       // Worker identifier
}

// Runner invokes one operation with raw inputs. *adapter.Adapter satisfies it.
type Runner interface {
	Run(ctx context.Context, op *schema.Operation, raw map[string]any) (*adapter.Result, error)
}

// ReportUploader uploads reports to S3.
type ReportUploader interface {
	UploadReport(ctx context.Context, uri string, report metrics.Report) error
}

// Coordinator manages a batch run: worker coordination, checkpoint
// management and progress reporting.
type Coordinator struct {
	cfg            *config.Config
	runner         Runner
	s3Streamer     Streamer
	fileStreamer   Streamer
	parser         record.Decoder
	writer         writer.Writer
	store          checkpoint.Store
	metrics        *metrics.Metrics
	reportUploader ReportUploader
	logger         *zap.Logger
	out            io.Writer // Progress and the final report

	workerStatus map[int]*WorkerStatus
	statusMu     sync.RWMutex
}

// NewCoordinator creates a new Coordinator instance with all required
// dependencies. s3Streamer may be nil when no source is on S3; m, logger and
// reportUploader may be nil.
func NewCoordinator(
	cfg *config.Config,
	runner Runner,
	s3Streamer Streamer,
	parser record.Decoder,
	w writer.Writer,
	store checkpoint.Store,
	m *metrics.Metrics,
	logger *zap.Logger,
	reportUploader ReportUploader,
) *Coordinator {
	if m == nil {
		m = metrics.NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:            cfg,
		runner:         runner,
		s3Streamer:     s3Streamer,
		fileStreamer:   &FileStreamer{},
		parser:         parser,
		writer:         w,
		store:          store,
		metrics:        m,
		reportUploader: reportUploader,
		logger:         logger,
		out:            os.Stderr,
		workerStatus:   make(map[int]*WorkerStatus),
	}
}

// SetOutput redirects progress lines and the final report.
func (c *Coordinator) SetOutput(w io.Writer) {
	c.out = w
}

// SetFileStreamer replaces the streamer used for local sources.
func (c *Coordinator) SetFileStreamer(s Streamer) {
	c.fileStreamer = s
}

// Run processes every source of job with op and returns the final report.
// Records that fail to decode or invoke are written as failed results and do
// not stop the run; failures to read a source, write results or save a
// checkpoint do.
func (c *Coordinator) Run(ctx context.Context, op *schema.Operation, job manifest.Job) (metrics.Report, error) {
	// Set up signal handling
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tasks := make(chan manifest.Source)
	results := make(chan error, c.cfg.MaxWorkers)
	var wg sync.WaitGroup

	if !c.cfg.DryRun {
		go c.reportProgress(ctx)
	}

	for i := 0; i < c.cfg.MaxWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.initWorker(workerID)
			if err := c.worker(ctx, workerID, op, job, tasks); err != nil {
				results <- fmt.Errorf("worker %d failed: %w", workerID, err)
				// Keep draining so the sender never blocks on a dead worker.
				for range tasks {
				}
			}
		}(i)
	}

	go func() {
		defer close(tasks)
		for _, src := range job.Sources {
			select {
			case tasks <- src:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)
	var errs []error
	for err := range results {
		errs = append(errs, err)
	}

	// Flush what was written even when the run failed; it matches the checkpoints.
	flushCtx, flushCancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ShutdownTimeout)
	defer flushCancel()
	if err := c.writer.Flush(flushCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush results: %w", err))
	}

	report := c.metrics.GenerateReport()
	if err := ctx.Err(); err != nil && len(errs) == 0 {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}

	fmt.Fprintln(c.out, report)

	if c.cfg.ReportS3URI != "" && c.reportUploader != nil {
		if err := c.reportUploader.UploadReport(ctx, c.cfg.ReportS3URI, report); err != nil {
			return report, fmt.Errorf("failed to upload report: %w", err)
		}
		fmt.Fprintf(c.out, "Report uploaded to %s\n", c.cfg.ReportS3URI)
	}
	return report, nil
}

// initWorker initializes a worker's status tracking
func (c *Coordinator) initWorker(id int) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.workerStatus[id] = &WorkerStatus{
		ID:        id,
		StartTime: time.Now(),
	}
}

// updateWorkerStatus updates a worker's status for monitoring
func (c *Coordinator) updateWorkerStatus(id int, fn func(*WorkerStatus)) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	if status, ok := c.workerStatus[id]; ok {
		fn(status)
		status.LastActive = time.Now()
	}
}

// Status returns a snapshot of every worker's status.
func (c *Coordinator) Status() []WorkerStatus {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	out := make([]WorkerStatus, 0, len(c.workerStatus))
	for i := 0; i < len(c.workerStatus); i++ {
		if s, ok := c.workerStatus[i]; ok {
			out = append(out, *s)
		}
	}
	return out
}

// reportProgress periodically reports progress until ctx is done.
func (c *Coordinator) reportProgress(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var records, failed int64
			activeWorkers := 0
			for _, status := range c.Status() {
				if time.Since(status.LastActive) < 10*time.Second {
					activeWorkers++
				}
				records += status.Records
				failed += status.Failed
			}
			fmt.Fprintf(c.out, "Progress: %d records invoked, %d failed (%d active workers)\n",
				records, failed, activeWorkers)

		case <-ctx.Done():
			return
		}
	}
}

// worker processes sources from the task channel, batching results and
// checkpointing every cfg.CheckpointInterval records.
//
// A saved checkpoint marks the record starting at its Offset as done, so a
// resumed stream skips every record at or before it.
func (c *Coordinator) worker(ctx context.Context, id int, op *schema.Operation, job manifest.Job, tasks <-chan manifest.Source) error {
	const maxRetries = 3

	for src := range tasks {
		c.updateWorkerStatus(id, func(s *WorkerStatus) {
			s.CurrentSource = src.URI
		})
		log := c.logger.With(zap.Int("worker", id), zap.String("source", src.URI))

		ckey := SourceKey(op, src.URI)
		state, err := c.store.Load(ctx, ckey)
		if err != nil {
			c.recordError(id, err)
			return fmt.Errorf("failed to load checkpoint for source %s: %w", src.URI, err)
		}
		if state.Done {
			log.Info("source already processed, skipping")
			continue
		}

		streamer, bucket, key, err := c.route(src.URI)
		if err != nil {
			return err
		}

		p := &progress{
			resumed: !state.UpdatedAt.IsZero(),
			last:    state.Offset,
			batch:   make([]writer.Result, 0, c.cfg.BatchSize),
		}
		if p.resumed {
			log.Info("resuming source", zap.Int64("offset", p.last))
		}

		// Failures past the stream itself are not retried.
		var streamErr, fatal error
		for retry := 0; retry < maxRetries; retry++ {
			if retry > 0 {
				select {
				case <-time.After(retryDelay(retry)):
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			streamErr = streamer.Stream(ctx, bucket, key, p.last, func(line []byte, byteOffset int64) error {
				if p.resumed && byteOffset <= p.last {
					return nil
				}
				if record.Blank(line) {
					return nil
				}
				fatal = c.process(ctx, id, op, job, src.URI, ckey, line, byteOffset, p)
				return fatal
			})
			if streamErr == nil || fatal != nil || ctx.Err() != nil {
				break
			}
			c.recordError(id, streamErr)
			// Standard input cannot be read again.
			if src.URI == "-" {
				return fmt.Errorf("failed to read standard input: %w", streamErr)
			}
			log.Warn("stream failed, retrying", zap.Int("retry", retry+1), zap.Error(streamErr))
		}
		if fatal != nil {
			return fatal
		}
		if streamErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to process source %s after %d retries: %w",
				src.URI, maxRetries, streamErr)
		}

		// Write any remaining results, then mark the source complete
		if err := c.writeBatch(ctx, id, p); err != nil {
			return err
		}
		if err := c.writer.Flush(ctx); err != nil {
			c.recordError(id, err)
			return fmt.Errorf("failed to flush results: %w", err)
		}
		if err := c.save(ctx, checkpoint.State{
			Key:       ckey,
			Offset:    p.last,
			Done:      true,
			UpdatedAt: time.Now().UTC(),
		}); err != nil {
			c.recordError(id, err)
			return fmt.Errorf("failed to save completion checkpoint for source %s: %w", src.URI, err)
		}
		log.Info("source completed")
	}
	return nil
}

// retryDelay is the wait before re-streaming a source after a failure.
var retryDelay = func(retry int) time.Duration {
	return time.Duration(1<<uint(retry)) * time.Second
}

// progress is the per-source state of a worker.
type progress struct {
	resumed         bool
	last            int64 // Offset of the last processed record
	batch           []writer.Result
	sinceCheckpoint int
}

// process decodes and invokes one record. Only failures that would make a
// checkpoint lie are returned; a record's own failure becomes its result.
func (c *Coordinator) process(ctx context.Context, id int, op *schema.Operation, job manifest.Job,
	source, key string, line []byte, offset int64, p *progress) error {
	res := writer.Result{Source: source, Offset: offset}

	rec, err := c.parser.Decode(line)
	switch {
	case errors.Is(err, record.ErrCorrupt):
		c.metrics.RecordCorrupt()
		res.Error = err.Error()
	case err != nil:
		return err
	default:
		out, err := c.runner.Run(ctx, op, job.Merge(op, rec.Inputs))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.metrics.RecordError()
			res.Error = err.Error()
			c.updateWorkerStatus(id, func(s *WorkerStatus) {
				s.Failed++
				s.LastError = err
				s.LastErrorTime = time.Now()
			})
		} else {
			res.InvocationID = out.InvocationID
			res.Output = out.Output()
			if out.DryRun {
				res.Output = out.Request
			}
		}
	}
	c.metrics.RecordProcessed()
	c.updateWorkerStatus(id, func(s *WorkerStatus) { s.Records++ })

	p.batch = append(p.batch, res)
	p.last = offset
	p.resumed = true
	p.sinceCheckpoint++

	if len(p.batch) >= c.cfg.BatchSize {
		if err := c.writeBatch(ctx, id, p); err != nil {
			return err
		}
	}
	if p.sinceCheckpoint >= c.cfg.CheckpointInterval {
		if err := c.checkpoint(ctx, id, key, p); err != nil {
			return err
		}
	}
	return nil
}

// writeBatch hands the pending results to the writer.
func (c *Coordinator) writeBatch(ctx context.Context, id int, p *progress) error {
	if len(p.batch) == 0 {
		return nil
	}
	if err := c.writer.WriteBatch(ctx, p.batch); err != nil {
		c.recordError(id, err)
		return fmt.Errorf("failed to write results: %w", err)
	}
	p.batch = p.batch[:0]
	return nil
}

// checkpoint writes and flushes pending results before saving the offset,
// so a saved offset never runs ahead of delivered results.
func (c *Coordinator) checkpoint(ctx context.Context, id int, key string, p *progress) error {
	if err := c.writeBatch(ctx, id, p); err != nil {
		return err
	}
	if err := c.writer.Flush(ctx); err != nil {
		c.recordError(id, err)
		return fmt.Errorf("failed to flush results: %w", err)
	}
	if err := c.save(ctx, checkpoint.State{
		Key:       key,
		Offset:    p.last,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		c.recordError(id, err)
		return fmt.Errorf("failed to save checkpoint %s: %w", key, err)
	}
	p.sinceCheckpoint = 0
	return nil
}

// save stores state unless this is a dry run. A dry run reads checkpoints so
// it starts where a real run would, but never records progress.
func (c *Coordinator) save(ctx context.Context, state checkpoint.State) error {
	if c.cfg.DryRun {
		return nil
	}
	return c.store.Save(ctx, state)
}

// SourceKey is the checkpoint key of a batch source. It includes the
// operation so that different operations over one source keep separate
// progress.
func SourceKey(op *schema.Operation, uri string) string {
	return "batch/" + op.Service + "/" + op.Name + "/" + uri
}

// route picks the streamer for uri and splits it into bucket and key.
func (c *Coordinator) route(uri string) (Streamer, string, string, error) {
	if strings.HasPrefix(uri, "s3://") {
		if c.s3Streamer == nil {
			return nil, "", "", fmt.Errorf("no S3 streamer configured for %s", uri)
		}
		bucket, key, err := manifest.ParseS3URI(uri)
		if err != nil {
			return nil, "", "", err
		}
		return c.s3Streamer, bucket, key, nil
	}
	return c.fileStreamer, "", uri, nil
}

// recordError records a worker error
func (c *Coordinator) recordError(id int, err error) {
	c.metrics.RecordError()
	c.updateWorkerStatus(id, func(s *WorkerStatus) {
		s.LastError = err
		s.LastErrorTime = time.Now()
	})
}
