// Package adapter runs one operation invocation end to end: bind the raw
// inputs, build the request, pass the confirmation gate and permission check,
// invoke (following pages when the operation pages) and project each response
// through the selection expression.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gurre/awsop/binder"
	"github.com/gurre/awsop/checkpoint"
	"github.com/gurre/awsop/invoker"
	"github.com/gurre/awsop/metrics"
	"github.com/gurre/awsop/paginate"
	"github.com/gurre/awsop/schema"
	"github.com/gurre/awsop/selector"
	"github.com/gurre/awsop/wire"
	"go.uber.org/zap"
)

// PermissionChecker decides whether op may be sent at all.
type PermissionChecker interface {
	Check(ctx context.Context, op *schema.Operation) error
}

// Options holds per-run settings. Force and the confirmer are passed here
// explicitly; the adapter keeps no global state.
type Options struct {
	Strict          bool              // Missing required or unknown inputs fail the invocation
	Force           bool              // Skip confirmation of mutating operations
	DryRun          bool              // Bind and build, but do not send
	NoAutoIteration bool              // Return one page per invocation
	ResumeKey       string            // Checkpoint key for resumable paging; empty disables
	Confirmer       invoker.Confirmer // Asked before mutating operations unless Force
	Checker         PermissionChecker // Optional preflight permission check
	Checkpoints     checkpoint.Store  // Required when ResumeKey is set
	Opener          binder.Opener     // Resolves byte-payload sources
	Logger          *zap.Logger       // Defaults to a no-op logger
	Metrics         *metrics.Metrics  // Optional
}

// Adapter runs invocations over one Invoker. It is safe for concurrent use
// when its Confirmer, Checker and Checkpoints are.
type Adapter struct {
	invoker *invoker.Invoker
	opts    Options
}

// New creates an Adapter.
func New(inv *invoker.Invoker, opts Options) *Adapter {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Adapter{invoker: inv, opts: opts}
}

// Result is the outcome of one invocation.
type Result struct {
	InvocationID string
	Operation    *schema.Operation
	Request      json.RawMessage // The request as built, captured before payload buffers are released
	Values       []any           // Selected value of each page
	Pages        int
	NextToken    string  // Continuation token after the last page, empty when exhausted
	Warnings     []error // Binding problems tolerated in lenient mode
	DryRun       bool
}

// Output folds the per-page values into one value. A single page yields its
// value unchanged; list values of several pages are concatenated.
func (r *Result) Output() any {
	switch len(r.Values) {
	case 0:
		return nil
	case 1:
		return r.Values[0]
	}
	var merged []any
	for _, v := range r.Values {
		if list, ok := v.([]any); ok {
			merged = append(merged, list...)
		} else {
			merged = append(merged, v)
		}
	}
	return merged
}

// Run invokes op with raw inputs.
// Example:
//
//	res, err := a.Run(ctx, op, map[string]any{
//	    "DomainName": "logs",
//	    "Select":     "DomainStatus.Endpoint",
//	})
//	if err != nil {
//	    return err
//	}
//	output.Write(os.Stdout, res.Output(), output.Text)
func (a *Adapter) Run(ctx context.Context, op *schema.Operation, raw map[string]any) (*Result, error) {
	start := time.Now()
	res := &Result{InvocationID: uuid.NewString(), Operation: op, DryRun: a.opts.DryRun}
	log := a.opts.Logger.With(
		zap.String("invocation_id", res.InvocationID),
		zap.String("service", op.Service),
		zap.String("operation", op.Name))

	rc, err := binder.Bind(ctx, raw, op, binder.Options{
		Strict: a.opts.Strict,
		Opener: a.opts.Opener,
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s inputs: %w", op.Name, err)
	}
	defer rc.Release()
	res.Warnings = rc.Warnings

	expr, err := selector.Resolve(op, rc)
	if err != nil {
		return nil, err
	}

	req, err := wire.Build(rc)
	if err != nil {
		return nil, err
	}
	if res.Request, err = req.MarshalJSON(); err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", op.Name, err)
	}
	if a.opts.DryRun {
		log.Info("dry run, request not sent")
		return res, nil
	}

	// Nothing past this point runs for a cancelled invocation.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", invoker.ErrCancelled, op.Name, err)
	}
	if err := invoker.Gate(ctx, a.opts.Confirmer, op, a.opts.Force, passThruTarget(op, rc)); err != nil {
		if errors.Is(err, invoker.ErrDeclined) && a.opts.Metrics != nil {
			a.opts.Metrics.RecordDeclined()
		}
		return nil, err
	}
	if a.opts.Checker != nil {
		if err := a.opts.Checker.Check(ctx, op); err != nil {
			return nil, err
		}
	}

	popts, err := a.pagingOptions(ctx, op, rc)
	if err != nil {
		return nil, err
	}

	for page, err := range paginate.Pages(ctx, a.invoker, op, req, popts) {
		if err != nil {
			log.Debug("invocation failed", zap.Int("pages", res.Pages), zap.Error(err))
			return nil, err
		}
		res.Pages++
		res.NextToken = page.NextToken
		if a.opts.Metrics != nil {
			a.opts.Metrics.RecordPage()
		}

		v, err := selector.Select(page.Response, expr, rc)
		if err != nil {
			return nil, err
		}
		// An echoed input is the same on every page.
		if expr.Kind == selector.KindEcho && len(res.Values) > 0 {
			continue
		}
		res.Values = append(res.Values, v)
	}

	log.Info("invocation completed",
		zap.Int("pages", res.Pages),
		zap.String("mode", popts.Mode.String()),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// pagingOptions chooses the paging mode and wires the checkpoint store. A
// token supplied by the caller, or the no-auto-iteration switch, selects
// manual mode; a token restored from a checkpoint keeps automatic mode.
func (a *Adapter) pagingOptions(ctx context.Context, op *schema.Operation, rc *binder.RequestContext) (paginate.Options, error) {
	var popts paginate.Options
	if !op.Paginated() {
		return popts, nil
	}

	tokenField, _ := op.FieldByPath(op.Paging.InputToken)
	if _, supplied := rc.Values[tokenField.Name]; supplied || a.opts.NoAutoIteration {
		popts.Mode = paginate.Manual
	}

	if a.opts.ResumeKey == "" || popts.Mode == paginate.Manual {
		return popts, nil
	}
	if a.opts.Checkpoints == nil {
		return popts, fmt.Errorf("resume key %q given without a checkpoint store", a.opts.ResumeKey)
	}

	state, err := a.opts.Checkpoints.Load(ctx, a.opts.ResumeKey)
	if err != nil {
		return popts, err
	}
	if !state.Done {
		popts.StartToken = state.NextToken
	}
	key := a.opts.ResumeKey
	store := a.opts.Checkpoints
	popts.AfterPage = func(ctx context.Context, p paginate.Page) error {
		return store.Save(ctx, checkpoint.State{
			Key:       key,
			NextToken: p.NextToken,
			Done:      p.NextToken == "",
			UpdatedAt: time.Now().UTC(),
		})
	}
	return popts, nil
}

// passThruTarget names the resource a confirmation prompt is about.
func passThruTarget(op *schema.Operation, rc *binder.RequestContext) string {
	if op.PassThru == "" {
		return ""
	}
	if v, ok := rc.Value(op.PassThru); ok {
		return fmt.Sprint(v)
	}
	return ""
}
