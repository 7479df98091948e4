// Package invoker dispatches one built request to its remote operation. It
// makes exactly one transport call per invocation, checks the caller's context
// before sending, reports cancellation distinctly from failure and enriches
// connection failures with the endpoint that could not be reached.
package invoker

import (
	"context"
	"fmt"
	"time"

	"github.com/gurre/awsop/metrics"
	"github.com/gurre/awsop/schema"
	"github.com/gurre/awsop/wire"
	"go.uber.org/zap"
)

// Transport sends requests to the remote service.
type Transport interface {
	// Send performs the operation and returns the SDK output value.
	Send(ctx context.Context, op *schema.Operation, req *wire.Request) (any, error)
	// Endpoint returns the endpoint URL used for service.
	Endpoint(service string) string
}

// Invoker wraps a Transport with cancellation handling, error enrichment,
// logging and metrics.
type Invoker struct {
	transport Transport
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger used for per-call debug and error entries.
func WithLogger(l *zap.Logger) Option {
	return func(i *Invoker) { i.logger = l }
}

// WithMetrics records every call in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Invoker) { i.metrics = m }
}

// New creates an Invoker over t.
func New(t Transport, opts ...Option) *Invoker {
	i := &Invoker{transport: t, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Endpoint exposes the transport's endpoint for op's service.
func (i *Invoker) Endpoint(op *schema.Operation) string {
	return i.transport.Endpoint(op.Service)
}

// Invoke sends req and blocks until the transport returns. An already
// cancelled context aborts before the transport is called. Errors are
// classified as cancellation (wrapping ErrCancelled), TransportError, or
// returned unchanged.
func (i *Invoker) Invoke(ctx context.Context, op *schema.Operation, req *wire.Request) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCancelled, op.Name, err)
	}

	start := time.Now()
	resp, err := i.transport.Send(ctx, op, req)
	elapsed := time.Since(start)
	if i.metrics != nil {
		i.metrics.RecordInvocation(elapsed)
	}

	if err == nil {
		i.logger.Debug("invocation completed",
			zap.String("service", op.Service),
			zap.String("operation", op.Name),
			zap.Duration("elapsed", elapsed))
		return resp, nil
	}

	if i.metrics != nil {
		i.metrics.RecordError()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCancelled, op.Name, ctxErr)
	}
	if isConnectionError(err) {
		endpoint := i.transport.Endpoint(op.Service)
		i.logger.Error("endpoint unreachable",
			zap.String("operation", op.Name),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return nil, &TransportError{Operation: op.Name, Endpoint: endpoint, Err: err}
	}

	i.logger.Debug("invocation failed",
		zap.String("operation", op.Name),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))
	return nil, err
}
