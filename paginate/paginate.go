// Package paginate drives list operations that return continuation tokens.
// Pages are produced lazily as an iter.Seq2: each step sets the request's
// token field, invokes the operation, yields the page and captures the next
// token, stopping when the service returns none.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/gurre/awsop/schema"
	"github.com/gurre/awsop/selector"
	"github.com/gurre/awsop/wire"
)

// ErrTokenRepeated is returned when the service hands back the token that was
// just sent, which would otherwise loop forever.
var ErrTokenRepeated = errors.New("continuation token repeated")

// Mode selects between automatic iteration and one page per call.
type Mode int

const (
	// Auto follows continuation tokens until the last page.
	Auto Mode = iota
	// Manual produces exactly one page; the caller passes NextToken back in
	// to continue.
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "auto"
}

// Invoker is the single-call capability the driver repeats.
type Invoker interface {
	Invoke(ctx context.Context, op *schema.Operation, req *wire.Request) (any, error)
}

// Page is one response of a paginated operation.
type Page struct {
	Number    int    // 1-based page number within this run
	Response  any    // SDK output value
	NextToken string // Empty on the last page
}

// Options controls a pagination run.
type Options struct {
	Mode       Mode
	StartToken string // Token to resume from; empty starts from the beginning
	// AfterPage runs once the consumer has accepted a page, before the next
	// request. A checkpoint store hooks in here.
	AfterPage func(ctx context.Context, p Page) error
}

// Pages returns the lazy page sequence for op. Operations without paging
// yield a single page. Iteration stops at the first error, which is yielded
// with a zero Page.
// Example:
//
//	for page, err := range paginate.Pages(ctx, inv, op, req, paginate.Options{}) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(page.Number, page.NextToken)
//	}
func Pages(ctx context.Context, inv Invoker, op *schema.Operation, req *wire.Request, opts Options) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		token := opts.StartToken
		for n := 1; ; n++ {
			if op.Paginated() && token != "" {
				req.Set(op.Paging.InputToken, token)
			}

			resp, err := inv.Invoke(ctx, op, req)
			if err != nil {
				yield(Page{}, fmt.Errorf("page %d: %w", n, err))
				return
			}

			page := Page{Number: n, Response: resp}
			if op.Paginated() {
				next, err := selector.Lookup(resp, op.Paging.OutputToken)
				if err != nil {
					yield(Page{}, fmt.Errorf("page %d: failed to read continuation token: %w", n, err))
					return
				}
				page.NextToken = next
			}

			if !yield(page, nil) {
				return
			}
			if opts.AfterPage != nil {
				if err := opts.AfterPage(ctx, page); err != nil {
					yield(Page{}, fmt.Errorf("page %d: %w", n, err))
					return
				}
			}

			if page.NextToken == "" || opts.Mode == Manual {
				return
			}
			if page.NextToken == token {
				yield(Page{}, fmt.Errorf("page %d: %w: %s", n, ErrTokenRepeated, token))
				return
			}
			token = page.NextToken
		}
	}
}
