package invoker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gurre/awsop/schema"
)

// ErrDeclined is returned when a mutating operation is not confirmed.
var ErrDeclined = errors.New("operation declined")

// Confirmer asks whether a mutating operation may proceed. target names the
// resource affected, and may be empty.
type Confirmer interface {
	Confirm(ctx context.Context, op *schema.Operation, target string) (bool, error)
}

// AutoApprove confirms every operation.
type AutoApprove struct{}

// Confirm implements Confirmer.
func (AutoApprove) Confirm(context.Context, *schema.Operation, string) (bool, error) {
	return true, nil
}

// Prompt asks on Out and reads a yes/no answer from In. A single goroutine
// reads In line by line for the life of the Prompt, so buffered input is
// never lost between questions. A cancelled question leaves that read
// pending, and the line it returns answers the next question. Questions are
// asked one at a time.
type Prompt struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan string
	turn  chan struct{}
}

func (p *Prompt) start() {
	p.lines = make(chan string)
	p.turn = make(chan struct{}, 1)
	go func() {
		defer close(p.lines)
		r := bufio.NewReader(p.In)
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				p.lines <- line
			}
			if err != nil {
				return
			}
		}
	}()
}

// Confirm implements Confirmer. Only "y" and "yes" approve; end of input declines.
func (p *Prompt) Confirm(ctx context.Context, op *schema.Operation, target string) (bool, error) {
	p.once.Do(p.start)

	select {
	case p.turn <- struct{}{}:
		defer func() { <-p.turn }()
	case <-ctx.Done():
		return false, fmt.Errorf("%w: confirmation: %w", ErrCancelled, ctx.Err())
	}

	subject := op.Name
	if target != "" {
		subject = fmt.Sprintf("%s on %q", op.Name, target)
	}
	fmt.Fprintf(p.Out, "Perform %s? [y/N]: ", subject)

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%w: confirmation: %w", ErrCancelled, ctx.Err())
	case line, ok := <-p.lines:
		if !ok {
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// Gate consults c for mutating operations unless force is set. Non-mutating
// operations always pass.
func Gate(ctx context.Context, c Confirmer, op *schema.Operation, force bool, target string) error {
	if !op.Mutating || force {
		return nil
	}
	if c == nil {
		c = AutoApprove{}
	}
	ok, err := c.Confirm(ctx, op, target)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeclined, op.Name)
	}
	return nil
}
