package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/varun/sleuth/internal/fault"
	"github.com/varun/sleuth/internal/observability"
)

// Adapter is the single seam through which the engine reaches any
// collaborator. It enforces one timeout per tool class and classifies
// failures; it never retries — retry policy belongs to the caller.
type Adapter struct {
	Registry *Registry
	Logger   *observability.Logger
}

func NewAdapter(registry *Registry, logger *observability.Logger) *Adapter {
	return &Adapter{Registry: registry, Logger: logger}
}

// Invoke runs the named tool with its class timeout. An elapsed budget
// surfaces as a typed ToolTimeout, never a generic failure. The tool
// call itself cannot be interrupted once dispatched (collaborators are
// opaque), so on timeout the goroutine is abandoned and its eventual
// result discarded.
func (a *Adapter) Invoke(ctx context.Context, name string, args map[string]string) (*Result, error) {
	tool := a.Registry.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("unknown tool %s: %w", name, fault.ErrToolFailure)
	}

	if a.Logger != nil {
		a.Logger.LogToolCall(args["plan_id"], name, args)
	}

	cctx, cancel := context.WithTimeout(ctx, tool.Timeout())
	defer cancel()

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := tool.Execute(cctx, args)
		done <- outcome{res, err}
	}()

	select {
	case <-cctx.Done():
		return nil, fault.Timeout(name, cctx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, classify(name, out.err)
		}
		return out.res, nil
	}
}

func classify(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Timeout(name, err)
	}
	// Preserve errors that already carry a taxonomy kind (a malformed
	// plan from the reasoning backend stays ValidationFailed).
	if fault.KindOf(err) != fault.KindInternal {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w: %v", name, fault.ErrToolFailure, err)
}
