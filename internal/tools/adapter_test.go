package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varun/sleuth/internal/fault"
)

// fakeTool lets tests control latency and outcome per invocation.
type fakeTool struct {
	name    string
	timeout time.Duration
	execute func(ctx context.Context, args map[string]string) (*Result, error)
}

func (f *fakeTool) Name() string           { return f.name }
func (f *fakeTool) Description() string    { return "fake tool for tests" }
func (f *fakeTool) Timeout() time.Duration { return f.timeout }
func (f *fakeTool) Execute(ctx context.Context, args map[string]string) (*Result, error) {
	return f.execute(ctx, args)
}

func newTestAdapter(ts ...Tool) *Adapter {
	registry := NewRegistry()
	for _, t := range ts {
		registry.Register(t)
	}
	return NewAdapter(registry, nil)
}

func TestInvokeSuccess(t *testing.T) {
	a := newTestAdapter(&fakeTool{
		name:    "echo",
		timeout: time.Second,
		execute: func(ctx context.Context, args map[string]string) (*Result, error) {
			return &Result{Output: args["msg"]}, nil
		},
	})

	res, err := a.Invoke(context.Background(), "echo", map[string]string{"msg": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Output)
}

func TestInvokeUnknownTool(t *testing.T) {
	a := newTestAdapter()

	_, err := a.Invoke(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindToolFailure, fault.KindOf(err))
}

func TestInvokeTimeout(t *testing.T) {
	a := newTestAdapter(&fakeTool{
		name:    "slow",
		timeout: 20 * time.Millisecond,
		execute: func(ctx context.Context, args map[string]string) (*Result, error) {
			time.Sleep(500 * time.Millisecond)
			return &Result{Output: "too late"}, nil
		},
	})

	start := time.Now()
	_, err := a.Invoke(context.Background(), "slow", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrToolTimeout))
	assert.Equal(t, fault.KindToolTimeout, fault.KindOf(err))
	assert.Less(t, time.Since(start), 400*time.Millisecond, "must not wait out the slow call")
}

func TestInvokeClassifiesFailure(t *testing.T) {
	a := newTestAdapter(&fakeTool{
		name:    "broken",
		timeout: time.Second,
		execute: func(ctx context.Context, args map[string]string) (*Result, error) {
			return nil, errors.New("disk on fire")
		},
	})

	_, err := a.Invoke(context.Background(), "broken", nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindToolFailure, fault.KindOf(err))
}

func TestInvokePreservesTaxonomyKind(t *testing.T) {
	a := newTestAdapter(&fakeTool{
		name:    "picky",
		timeout: time.Second,
		execute: func(ctx context.Context, args map[string]string) (*Result, error) {
			return nil, fmt.Errorf("bad plan shape: %w", fault.ErrValidationFailed)
		},
	})

	_, err := a.Invoke(context.Background(), "picky", nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindValidationFailed, fault.KindOf(err))
}

func TestInvokeDeadlineExceededFromTool(t *testing.T) {
	a := newTestAdapter(&fakeTool{
		name:    "deadline",
		timeout: time.Second,
		execute: func(ctx context.Context, args map[string]string) (*Result, error) {
			return nil, context.DeadlineExceeded
		},
	})

	_, err := a.Invoke(context.Background(), "deadline", nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindToolTimeout, fault.KindOf(err))
}
