package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/varun/sleuth/internal/store"
	"github.com/varun/sleuth/internal/tools"
)

func TestRunnerExecutesApprovedPlan(t *testing.T) {
	h := newHarness(t, okSearch())
	h.createApproved(t, "plan_bg", []store.Step{
		{Tool: tools.NameSearch, Purpose: "find", Args: map[string]string{"query": "x"}},
	})

	runner := NewRunner(h.engine, h.store)
	runner.Interval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Start(ctx)

	deadline := time.After(3 * time.Second)
	for {
		plan, err := h.store.Get("plan_bg")
		require.NoError(t, err)
		if plan.Status.Terminal() {
			require.Equal(t, store.StatusCompleted, plan.Status)
			return
		}
		select {
		case <-deadline:
			t.Fatalf("plan never reached a terminal status, last seen %s", plan.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}
}
