package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/varun/sleuth/internal/fault"
	"github.com/varun/sleuth/internal/store"
)

// Runner executes approved plans off the request path. The gateway
// approves and returns immediately; the runner picks the plan up on its
// next tick. The engine's compare-and-swap to EXECUTING makes a race
// with a synchronous execution harmless.
type Runner struct {
	Engine   *Engine
	Store    *store.PlanStore
	Interval time.Duration
}

func NewRunner(engine *Engine, planStore *store.PlanStore) *Runner {
	return &Runner{
		Engine:   engine,
		Store:    planStore,
		Interval: 5 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	log.Println("Plan runner started...")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollAndExecute(ctx)
		}
	}
}

func (r *Runner) pollAndExecute(ctx context.Context) {
	ids, err := r.Store.ListByStatus(store.StatusApproved)
	if err != nil {
		log.Printf("Error polling approved plans: %v", err)
		return
	}

	for _, id := range ids {
		log.Printf("Executing approved plan %s", id)
		if _, err := r.Engine.Run(ctx, id); err != nil {
			if errors.Is(err, fault.ErrConflict) {
				// Another actor started this plan first.
				continue
			}
			log.Printf("Error executing plan %s: %v", id, err)
		}
	}
}
