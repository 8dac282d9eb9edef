package orchestrator

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/varun/sleuth/internal/approval"
	"github.com/varun/sleuth/internal/engine"
	"github.com/varun/sleuth/internal/fault"
	"github.com/varun/sleuth/internal/observability"
	"github.com/varun/sleuth/internal/reasoning"
	"github.com/varun/sleuth/internal/repo"
	"github.com/varun/sleuth/internal/store"
	"github.com/varun/sleuth/internal/tools"
)

// Orchestrator ties the plan store, approval gate, execution engine and
// collaborators into the two-phase workflow: create a plan without
// executing anything, then execute it only under a verified approval
// signature. All components are injected; the orchestrator owns their
// composition, not their lifecycle.
type Orchestrator struct {
	Store    *store.PlanStore
	Gate     *approval.Gate
	Engine   *engine.Engine
	Repo     *repo.Service
	Reasoner *reasoning.Client
	Registry *tools.Registry
	Logger   *observability.Logger

	// PlanContextChars bounds the repository excerpt handed to the
	// planner.
	PlanContextChars int
	// AsyncExecution defers execution of approved plans to the
	// background runner instead of running on the caller's path.
	AsyncExecution bool
}

func New(planStore *store.PlanStore, gate *approval.Gate, eng *engine.Engine, repoSvc *repo.Service, reasoner *reasoning.Client, registry *tools.Registry, logger *observability.Logger) *Orchestrator {
	return &Orchestrator{
		Store:            planStore,
		Gate:             gate,
		Engine:           eng,
		Repo:             repoSvc,
		Reasoner:         reasoner,
		Registry:         registry,
		Logger:           logger,
		PlanContextChars: 5000,
	}
}

// Ingest makes a repository available for investigation.
func (o *Orchestrator) Ingest(source string) (string, error) {
	return o.Repo.Ingest(source)
}

// CreatePlan asks the reasoning collaborator for an investigation plan
// and persists it awaiting approval. Nothing executes here.
func (o *Orchestrator) CreatePlan(ctx context.Context, repoID, query string) (*store.Plan, error) {
	if _, err := o.Repo.Files(repoID); err != nil {
		return nil, err
	}

	observability.SetStatus(observability.RolePlanner, "")
	defer observability.SetStatus(observability.RoleIdle, "")

	excerpt, err := o.Repo.Excerpt(repoID, o.PlanContextChars)
	if err != nil {
		return nil, err
	}

	steps, err := o.Reasoner.GeneratePlan(ctx, excerpt, query)
	if err != nil {
		return nil, err
	}
	for i, s := range steps {
		if !o.Registry.Has(s.Tool) {
			return nil, fmt.Errorf("%w: step %d names unknown tool %q", fault.ErrValidationFailed, i, s.Tool)
		}
	}

	plan := &store.Plan{
		ID:        newPlanID(),
		RepoID:    repoID,
		Query:     query,
		Steps:     steps,
		Status:    store.StatusPendingApproval,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.Store.Create(plan); err != nil {
		return nil, err
	}

	if o.Logger != nil {
		o.Logger.LogPlan(plan.ID, repoID, len(steps), string(plan.Status))
	}
	return plan, nil
}

// Approve verifies the supplied HMAC signature against the canonical
// bytes of the *stored* steps, moves the plan to APPROVED in the same
// compare-and-swap that records the signature, and then executes it
// (synchronously or via the background runner).
func (o *Orchestrator) Approve(ctx context.Context, planID, approvedBy, signature string) (*store.Plan, error) {
	plan, err := o.Store.Get(planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != store.StatusPendingApproval {
		return nil, fmt.Errorf("plan %s is %s, not awaiting approval: %w", planID, plan.Status, fault.ErrConflict)
	}

	ok, err := o.Gate.Verify(plan.Steps, signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("signature for plan %s: %w", planID, fault.ErrUnauthorized)
	}

	patch := &store.Patch{Signature: &signature, ApprovedBy: &approvedBy}
	if err := o.Store.UpdateStatus(planID, store.StatusPendingApproval, store.StatusApproved, patch); err != nil {
		return nil, err
	}

	if o.AsyncExecution {
		return o.Store.Get(planID)
	}
	return o.Engine.Run(ctx, planID)
}

// Reject moves a pending plan to REJECTED without executing it.
func (o *Orchestrator) Reject(planID string) (*store.Plan, error) {
	if err := o.Store.UpdateStatus(planID, store.StatusPendingApproval, store.StatusRejected, nil); err != nil {
		return nil, err
	}
	return o.Store.Get(planID)
}

// GetPlan returns the stored plan. Idempotent and side-effect free.
func (o *Orchestrator) GetPlan(planID string) (*store.Plan, error) {
	return o.Store.Get(planID)
}

func newPlanID() string {
	id := uuid.New()
	return "plan_" + hex.EncodeToString(id[:])[:12]
}
