package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/varun/sleuth/internal/fault"
	"github.com/varun/sleuth/internal/governance"
	"github.com/varun/sleuth/internal/observability"
	"github.com/varun/sleuth/internal/repo"
	"github.com/varun/sleuth/internal/store"
	"github.com/varun/sleuth/internal/tools"
	"github.com/varun/sleuth/internal/verify"
)

// Engine walks an approved plan's steps strictly in declared order,
// applies the per-step failure policy, verifies analysis evidence, and
// writes the terminal status. It holds a working copy of the plan for
// one run; all durable mutation goes through the store's
// compare-and-swap writes.
type Engine struct {
	Store    *store.PlanStore
	Adapter  *tools.Adapter
	Verifier *verify.Verifier
	Policy   governance.PolicyEngine
	Repo     *repo.Service
	Logger   *observability.Logger

	// AnalysisContextChars bounds the evidence folded into an analyze
	// step's context argument.
	AnalysisContextChars int
}

func New(planStore *store.PlanStore, adapter *tools.Adapter, verifier *verify.Verifier, policy governance.PolicyEngine, repoSvc *repo.Service, logger *observability.Logger) *Engine {
	return &Engine{
		Store:                planStore,
		Adapter:              adapter,
		Verifier:             verifier,
		Policy:               policy,
		Repo:                 repoSvc,
		Logger:               logger,
		AnalysisContextChars: 10000,
	}
}

// Run executes one approved plan to a terminal status. The transition
// to EXECUTING is a compare-and-swap, so a concurrent Run for the same
// plan id loses with Conflict before any step fires.
func (e *Engine) Run(ctx context.Context, planID string) (*store.Plan, error) {
	plan, err := e.Store.Get(planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != store.StatusApproved {
		return nil, fmt.Errorf("plan %s is %s, not %s: %w", planID, plan.Status, store.StatusApproved, fault.ErrConflict)
	}

	if err := e.Store.UpdateStatus(planID, store.StatusApproved, store.StatusExecuting, nil); err != nil {
		return nil, err
	}

	observability.SetStatus(observability.RoleExecutor, planID)
	defer observability.SetStatus(observability.RoleIdle, "")

	repoLines, err := e.Repo.Lines(plan.RepoID)
	if err != nil {
		// The plan can still run tools that fail individually; the
		// verifier just loses the repo-range acceptance path.
		repoLines = map[string]int{}
	}

	results := make([]store.StepResult, 0, len(plan.Steps))
	var findings []store.Finding
	var outputs []string
	fatal := false

	for i, step := range plan.Steps {
		res, stepFindings := e.runStep(ctx, plan, step, findings, outputs, repoLines)
		results = append(results, res)
		if e.Logger != nil {
			e.Logger.LogStep(planID, i, step.Tool, res.Success, res.DurationMs)
		}
		if res.Output != "" {
			outputs = append(outputs, fmt.Sprintf("--- OUTPUT OF STEP %d (%s) ---\n%s", i+1, step.Tool, res.Output))
		}
		findings = append(findings, stepFindings...)

		// A failed reasoning step is fatal: nothing downstream can
		// synthesize without it. Remaining steps get recorded skipped
		// failures so results stay index-aligned with steps.
		if !res.Success && step.Tool == tools.NameAnalyze && res.ErrorKind != string(fault.KindInsufficientEvidence) {
			fatal = true
			for j := i + 1; j < len(plan.Steps); j++ {
				results = append(results, store.StepResult{
					Success:   false,
					Error:     "skipped: preceding reasoning step failed",
					ErrorKind: string(fault.KindToolFailure),
				})
			}
			break
		}
	}

	final := store.StatusFailed
	if !fatal {
		for _, r := range results {
			if r.Success {
				final = store.StatusCompleted
				break
			}
		}
	}

	now := time.Now().UTC()
	patch := &store.Patch{Results: results, CompletedAt: &now}
	if err := e.Store.UpdateStatus(planID, store.StatusExecuting, final, patch); err != nil {
		return nil, err
	}
	if e.Logger != nil {
		e.Logger.LogPlan(planID, plan.RepoID, len(plan.Steps), string(final))
	}

	return e.Store.Get(planID)
}

func (e *Engine) runStep(ctx context.Context, plan *store.Plan, step store.Step, findings []store.Finding, outputs []string, repoLines map[string]int) (store.StepResult, []store.Finding) {
	start := time.Now()

	args := make(map[string]string, len(step.Args)+3)
	for k, v := range step.Args {
		args[k] = v
	}
	args["repo_id"] = plan.RepoID
	args["plan_id"] = plan.ID
	if step.Tool == tools.NameAnalyze {
		if args["query"] == "" {
			args["query"] = plan.Query
		}
		args["context"] = e.buildContext(findings, outputs)
	}

	if e.Policy != nil {
		argsJSON, _ := json.Marshal(step.Args)
		verdict, err := e.Policy.Evaluate(ctx, governance.Request{
			Tool:      step.Tool,
			Arguments: string(argsJSON),
			PlanID:    plan.ID,
		})
		if e.Logger != nil {
			e.Logger.LogPolicyCheck(plan.ID, step.Tool, string(verdict.Effect), verdict.Reason)
		}
		if err == nil && verdict.Effect == governance.EffectDeny {
			return store.StepResult{
				Success:    false,
				Error:      verdict.Reason,
				ErrorKind:  string(fault.KindToolFailure),
				DurationMs: time.Since(start).Milliseconds(),
			}, nil
		}
	}

	res, err := e.Adapter.Invoke(ctx, step.Tool, args)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		return store.StepResult{
			Success:    false,
			Error:      err.Error(),
			ErrorKind:  string(fault.KindOf(err)),
			DurationMs: duration,
		}, nil
	}

	result := store.StepResult{
		Success:    true,
		Output:     res.Output,
		DurationMs: duration,
	}

	// Analysis-shaped results pass through the evidence verifier before
	// they may count as a success. The raw narrative stays in Output
	// either way so callers can inspect what was claimed.
	if res.Analysis != nil {
		verdict := e.Verifier.Verify(plan.ID, res.Analysis.Citations, findings, repoLines)
		result.Accepted = verdict.Accepted
		result.Rejected = verdict.Rejected
		if !verdict.Sufficient() {
			result.Success = false
			result.ErrorKind = string(fault.KindInsufficientEvidence)
			result.Error = fmt.Sprintf("no citation could be verified (%d rejected)", len(verdict.Rejected))
		}
	}

	return result, res.Findings
}

func (e *Engine) buildContext(findings []store.Finding, outputs []string) string {
	var b strings.Builder
	if len(findings) > 0 {
		b.WriteString("FINDINGS:\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "%s:%d [%s] %s\n", f.FilePath, f.LineNumber, f.SourceTool, f.Text)
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(outputs, "\n\n"))
	out := b.String()
	if e.AnalysisContextChars > 0 && len(out) > e.AnalysisContextChars {
		out = out[:e.AnalysisContextChars]
	}
	return out
}
