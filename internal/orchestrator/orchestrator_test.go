package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/varun/sleuth/internal/approval"
	"github.com/varun/sleuth/internal/engine"
	"github.com/varun/sleuth/internal/fault"
	"github.com/varun/sleuth/internal/governance"
	"github.com/varun/sleuth/internal/reasoning"
	"github.com/varun/sleuth/internal/repo"
	"github.com/varun/sleuth/internal/store"
	"github.com/varun/sleuth/internal/tools"
	"github.com/varun/sleuth/internal/verify"
)

type stubModel struct {
	responses []string
	calls     int
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.calls >= len(m.responses) {
		return nil, errors.New("stub exhausted")
	}
	r := m.responses[m.calls]
	m.calls++
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: r}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

type stubTool struct{ name string }

func (s *stubTool) Name() string           { return s.name }
func (s *stubTool) Description() string    { return "stub" }
func (s *stubTool) Timeout() time.Duration { return time.Second }
func (s *stubTool) Execute(ctx context.Context, args map[string]string) (*tools.Result, error) {
	return &tools.Result{Output: s.name + " ran"}, nil
}

const planJSON = `{"steps":[` +
	`{"tool":"search","purpose":"find auth handling","args":{"query":"auth"}},` +
	`{"tool":"read_files","purpose":"inspect the entrypoint","args":{"paths":"main.py"}}]}`

type fixture struct {
	orch   *Orchestrator
	gate   *approval.Gate
	repoID string
	model  *stubModel
}

func newFixture(t *testing.T, responses ...string) *fixture {
	t.Helper()

	planStore, err := store.NewPlanStore(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { planStore.Close() })

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.py"), []byte("print('hi')\n"), 0644))
	repoSvc := repo.NewService(t.TempDir())
	repoID, err := repoSvc.Ingest(src)
	require.NoError(t, err)

	model := &stubModel{responses: responses}
	reasoner := reasoning.NewClient(model, reasoning.NewPromptManager(""), nil)

	registry := tools.NewRegistry()
	registry.Register(&stubTool{name: tools.NameSearch})
	registry.Register(&stubTool{name: tools.NameReadFiles})

	adapter := tools.NewAdapter(registry, nil)
	eng := engine.New(planStore, adapter, verify.NewVerifier(nil), governance.NewDefaultPolicyEngine(), repoSvc, nil)
	gate := approval.NewGate("test-secret")

	orch := New(planStore, gate, eng, repoSvc, reasoner, registry, nil)
	return &fixture{orch: orch, gate: gate, repoID: repoID, model: model}
}

func TestCreatePlanPendingApproval(t *testing.T) {
	f := newFixture(t, planJSON)

	plan, err := f.orch.CreatePlan(context.Background(), f.repoID, "how does login work?")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plan.ID, "plan_"), plan.ID)
	assert.Len(t, plan.ID, len("plan_")+12)
	assert.Equal(t, store.StatusPendingApproval, plan.Status)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "search", plan.Steps[0].Tool)
	assert.Empty(t, plan.Results, "nothing may execute before approval")

	stored, err := f.orch.GetPlan(plan.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPendingApproval, stored.Status)
	assert.Equal(t, plan.Steps, stored.Steps)
}

func TestCreatePlanUnknownRepo(t *testing.T) {
	f := newFixture(t, planJSON)

	_, err := f.orch.CreatePlan(context.Background(), "ffffffff", "q")
	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}

func TestCreatePlanRejectsUnknownTool(t *testing.T) {
	f := newFixture(t,
		`{"steps":[{"tool":"drop_tables","purpose":"nope","args":{}}]}`,
	)

	_, err := f.orch.CreatePlan(context.Background(), f.repoID, "q")
	require.Error(t, err)
	assert.Equal(t, fault.KindValidationFailed, fault.KindOf(err))
}

func TestApproveBadSignature(t *testing.T) {
	f := newFixture(t, planJSON)

	plan, err := f.orch.CreatePlan(context.Background(), f.repoID, "q")
	require.NoError(t, err)

	// A signature over different steps must not clear the gate.
	forged, err := f.gate.Sign([]store.Step{{Tool: "search", Purpose: "other", Args: map[string]string{}}})
	require.NoError(t, err)

	_, err = f.orch.Approve(context.Background(), plan.ID, "varun", forged)
	require.Error(t, err)
	assert.Equal(t, fault.KindUnauthorized, fault.KindOf(err))

	stored, err := f.orch.GetPlan(plan.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPendingApproval, stored.Status, "a failed approval leaves the plan approvable")
	assert.Empty(t, stored.Signature)
}

func TestApproveExecutes(t *testing.T) {
	f := newFixture(t, planJSON)

	plan, err := f.orch.CreatePlan(context.Background(), f.repoID, "q")
	require.NoError(t, err)

	sig, err := f.gate.Sign(plan.Steps)
	require.NoError(t, err)

	done, err := f.orch.Approve(context.Background(), plan.ID, "varun", sig)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, done.Status)
	assert.Equal(t, sig, done.Signature)
	assert.Equal(t, "varun", done.ApprovedBy)
	require.Len(t, done.Results, len(plan.Steps))
	require.NotNil(t, done.CompletedAt)
}

func TestApproveTerminalPlanConflicts(t *testing.T) {
	f := newFixture(t, planJSON)

	plan, err := f.orch.CreatePlan(context.Background(), f.repoID, "q")
	require.NoError(t, err)
	sig, err := f.gate.Sign(plan.Steps)
	require.NoError(t, err)

	_, err = f.orch.Approve(context.Background(), plan.ID, "varun", sig)
	require.NoError(t, err)

	_, err = f.orch.Approve(context.Background(), plan.ID, "varun", sig)
	require.Error(t, err)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))
}

func TestApproveAsyncLeavesPlanForRunner(t *testing.T) {
	f := newFixture(t, planJSON)
	f.orch.AsyncExecution = true

	plan, err := f.orch.CreatePlan(context.Background(), f.repoID, "q")
	require.NoError(t, err)
	sig, err := f.gate.Sign(plan.Steps)
	require.NoError(t, err)

	approved, err := f.orch.Approve(context.Background(), plan.ID, "varun", sig)
	require.NoError(t, err)
	assert.Equal(t, store.StatusApproved, approved.Status)
	assert.Empty(t, approved.Results)
}

func TestReject(t *testing.T) {
	f := newFixture(t, planJSON)

	plan, err := f.orch.CreatePlan(context.Background(), f.repoID, "q")
	require.NoError(t, err)

	rejected, err := f.orch.Reject(plan.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRejected, rejected.Status)

	sig, err := f.gate.Sign(plan.Steps)
	require.NoError(t, err)
	_, err = f.orch.Approve(context.Background(), plan.ID, "varun", sig)
	require.Error(t, err)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))
}

func TestGetPlanIdempotent(t *testing.T) {
	f := newFixture(t, planJSON)

	plan, err := f.orch.CreatePlan(context.Background(), f.repoID, "q")
	require.NoError(t, err)

	a, err := f.orch.GetPlan(plan.ID)
	require.NoError(t, err)
	b, err := f.orch.GetPlan(plan.ID)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = f.orch.GetPlan("plan_ghost")
	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}
