package store

import "time"

// Status is a plan's lifecycle state. Transitions only move forward.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusExecuting       Status = "executing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusRejected        Status = "rejected"
)

var statusRank = map[Status]int{
	StatusDraft:           0,
	StatusPendingApproval: 1,
	StatusApproved:        2,
	StatusExecuting:       3,
	StatusCompleted:       4,
	StatusFailed:          4,
	StatusRejected:        4,
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

// Forward reports whether moving from s to next preserves monotonicity.
func (s Status) Forward(next Status) bool {
	return statusRank[next] > statusRank[s]
}

// Step is one planned tool invocation.
type Step struct {
	Tool    string            `json:"tool"`
	Purpose string            `json:"purpose"`
	Args    map[string]string `json:"args"`
}

// StepResult records the outcome of one executed step. Index-aligned
// with the plan's steps.
type StepResult struct {
	Success    bool     `json:"success"`
	Output     string   `json:"output,omitempty"`
	Error      string   `json:"error,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Rejected   []string `json:"rejected_citations,omitempty"`
	Accepted   []string `json:"accepted_citations,omitempty"`
}

// Finding is a single evidentiary claim produced by a tool. Its
// lifetime is bounded by the plan whose step produced it.
type Finding struct {
	SourceTool string `json:"source_tool"`
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"`
	Text       string `json:"text"`
}

// Plan is the central entity: an ordered, immutable-once-approved
// sequence of tool invocations for one caller query.
type Plan struct {
	ID          string       `json:"plan_id"`
	RepoID      string       `json:"repo_id"`
	Query       string       `json:"query"`
	Steps       []Step       `json:"steps"`
	Status      Status       `json:"status"`
	Signature   string       `json:"signature,omitempty"`
	ApprovedBy  string       `json:"approved_by,omitempty"`
	Results     []StepResult `json:"results,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
