package tools

import (
	"context"
	"time"

	"github.com/varun/sleuth/internal/reasoning"
	"github.com/varun/sleuth/internal/store"
)

// Fixed per-class timeout budgets. The adapter enforces these; tools
// never manage their own deadlines.
const (
	TimeoutReasoning = 120 * time.Second
	TimeoutScan      = 600 * time.Second
	TimeoutIndex     = 60 * time.Second
	TimeoutSearch    = 30 * time.Second
)

// Fixed tool vocabulary. Plans may only reference these names.
const (
	NameSearch    = "search"
	NameScan      = "scan"
	NameReadFiles = "read_files"
	NameAnalyze   = "analyze"
)

// Result is the uniform output of one tool invocation. Findings feed
// the evidence verifier; Analysis is set only by the reasoning tool.
type Result struct {
	Output   string
	Findings []store.Finding
	Analysis *reasoning.AnalysisResult
}

// Tool defines the interface for all investigation capabilities.
type Tool interface {
	Name() string
	Description() string
	Timeout() time.Duration
	Execute(ctx context.Context, args map[string]string) (*Result, error)
}

// Registry manages the set of available tools.
type Registry struct {
	Tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		Tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.Tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.Tools[name]
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Tools[name]
	return ok
}
