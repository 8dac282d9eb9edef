package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/varun/sleuth/internal/reasoning"
)

// AnalyzeTool is the reasoning tool. Its failure is fatal to a plan:
// without the synthesis step there is nothing worth reporting.
type AnalyzeTool struct {
	Client *reasoning.Client
}

func NewAnalyzeTool(client *reasoning.Client) *AnalyzeTool {
	return &AnalyzeTool{Client: client}
}

func (a *AnalyzeTool) Name() string {
	return NameAnalyze
}

func (a *AnalyzeTool) Description() string {
	return "Interpret the gathered evidence and produce cited findings."
}

func (a *AnalyzeTool) Timeout() time.Duration {
	return TimeoutReasoning
}

func (a *AnalyzeTool) Execute(ctx context.Context, args map[string]string) (*Result, error) {
	query := strings.TrimSpace(args["query"])
	if query == "" {
		query = "Summarize the notable properties of this code."
	}

	result, err := a.Client.Analyze(ctx, args["context"], query)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(result.Narrative)
	if len(result.Citations) > 0 {
		fmt.Fprintf(&b, "\n\nCitations: %s", strings.Join(result.Citations, ", "))
	}

	return &Result{Output: b.String(), Analysis: result}, nil
}
