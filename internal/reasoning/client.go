package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/varun/sleuth/internal/fault"
	"github.com/varun/sleuth/internal/observability"
	"github.com/varun/sleuth/internal/store"
)

// PlanDraft is the shape the planner must return.
type PlanDraft struct {
	Steps []store.Step `json:"steps"`
}

// AnalysisResult is the shape the analyst must return. The narrative is
// preserved verbatim even when its citations later fail verification.
type AnalysisResult struct {
	Narrative string   `json:"narrative"`
	Citations []string `json:"citations"`
}

// Client is the reasoning collaborator. Every call receives a
// fully-materialized, size-bounded context string; there is no
// server-side conversation state.
type Client struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger

	PlanContextChars     int
	AnalysisContextChars int
}

func NewClient(model llms.Model, prompts *PromptManager, logger *observability.Logger) *Client {
	return &Client{
		Model:                model,
		Prompts:              prompts,
		Logger:               logger,
		PlanContextChars:     5000,
		AnalysisContextChars: 10000,
	}
}

// GeneratePlan asks the model for an investigation plan. Malformed
// output gets one repair attempt before surfacing ValidationFailed.
func (c *Client) GeneratePlan(ctx context.Context, repoExcerpt, query string) ([]store.Step, error) {
	system, err := c.Prompts.GetPlannerPrompt()
	if err != nil {
		return nil, err
	}

	input := fmt.Sprintf(
		"CONTEXT:\n%s\n\nUSER QUERY:\n%s\n\nGenerate your investigation plan in JSON.",
		truncate(repoExcerpt, c.PlanContextChars), query,
	)

	raw, err := c.generate(ctx, system, input, 0.2, 1024)
	if err != nil {
		return nil, err
	}

	var draft PlanDraft
	if err := c.parseWithRepair(ctx, raw, &draft); err != nil {
		return nil, err
	}
	if len(draft.Steps) == 0 {
		return nil, fmt.Errorf("%w: planner returned no steps", fault.ErrValidationFailed)
	}
	for i, s := range draft.Steps {
		if strings.TrimSpace(s.Tool) == "" {
			return nil, fmt.Errorf("%w: step %d has no tool", fault.ErrValidationFailed, i)
		}
		if draft.Steps[i].Args == nil {
			draft.Steps[i].Args = map[string]string{}
		}
	}
	return draft.Steps, nil
}

// Analyze asks the model to interpret gathered evidence.
func (c *Client) Analyze(ctx context.Context, evidence, query string) (*AnalysisResult, error) {
	system, err := c.Prompts.GetAnalystPrompt()
	if err != nil {
		return nil, err
	}

	input := fmt.Sprintf(
		"USER QUERY:\n%s\n\nEVIDENCE:\n%s\n\nAnalyze the evidence and provide findings in JSON.",
		query, truncate(evidence, c.AnalysisContextChars),
	)

	raw, err := c.generate(ctx, system, input, 0.1, 4096)
	if err != nil {
		return nil, err
	}

	var result AnalysisResult
	if err := c.parseWithRepair(ctx, raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) generate(ctx context.Context, system, input string, temperature float64, maxTokens int) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(input)},
		},
	}

	resp, err := c.Model.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", fault.ErrToolFailure, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", fmt.Errorf("%w: empty model response", fault.ErrToolFailure)
	}

	content := resp.Choices[0].Content
	if c.Logger != nil {
		c.Logger.LogLLM("", input, content)
	}
	return content, nil
}

// parseWithRepair tries to decode raw into v; on failure it makes
// exactly one round trip asking the model to fix its own JSON, then
// gives up with ValidationFailed.
func (c *Client) parseWithRepair(ctx context.Context, raw string, v any) error {
	firstErr := Parse(raw, v)
	if firstErr == nil {
		return nil
	}

	fixInput := fmt.Sprintf(
		"The following was supposed to be valid JSON but is not:\n%s\n\nReturn ONLY the corrected JSON, with the same content, no markdown fences.",
		truncate(raw, 4000),
	)
	fixed, err := c.generate(ctx, "You fix malformed JSON. Output only valid JSON.", fixInput, 0.0, 4096)
	if err != nil {
		return validationFailed(firstErr)
	}
	if err := Parse(fixed, v); err != nil {
		return validationFailed(err)
	}
	return nil
}

func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
