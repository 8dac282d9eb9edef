package observability

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeReasoning   EventType = "reasoning"
	EventTypeToolCall    EventType = "tool_call"
	EventTypeToolResult  EventType = "tool_result"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeVerify      EventType = "verify"
	EventTypeHeartbeat   EventType = "heartbeat"
	EventTypeLLM         EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	PlanID    string    `json:"plan_id,omitempty"`
	RepoID    string    `json:"repo_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. LLM transcripts additionally go to
// a rotated file so prompt/response pairs survive restarts.
type Logger struct {
	llmLog *lumberjack.Logger
}

func NewLogger() *Logger {
	return &Logger{
		llmLog: &lumberjack.Logger{
			Filename:   filepath.Join("logs", "llm.jsonl"),
			MaxSize:    10, // megabytes
			MaxBackups: 1,
		},
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM && l.llmLog != nil {
		_, _ = l.llmLog.Write(append(data, '\n'))
	}
}

// Helper methods for common events

func (l *Logger) LogPlan(planID, repoID string, stepCount int, status string) {
	l.Log(Event{
		Type:   EventTypePlan,
		PlanID: planID,
		RepoID: repoID,
		Data: map[string]any{
			"steps":  stepCount,
			"status": status,
		},
	})
}

func (l *Logger) LogStep(planID string, index int, tool string, success bool, durationMs int64) {
	l.Log(Event{
		Type:   EventTypeStep,
		PlanID: planID,
		Data: map[string]any{
			"index":       index,
			"tool":        tool,
			"success":     success,
			"duration_ms": durationMs,
		},
	})
}

func (l *Logger) LogToolCall(planID, tool string, args map[string]string) {
	l.Log(Event{
		Type:   EventTypeToolCall,
		PlanID: planID,
		Data: map[string]any{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogPolicyCheck(planID, tool, effect, reason string) {
	l.Log(Event{
		Type:   EventTypePolicyCheck,
		PlanID: planID,
		Data: map[string]string{
			"tool":   tool,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(planID string, prompt any, response string) {
	l.Log(Event{
		Type:   EventTypeLLM,
		PlanID: planID,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}
