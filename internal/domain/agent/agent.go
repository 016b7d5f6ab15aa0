// Package agent holds the reasoning-trace value types shared between the
// orchestrator and transport.
package agent

import (
	"context"

	"github.com/courtside-ai/courtside/internal/domain/intent"
)

// Step is one thought/action/observation cycle of the reasoning loop.
// Observation is truncated for prompt economy; the untruncated tool result
// lives in the invocation's ToolOutput map.
type Step struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
	Observation string `json:"observation"`
}

// ToolOutput is a tool's structured, untruncated result for the current
// question. Answer is the tool's own formatted answer; Payload carries the
// structured data behind it.
type ToolOutput struct {
	Answer  string
	Payload any
}

// Result is the terminal state of one question's processing.
type Result struct {
	TraceID   string        `json:"trace_id"`
	Answer    string        `json:"answer"`
	Intent    intent.Intent `json:"intent"`
	Steps     []Step        `json:"steps"`
	ToolsUsed []string      `json:"tools_used"`
	Hybrid    bool          `json:"hybrid"`
}

// Tool is a named capability exposed to the orchestrator. Tools are
// registered once at construction and immutable afterwards.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) (ToolOutput, error)
}
