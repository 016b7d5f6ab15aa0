package agent

import (
	"fmt"
	"strings"
)

// action is one parsed model decision: either a tool invocation or a final
// answer.
type action struct {
	thought string
	tool    string
	input   string
	final   bool
	answer  string
}

// parseAction extracts the Thought/Action/Action Input or Thought/Final
// Answer structure from model output. Malformed output is a parse error; the
// caller treats it as a non-convergent step.
func parseAction(text string) (action, error) {
	var act action

	if idx := strings.Index(text, "Final Answer:"); idx >= 0 {
		act.final = true
		act.thought = extractField(text[:idx], "Thought:")
		act.answer = strings.TrimSpace(text[idx+len("Final Answer:"):])
		if act.answer == "" {
			return action{}, fmt.Errorf("empty final answer")
		}
		return act, nil
	}

	act.thought = extractField(text, "Thought:")
	act.tool = extractField(text, "Action:")
	act.input = extractField(text, "Action Input:")

	if act.tool == "" {
		return action{}, fmt.Errorf("no action or final answer found")
	}
	if act.input == "" {
		return action{}, fmt.Errorf("action %q has no input", act.tool)
	}
	return act, nil
}

// extractField returns the text after marker up to the end of its line block
// (the next known marker or end of input).
func extractField(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(marker):]

	end := len(rest)
	for _, next := range []string{"Thought:", "Action:", "Action Input:", "Final Answer:", "Observation:"} {
		if next == marker {
			continue
		}
		if i := strings.Index(rest, next); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(rest[:end])
}
