package agent

import (
	"fmt"
	"strings"

	domagent "github.com/courtside-ai/courtside/internal/domain/agent"
	"github.com/courtside-ai/courtside/internal/domain/intent"
)

// routing guidance keyed by intent, inserted into the reasoning prompt.
var intentGuidance = map[intent.Intent]string{
	intent.Structured:   "This question asks for statistics. Use the statistics tool to look up the numbers.",
	intent.Unstructured: "This question asks for fan commentary and opinions. Use the commentary search tool.",
	intent.Both:         "This question needs both statistics and fan commentary. Use both tools before answering.",
}

// buildPrompt renders the reasoning prompt: tool descriptions, routing
// guidance, optional conversation context, the question, accumulated steps,
// and an optional guard instruction from the orchestrator.
func buildPrompt(
	question, history string,
	it intent.Intent,
	tools []domagent.Tool,
	steps []domagent.Step,
	guard string,
) string {
	var b strings.Builder

	b.WriteString("You are a basketball question-answering assistant. ")
	b.WriteString("Answer using the tools below; never answer from memory.\n\n")

	b.WriteString("Available tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	b.WriteString("\n")
	b.WriteString(intentGuidance[it])
	b.WriteString("\n\n")

	if history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Question: %s\n\n", question)

	if len(steps) > 0 {
		b.WriteString("Previous steps:\n")
		for _, s := range steps {
			if s.Thought != "" {
				fmt.Fprintf(&b, "Thought: %s\n", s.Thought)
			}
			if s.Action != "" {
				fmt.Fprintf(&b, "Action: %s\nAction Input: %s\n", s.Action, s.ActionInput)
			}
			fmt.Fprintf(&b, "Observation: %s\n", s.Observation)
		}
		b.WriteString("\n")
	}

	if guard != "" {
		fmt.Fprintf(&b, "Error: %s\n\n", guard)
	}

	b.WriteString("Respond in exactly one of these formats:\n")
	b.WriteString("Thought: <your reasoning>\nAction: <tool name>\nAction Input: <input for the tool>\n")
	b.WriteString("or, once you have enough information:\n")
	b.WriteString("Thought: <your reasoning>\nFinal Answer: <answer for the user>\n")

	return b.String()
}
