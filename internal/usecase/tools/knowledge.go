package tools

import (
	"context"
	"fmt"
	"strings"

	domagent "github.com/courtside-ai/courtside/internal/domain/agent"
	"github.com/courtside-ai/courtside/internal/domain/chunk"
)

const knowledgeToolName = "fan_commentary"

// KnowledgeTool surfaces fan commentary through the hybrid retrieval
// ranker and formats the top passages as a numbered digest.
type KnowledgeTool struct {
	retriever Retriever
}

func NewKnowledgeTool(retriever Retriever) *KnowledgeTool {
	return &KnowledgeTool{retriever: retriever}
}

func (t *KnowledgeTool) Name() string { return knowledgeToolName }

func (t *KnowledgeTool) Description() string {
	return "Searches fan commentary, opinions and discussion threads about players and teams. Input: a natural-language question about fan sentiment or qualitative takes."
}

func (t *KnowledgeTool) Run(ctx context.Context, input string) (domagent.ToolOutput, error) {
	hits, err := t.retriever.Search(ctx, input, t.retriever.DefaultK())
	if err != nil {
		return domagent.ToolOutput{}, fmt.Errorf("search commentary: %w", err)
	}
	if len(hits) == 0 {
		return domagent.ToolOutput{Answer: "No relevant fan commentary found.", Payload: hits}, nil
	}
	return domagent.ToolOutput{Answer: formatHits(hits), Payload: hits}, nil
}

func formatHits(hits []chunk.Scored) string {
	var b strings.Builder
	b.WriteString("Relevant fan commentary:\n")
	for i, hit := range hits {
		source := hit.Chunk.Source()
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, source, strings.TrimSpace(hit.Chunk.Text()))
	}
	return strings.TrimRight(b.String(), "\n")
}
