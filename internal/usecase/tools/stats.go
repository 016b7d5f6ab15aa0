package tools

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/courtside-ai/courtside/internal/domain"
	domagent "github.com/courtside-ai/courtside/internal/domain/agent"
	"github.com/courtside-ai/courtside/internal/logger"
)

const statsToolName = "stats_query"

const sqlPromptTemplate = `You are a SQL analyst for a basketball statistics database.

Database schema:
%s

Write a single read-only SQLite SELECT statement that answers the question below.
Rules:
- Output only the SQL, no explanation and no markdown fences.
- Never modify data. Only SELECT (or WITH ... SELECT) is allowed.
- Prefer explicit column lists over SELECT *.

Question: %s

SQL:`

const answerPromptTemplate = `You are a basketball statistics assistant.

Question: %s

Query results:
%s

Answer the question in one or two sentences using only the results above. If the results are empty, say that no matching records were found.`

// StatsResult is the structured payload returned to the orchestrator.
type StatsResult struct {
	Query   string           `json:"query"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// StatsTool answers questions by generating and executing a read-only
// SQL query against the statistics database.
type StatsTool struct {
	store StatsStore
	gen   domain.Generator
}

func NewStatsTool(store StatsStore, gen domain.Generator) *StatsTool {
	return &StatsTool{store: store, gen: gen}
}

func (t *StatsTool) Name() string { return statsToolName }

func (t *StatsTool) Description() string {
	return "Answers questions about player and team statistics (points, rebounds, assists, shooting splits, game results) by querying the statistics database. Input: a natural-language question about stats."
}

func (t *StatsTool) Run(ctx context.Context, input string) (domagent.ToolOutput, error) {
	log := logger.FromContext(ctx)

	schema, err := t.store.Schema(ctx)
	if err != nil {
		return domagent.ToolOutput{}, fmt.Errorf("load schema: %w", err)
	}

	gen, err := t.gen.Generate(ctx, fmt.Sprintf(sqlPromptTemplate, schema, input))
	if err != nil {
		return domagent.ToolOutput{}, fmt.Errorf("generate query: %w", err)
	}

	query := extractSQL(gen.Text)
	if query == "" {
		return domagent.ToolOutput{}, fmt.Errorf("generate query: empty statement")
	}
	log.Debug("stats query generated", zap.String("query", query))

	cols, rows, err := t.store.Query(ctx, query)
	if err != nil {
		return domagent.ToolOutput{}, fmt.Errorf("execute query: %w", err)
	}

	table := renderRows(cols, rows)
	answer := table
	if formatted, err := t.gen.Generate(ctx, fmt.Sprintf(answerPromptTemplate, input, table)); err == nil {
		if text := strings.TrimSpace(formatted.Text); text != "" {
			answer = text
		}
	} else {
		log.Warn("stats answer formatting failed, using raw rows", zap.Error(err))
	}

	return domagent.ToolOutput{
		Answer:  answer,
		Payload: StatsResult{Query: query, Columns: cols, Rows: rows},
	}, nil
}

// extractSQL strips markdown fences and surrounding noise from a
// generated statement.
func extractSQL(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

func renderRows(cols []string, rows []map[string]any) string {
	if len(rows) == 0 {
		return "(no rows)"
	}
	var b strings.Builder
	b.WriteString(strings.Join(cols, " | "))
	b.WriteByte('\n')
	for _, row := range rows {
		vals := make([]string, 0, len(cols))
		for _, c := range cols {
			vals = append(vals, fmt.Sprint(row[c]))
		}
		b.WriteString(strings.Join(vals, " | "))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
