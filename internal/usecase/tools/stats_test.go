package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/courtside-ai/courtside/internal/domain"
)

// --- Mocks ---

type mockStatsStore struct {
	schema    string
	schemaErr error
	cols      []string
	rows      []map[string]any
	queryErr  error
	lastQuery string
}

func (m *mockStatsStore) Schema(_ context.Context) (string, error) {
	return m.schema, m.schemaErr
}

func (m *mockStatsStore) Query(_ context.Context, query string) ([]string, []map[string]any, error) {
	m.lastQuery = query
	if m.queryErr != nil {
		return nil, nil, m.queryErr
	}
	return m.cols, m.rows, nil
}

// seqGenerator returns scripted texts in order.
type seqGenerator struct {
	texts []string
	errs  []error
	calls int
}

func (g *seqGenerator) Generate(_ context.Context, _ string) (domain.GenerationResult, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return domain.GenerationResult{}, g.errs[i]
	}
	return domain.GenerationResult{Text: g.texts[i]}, nil
}

// --- Tests ---

func TestStatsTool_Run(t *testing.T) {
	store := &mockStatsStore{
		schema: "CREATE TABLE players (name TEXT, points INT)",
		cols:   []string{"name", "points"},
		rows:   []map[string]any{{"name": "Jokic", "points": 2085}},
	}
	gen := &seqGenerator{texts: []string{
		"SELECT name, points FROM players ORDER BY points DESC LIMIT 1",
		"Jokic led all scorers with 2085 points.",
	}}
	tool := NewStatsTool(store, gen)

	out, err := tool.Run(context.Background(), "Who scored the most points?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Answer != "Jokic led all scorers with 2085 points." {
		t.Errorf("answer = %q", out.Answer)
	}
	if store.lastQuery != "SELECT name, points FROM players ORDER BY points DESC LIMIT 1" {
		t.Errorf("executed query = %q", store.lastQuery)
	}

	payload, ok := out.Payload.(StatsResult)
	if !ok {
		t.Fatalf("payload type = %T, want StatsResult", out.Payload)
	}
	if len(payload.Rows) != 1 || payload.Rows[0]["name"] != "Jokic" {
		t.Errorf("payload rows = %v", payload.Rows)
	}
}

func TestStatsTool_FencedSQL(t *testing.T) {
	store := &mockStatsStore{schema: "CREATE TABLE t (a INT)", cols: []string{"a"}}
	gen := &seqGenerator{texts: []string{
		"```sql\nSELECT a FROM t;\n```",
		"The value of a.",
	}}
	tool := NewStatsTool(store, gen)

	if _, err := tool.Run(context.Background(), "question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastQuery != "SELECT a FROM t" {
		t.Errorf("executed query = %q, want fences and semicolon stripped", store.lastQuery)
	}
}

func TestStatsTool_QueryErrorPropagates(t *testing.T) {
	rejected := domain.ErrQueryRejected
	store := &mockStatsStore{schema: "CREATE TABLE t (a INT)", queryErr: rejected}
	gen := &seqGenerator{texts: []string{"DROP TABLE t"}}
	tool := NewStatsTool(store, gen)

	_, err := tool.Run(context.Background(), "question")
	if !errors.Is(err, rejected) {
		t.Fatalf("expected query rejection to propagate, got %v", err)
	}
}

func TestStatsTool_FormattingFailureFallsBackToRows(t *testing.T) {
	store := &mockStatsStore{
		schema: "CREATE TABLE t (a INT)",
		cols:   []string{"a"},
		rows:   []map[string]any{{"a": 7}},
	}
	gen := &seqGenerator{
		texts: []string{"SELECT a FROM t", ""},
		errs:  []error{nil, errors.New("formatting failed")},
	}
	tool := NewStatsTool(store, gen)

	out, err := tool.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.Answer, "7") {
		t.Errorf("answer = %q, want raw rows fallback", out.Answer)
	}
}

func TestStatsTool_SchemaErrorFails(t *testing.T) {
	schemaErr := errors.New("db closed")
	tool := NewStatsTool(&mockStatsStore{schemaErr: schemaErr}, &seqGenerator{})

	if _, err := tool.Run(context.Background(), "question"); !errors.Is(err, schemaErr) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT 1;", "SELECT 1"},
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"```\nSELECT 1\n```", "SELECT 1"},
		{"  SELECT 1  ", "SELECT 1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractSQL(tt.in); got != tt.want {
			t.Errorf("extractSQL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderRows(t *testing.T) {
	got := renderRows([]string{"name", "pts"}, []map[string]any{
		{"name": "Luka", "pts": 33},
		{"name": "Tatum", "pts": 28},
	})
	want := "name | pts\nLuka | 33\nTatum | 28"
	if got != want {
		t.Errorf("renderRows = %q, want %q", got, want)
	}

	if got := renderRows([]string{"a"}, nil); got != "(no rows)" {
		t.Errorf("empty render = %q", got)
	}
}
