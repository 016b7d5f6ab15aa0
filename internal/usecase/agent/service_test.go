package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/courtside-ai/courtside/internal/domain"
	domagent "github.com/courtside-ai/courtside/internal/domain/agent"
	"github.com/courtside-ai/courtside/internal/domain/intent"
)

// --- Mocks ---

// scriptedGenerator replays a fixed sequence of responses. The last entry
// repeats once the script runs out.
type scriptedGenerator struct {
	responses []string
	errs      []error
	prompts   []string
	calls     int
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (domain.GenerationResult, error) {
	g.prompts = append(g.prompts, prompt)
	i := g.calls
	g.calls++
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	if i < len(g.errs) && g.errs[i] != nil {
		return domain.GenerationResult{}, g.errs[i]
	}
	return domain.GenerationResult{Text: g.responses[i]}, nil
}

type mockTool struct {
	name   string
	output domagent.ToolOutput
	err    error
	inputs []string
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return m.name + " description" }

func (m *mockTool) Run(_ context.Context, input string) (domagent.ToolOutput, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return domagent.ToolOutput{}, m.err
	}
	return m.output, nil
}

func newTestService(gen *scriptedGenerator, stats, knowledge *mockTool) *Service {
	return New(gen, stats, knowledge, Params{MaxIterations: 5}, zap.NewNop())
}

func toolAction(tool, input string) string {
	return fmt.Sprintf("Thought: using a tool\nAction: %s\nAction Input: %s", tool, input)
}

func finalAnswer(answer string) string {
	return "Thought: done\nFinal Answer: " + answer
}

const (
	statisticalQuestion  = "Which player scored the most points this season?"
	opinionQuestion      = "What do fans think about the defense?"
	biographicalQuestion = "Who is the starting center?"
)

// --- Tests ---

func TestAsk_StructuredQuestion(t *testing.T) {
	stats := &mockTool{name: "stats_query", output: domagent.ToolOutput{Answer: "Jokic with 2085 points"}}
	knowledge := &mockTool{name: "fan_commentary"}
	gen := &scriptedGenerator{responses: []string{
		toolAction("stats_query", "top scorer by total points"),
		finalAnswer("Jokic led all scorers with 2085 points."),
	}}
	svc := newTestService(gen, stats, knowledge)

	result, err := svc.Ask(context.Background(), statisticalQuestion, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Intent != intent.Structured {
		t.Errorf("intent = %q, want structured", result.Intent)
	}
	if result.Answer != "Jokic led all scorers with 2085 points." {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(stats.inputs) != 1 {
		t.Fatalf("stats tool called %d times, want 1", len(stats.inputs))
	}
	if len(knowledge.inputs) != 0 {
		t.Errorf("commentary tool must not run for a structured question")
	}
	if result.Hybrid {
		t.Error("single-tool answer must not be hybrid")
	}
	if result.TraceID == "" {
		t.Error("trace ID must be set")
	}
	if len(result.Steps) != 1 {
		t.Errorf("steps = %d, want 1", len(result.Steps))
	}
}

func TestAsk_HybridQuestion(t *testing.T) {
	stats := &mockTool{name: "stats_query", output: domagent.ToolOutput{Answer: "7.1 blocks per game"}}
	knowledge := &mockTool{name: "fan_commentary", output: domagent.ToolOutput{Answer: "fans call him a wall"}}
	gen := &scriptedGenerator{responses: []string{
		toolAction("stats_query", "starting center stats"),
		toolAction("fan_commentary", "starting center reputation"),
		finalAnswer("He anchors the defense and fans call him a wall."),
	}}
	svc := newTestService(gen, stats, knowledge)

	result, err := svc.Ask(context.Background(), biographicalQuestion, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Intent != intent.Both {
		t.Errorf("intent = %q, want both", result.Intent)
	}
	if !result.Hybrid {
		t.Error("two-tool answer must be hybrid")
	}
	if len(result.ToolsUsed) != 2 {
		t.Errorf("tools used = %v, want both", result.ToolsUsed)
	}
}

func TestAsk_PrematureFinalAnswerRejected(t *testing.T) {
	stats := &mockTool{name: "stats_query", output: domagent.ToolOutput{Answer: "30.4 ppg"}}
	knowledge := &mockTool{name: "fan_commentary"}
	gen := &scriptedGenerator{responses: []string{
		finalAnswer("He averaged about 30 points, I believe."),
		toolAction("stats_query", "scoring average"),
		finalAnswer("He averaged 30.4 points per game."),
	}}
	svc := newTestService(gen, stats, knowledge)

	result, err := svc.Ask(context.Background(), statisticalQuestion, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "He averaged 30.4 points per game." {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(stats.inputs) != 1 {
		t.Errorf("stats tool called %d times, want 1", len(stats.inputs))
	}
	// The rejection reason is surfaced to the model on the next iteration.
	if len(gen.prompts) < 2 || !strings.Contains(gen.prompts[1], "a tool must be used") {
		t.Error("expected guard message in the follow-up prompt")
	}
}

func TestAsk_StagnationCutoff(t *testing.T) {
	stats := &mockTool{name: "stats_query", output: domagent.ToolOutput{Answer: "42 wins"}}
	knowledge := &mockTool{name: "fan_commentary"}
	gen := &scriptedGenerator{responses: []string{
		toolAction("stats_query", "season win total"),
	}}
	svc := newTestService(gen, stats, knowledge)

	result, err := svc.Ask(context.Background(), statisticalQuestion, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Steps) != stagnationWindow {
		t.Errorf("steps = %d, want cutoff at %d", len(result.Steps), stagnationWindow)
	}
	// Fallback synthesis uses the structured tool result.
	if result.Answer != "42 wins" {
		t.Errorf("answer = %q, want tool result", result.Answer)
	}
}

func TestAsk_MaxIterationsThenInsufficient(t *testing.T) {
	stats := &mockTool{name: "stats_query"}
	knowledge := &mockTool{name: "fan_commentary"}
	gen := &scriptedGenerator{responses: []string{
		"I am not sure what to do here.",
	}}
	svc := newTestService(gen, stats, knowledge)

	result, err := svc.Ask(context.Background(), statisticalQuestion, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 5 {
		t.Errorf("generator called %d times, want the full budget of 5", gen.calls)
	}
	if result.Answer != insufficientInfo {
		t.Errorf("answer = %q, want the insufficient-information fallback", result.Answer)
	}
}

func TestAsk_RetriesExhaustedIsTerminal(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{""},
		errs:      []error{fmt.Errorf("chat: %w", domain.ErrRetriesExhausted)},
	}
	svc := newTestService(gen, &mockTool{name: "stats_query"}, &mockTool{name: "fan_commentary"})

	_, err := svc.Ask(context.Background(), statisticalQuestion, "")
	if !errors.Is(err, domain.ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
}

func TestAsk_TransientModelErrorAbsorbed(t *testing.T) {
	stats := &mockTool{name: "stats_query", output: domagent.ToolOutput{Answer: "12 rebounds"}}
	gen := &scriptedGenerator{
		responses: []string{"", toolAction("stats_query", "rebound leader"), finalAnswer("12 rebounds per game.")},
		errs:      []error{errors.New("transient upstream blip")},
	}
	svc := newTestService(gen, stats, &mockTool{name: "fan_commentary"})

	result, err := svc.Ask(context.Background(), statisticalQuestion, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "12 rebounds per game." {
		t.Errorf("answer = %q", result.Answer)
	}
}

func TestAsk_ToolFailureBecomesObservation(t *testing.T) {
	stats := &mockTool{name: "stats_query", err: errors.New("database locked")}
	gen := &scriptedGenerator{responses: []string{
		toolAction("stats_query", "assist totals"),
	}}
	svc := newTestService(gen, stats, &mockTool{name: "fan_commentary"})

	result, err := svc.Ask(context.Background(), statisticalQuestion, "")
	if err != nil {
		t.Fatalf("tool failure must not fail the question: %v", err)
	}
	if len(result.Steps) == 0 {
		t.Fatal("expected at least one step")
	}
	if !strings.Contains(result.Steps[0].Observation, "tool failed") {
		t.Errorf("observation = %q, want tool failure note", result.Steps[0].Observation)
	}
	if len(result.ToolsUsed) != 0 {
		t.Errorf("failed tool must not count as used, got %v", result.ToolsUsed)
	}
}

func TestAsk_ToolOutsideIntentRejected(t *testing.T) {
	stats := &mockTool{name: "stats_query", output: domagent.ToolOutput{Answer: "should not run"}}
	knowledge := &mockTool{name: "fan_commentary", output: domagent.ToolOutput{Answer: "fans are split on the scheme"}}
	gen := &scriptedGenerator{responses: []string{
		toolAction("stats_query", "defense rating"),
		toolAction("fan_commentary", "defense opinions"),
		finalAnswer("Fans are split on the scheme."),
	}}
	svc := newTestService(gen, stats, knowledge)

	result, err := svc.Ask(context.Background(), opinionQuestion, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Intent != intent.Unstructured {
		t.Fatalf("intent = %q, want unstructured", result.Intent)
	}
	if len(stats.inputs) != 0 {
		t.Error("stats tool must not execute for an unstructured question")
	}
	if !strings.Contains(result.Steps[0].Observation, "unknown tool") {
		t.Errorf("observation = %q, want unknown-tool note", result.Steps[0].Observation)
	}
}

func TestAsk_FallbackPrefersStructuredResults(t *testing.T) {
	stats := &mockTool{name: "stats_query", output: domagent.ToolOutput{Answer: "28.6 points per game"}}
	knowledge := &mockTool{name: "fan_commentary", output: domagent.ToolOutput{Answer: "fans rave about him"}}
	// Both tools run, then the model loops on the commentary tool until the
	// stagnation cutoff. No final answer is ever produced.
	gen := &scriptedGenerator{responses: []string{
		toolAction("stats_query", "scoring stats"),
		toolAction("fan_commentary", "fan takes"),
		toolAction("fan_commentary", "fan takes"),
		toolAction("fan_commentary", "fan takes"),
	}}
	svc := newTestService(gen, stats, knowledge)

	result, err := svc.Ask(context.Background(), biographicalQuestion, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "28.6 points per game" {
		t.Errorf("answer = %q, want the structured tool result preferred", result.Answer)
	}
}

func TestAsk_CanceledContextSynthesizesPartial(t *testing.T) {
	stats := &mockTool{name: "stats_query", output: domagent.ToolOutput{Answer: "19 assists"}}
	gen := &scriptedGenerator{responses: []string{toolAction("stats_query", "assists")}}
	svc := newTestService(gen, stats, &mockTool{name: "fan_commentary"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Ask(ctx, statisticalQuestion, "")
	if err != nil {
		t.Fatalf("deadline must not fail the question: %v", err)
	}
	if result.Answer != insufficientInfo {
		t.Errorf("answer = %q, want fallback with no steps taken", result.Answer)
	}
}

func TestAsk_HistoryInPrompt(t *testing.T) {
	stats := &mockTool{name: "stats_query", output: domagent.ToolOutput{Answer: "still Jokic"}}
	gen := &scriptedGenerator{responses: []string{
		toolAction("stats_query", "top scorer"),
		finalAnswer("Still Jokic."),
	}}
	svc := newTestService(gen, stats, &mockTool{name: "fan_commentary"})

	history := "Q: Who won MVP last year?\nA: Jokic."
	if _, err := svc.Ask(context.Background(), statisticalQuestion, history); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.prompts) == 0 || !strings.Contains(gen.prompts[0], "Who won MVP last year?") {
		t.Error("expected prior turns in the reasoning prompt")
	}
}
