// Package agent orchestrates tool use for one question: routing, a bounded
// reasoning loop, and answer synthesis with explicit failure recovery.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/courtside-ai/courtside/internal/domain"
	domagent "github.com/courtside-ai/courtside/internal/domain/agent"
	"github.com/courtside-ai/courtside/internal/domain/intent"
	"github.com/courtside-ai/courtside/internal/metrics"
)

const (
	// observationLimit truncates tool observations for prompt economy. The
	// untruncated result stays in the per-question tool result map.
	observationLimit = 700
	// stagnationWindow is the number of identical consecutive actions that
	// forces early synthesis.
	stagnationWindow = 3

	insufficientInfo = "I could not find enough information to answer that question."
)

// Params holds orchestrator tunables.
type Params struct {
	MaxIterations int
}

// Service is the per-question state machine: Routing → Executing →
// Synthesizing → Done. The registered tools and generator are the only
// shared state and are immutable; everything per-question lives in the
// invocation below, so concurrent questions are fully isolated.
type Service struct {
	gen       domain.Generator
	stats     domagent.Tool
	knowledge domagent.Tool
	params    Params
	logger    *zap.Logger
}

// New creates an orchestrator with the two registered tools.
func New(gen domain.Generator, stats, knowledge domagent.Tool, params Params, logger *zap.Logger) *Service {
	if params.MaxIterations <= 0 {
		params.MaxIterations = 5
	}
	return &Service{gen: gen, stats: stats, knowledge: knowledge, params: params, logger: logger}
}

// invocation owns all state for one question. It is created per call and
// never shared.
type invocation struct {
	question    string
	history     string
	it          intent.Intent
	tools       []domagent.Tool
	steps       []domagent.Step
	toolResults map[string]domagent.ToolOutput // last structured result per tool
	toolsUsed   []string
	guard       string
	finalAnswer string
	converged   bool
}

// Ask answers one question. History is opaque prior-turn text inserted into
// the first reasoning prompt. Only exhausted rate-limit retries surface as an
// error; every tool or model failure is absorbed into the reasoning trace.
func (s *Service) Ask(ctx context.Context, question, history string) (domagent.Result, error) {
	inv := &invocation{
		question:    question,
		history:     history,
		toolResults: make(map[string]domagent.ToolOutput),
	}

	// Routing: classify once, cache for the question's lifetime.
	inv.it = Classify(question)
	inv.tools = s.eligibleTools(inv.it)
	metrics.QuestionsTotal.WithLabelValues(string(inv.it)).Inc()

	log := s.logger.With(zap.String("intent", string(inv.it)))
	log.Debug("Question routed", zap.Int("eligible_tools", len(inv.tools)))

	if err := s.execute(ctx, inv, log); err != nil {
		return domagent.Result{}, err
	}

	answer := s.synthesize(inv)
	metrics.ReasoningIterations.Observe(float64(len(inv.steps)))

	return domagent.Result{
		TraceID:   uuid.NewString(),
		Answer:    answer,
		Intent:    inv.it,
		Steps:     inv.steps,
		ToolsUsed: inv.toolsUsed,
		Hybrid:    len(inv.toolsUsed) > 1,
	}, nil
}

// eligibleTools maps the cached intent to the tool subset allowed this
// question. No tool outside this set ever executes.
func (s *Service) eligibleTools(it intent.Intent) []domagent.Tool {
	var tools []domagent.Tool
	if it.NeedsStats() {
		tools = append(tools, s.stats)
	}
	if it.NeedsKnowledge() {
		tools = append(tools, s.knowledge)
	}
	return tools
}

// execute runs the bounded reasoning loop. Every iteration costs one unit of
// the budget whether it advanced tool use or not.
func (s *Service) execute(ctx context.Context, inv *invocation, log *zap.Logger) error {
	for i := 0; i < s.params.MaxIterations; i++ {
		// A blown question deadline abandons the loop; synthesis still runs
		// over whatever partial steps exist.
		if ctx.Err() != nil {
			log.Warn("Question deadline exceeded, synthesizing from partial steps",
				zap.Int("steps", len(inv.steps)))
			return nil
		}

		prompt := buildPrompt(inv.question, inv.history, inv.it, inv.tools, inv.steps, inv.guard)
		inv.guard = ""

		gen, err := s.gen.Generate(ctx, prompt)
		if err != nil {
			if errors.Is(err, domain.ErrRetriesExhausted) {
				return fmt.Errorf("reasoning model unavailable: %w", err)
			}
			if ctx.Err() != nil {
				return nil
			}
			// Non-terminal model failure: absorb as a non-convergent step.
			inv.steps = append(inv.steps, domagent.Step{
				Observation: truncate("model error: "+err.Error(), observationLimit),
			})
			continue
		}

		act, err := parseAction(gen.Text)
		if err != nil {
			log.Debug("Malformed model action", zap.Error(err))
			inv.steps = append(inv.steps, domagent.Step{
				Thought:     truncate(gen.Text, observationLimit),
				Observation: "could not parse a tool action or final answer from the response",
			})
			continue
		}

		if act.final {
			// Transition guard: the model may not answer from parametric
			// memory while eligible tools are unused.
			if len(inv.toolsUsed) == 0 && len(inv.tools) > 0 {
				inv.guard = "a tool must be used before giving a final answer"
				log.Debug("Premature final answer rejected")
				continue
			}
			inv.finalAnswer = act.answer
			inv.converged = true
			return nil
		}

		s.runTool(ctx, inv, act, log)

		if stagnated(inv.steps) {
			metrics.StagnationTotal.Inc()
			log.Warn("Reasoning loop stagnated", zap.String("action", act.tool))
			return nil
		}
	}
	return nil
}

// runTool executes one tool invocation and appends the resulting step. Tool
// failures become negative observations for the model to reason about.
func (s *Service) runTool(ctx context.Context, inv *invocation, act action, log *zap.Logger) {
	step := domagent.Step{Thought: act.thought, Action: act.tool, ActionInput: act.input}

	tool := s.lookupTool(inv, act.tool)
	if tool == nil {
		step.Observation = fmt.Sprintf("unknown tool %q; available: %s", act.tool, toolNames(inv.tools))
		inv.steps = append(inv.steps, step)
		return
	}

	start := time.Now()
	out, err := tool.Run(ctx, act.input)
	metrics.ToolDuration.WithLabelValues(tool.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ToolInvocationsTotal.WithLabelValues(tool.Name(), "error").Inc()
		log.Warn("Tool failed", zap.String("tool", tool.Name()), zap.Error(err))
		step.Observation = truncate("tool failed: "+err.Error(), observationLimit)
		inv.steps = append(inv.steps, step)
		return
	}

	metrics.ToolInvocationsTotal.WithLabelValues(tool.Name(), "success").Inc()
	inv.toolResults[tool.Name()] = out
	if !contains(inv.toolsUsed, tool.Name()) {
		inv.toolsUsed = append(inv.toolsUsed, tool.Name())
	}
	step.Observation = truncate(out.Answer, observationLimit)
	inv.steps = append(inv.steps, step)
}

// synthesize builds the final answer. A converged model answer is used
// verbatim; otherwise structured tool results are preferred over truncated
// step text because they are more reliable than re-parsing observations.
func (s *Service) synthesize(inv *invocation) string {
	if inv.converged {
		return inv.finalAnswer
	}
	metrics.FallbackSynthesisTotal.Inc()

	for _, tool := range inv.tools {
		if out, ok := inv.toolResults[tool.Name()]; ok && out.Answer != "" {
			return out.Answer
		}
	}
	for _, step := range inv.steps {
		if step.Action != "" && step.Observation != "" {
			return truncate(step.Observation, observationLimit)
		}
	}
	return insufficientInfo
}

func (s *Service) lookupTool(inv *invocation, name string) domagent.Tool {
	for _, t := range inv.tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// stagnated reports whether the last stagnationWindow steps are identical
// tool+input pairs.
func stagnated(steps []domagent.Step) bool {
	if len(steps) < stagnationWindow {
		return false
	}
	last := steps[len(steps)-1]
	if last.Action == "" {
		return false
	}
	for _, s := range steps[len(steps)-stagnationWindow : len(steps)-1] {
		if s.Action != last.Action || s.ActionInput != last.ActionInput {
			return false
		}
	}
	return true
}

func toolNames(tools []domagent.Tool) string {
	names := ""
	for i, t := range tools {
		if i > 0 {
			names += ", "
		}
		names += t.Name()
	}
	return names
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
