// Package runner provides an offline flowgraph.Runner. It plans a graph the
// way a crew executor would and renders each task instead of calling a
// model, so the full editor-to-runner path can be exercised without one.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meikuraledutech/flowgraph"
	"go.uber.org/zap"
)

var (
	ErrNoNodes = errors.New("runner: no nodes provided in graph")
	ErrNoTasks = errors.New("runner: no valid personas found for any node in the graph")
)

// PromptPlaceholder is replaced by the user prompt in task descriptions.
const PromptPlaceholder = "{user_prompt}"

// PersonaSource supplies the persona catalog. flowgraph.Store satisfies it.
type PersonaSource interface {
	ListPersonas(ctx context.Context) ([]flowgraph.Persona, error)
}

// DryRun implements flowgraph.Runner.
type DryRun struct {
	personas PersonaSource
	logger   *zap.Logger
}

// New returns a DryRun resolving personas from src. A nil logger is
// replaced by a no-op logger.
func New(src PersonaSource, logger *zap.Logger) *DryRun {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DryRun{personas: src, logger: logger.With(zap.String("component", "runner"))}
}

type task struct {
	node    flowgraph.Node
	persona flowgraph.Persona
	order   int
	sources []string
}

// Run plans req.Graph and renders every resolvable task in dependency
// order. The final output is the last task executed.
func (r *DryRun) Run(ctx context.Context, req flowgraph.RunRequest) (*flowgraph.RunResult, error) {
	if len(req.Graph.Nodes) == 0 {
		return nil, ErrNoNodes
	}

	catalog, err := r.personas.ListPersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("runner: list personas: %w", err)
	}
	byName := make(map[string]flowgraph.Persona, len(catalog))
	for _, p := range catalog {
		byName[p.Name] = p
	}

	result := &flowgraph.RunResult{Steps: map[string]flowgraph.StepResult{}}
	tasks := map[string]*task{}
	for i, n := range req.Graph.Nodes {
		if n.IsSpecial() {
			if n.SpecialType == "prompt" {
				result.Steps[n.ID] = flowgraph.StepResult{Output: req.UserPrompt, Role: n.Role}
			}
			continue
		}
		if n.ID == "" || n.Persona == "" {
			continue
		}
		p, ok := byName[n.Persona]
		if !ok {
			r.logger.Warn("persona not found", zap.String("node", n.ID), zap.String("persona", n.Persona))
			continue
		}
		tasks[n.ID] = &task{node: n, persona: p, order: i}
	}
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}

	for _, e := range req.Graph.Edges {
		t, ok := tasks[e.Target]
		if !ok {
			continue
		}
		_, isTask := tasks[e.Source]
		_, isPrompt := result.Steps[e.Source]
		if isTask || isPrompt {
			t.sources = append(t.sources, e.Source)
		}
	}

	for _, t := range plan(tasks) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var inputs []string
		for _, src := range t.sources {
			if out, ok := result.Steps[src]; ok {
				inputs = append(inputs, out.Output)
			}
		}
		out := render(t, req.UserPrompt, inputs)
		result.Steps[t.node.ID] = flowgraph.StepResult{Output: out, Persona: t.node.Persona, Role: t.node.Role}
		result.Final = out
		r.logger.Debug("step rendered", zap.String("node", t.node.ID), zap.Int("inputs", len(inputs)))
	}

	r.logger.Info("run complete", zap.Int("tasks", len(tasks)), zap.Int("steps", len(result.Steps)))
	return result, nil
}

// plan orders tasks so every task follows its sources. Ties, and cycles,
// are broken by position in the graph's node list.
func plan(tasks map[string]*task) []*task {
	indegree := make(map[string]int, len(tasks))
	targets := make(map[string][]string, len(tasks))
	for id, t := range tasks {
		for _, src := range t.sources {
			if _, ok := tasks[src]; ok {
				indegree[id]++
				targets[src] = append(targets[src], id)
			}
		}
	}

	out := make([]*task, 0, len(tasks))
	done := make(map[string]bool, len(tasks))
	for len(out) < len(tasks) {
		var next *task
		for id, t := range tasks {
			if done[id] {
				continue
			}
			if indegree[id] == 0 && (next == nil || t.order < next.order) {
				next = t
			}
		}
		if next == nil {
			for id, t := range tasks {
				if !done[id] && (next == nil || t.order < next.order) {
					next = t
				}
			}
		}
		done[next.node.ID] = true
		out = append(out, next)
		for _, tgt := range targets[next.node.ID] {
			indegree[tgt]--
		}
	}
	return out
}

func render(t *task, prompt string, inputs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", t.persona.Agent.Role, strings.ReplaceAll(t.persona.Task.Description, PromptPlaceholder, prompt))
	if t.persona.Task.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\nExpected: %s", t.persona.Task.ExpectedOutput)
	}
	for _, c := range inputs {
		fmt.Fprintf(&b, "\nContext: %s", firstLine(c))
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var _ flowgraph.Runner = (*DryRun)(nil)
