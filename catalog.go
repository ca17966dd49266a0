package flowgraph

import (
	"context"
	"time"
)

// Persona is a named agent configuration referenced by agent nodes.
type Persona struct {
	Name  string      `json:"name" validate:"required"`
	Agent PersonaSpec `json:"agent" validate:"required"`
	Task  TaskSpec    `json:"task" validate:"required"`
}

// PersonaSpec describes the agent side of a persona.
type PersonaSpec struct {
	Role      string `json:"role" validate:"required"`
	Goal      string `json:"goal"`
	Backstory string `json:"backstory"`
}

// TaskSpec describes the task a persona performs. Description may contain
// the {user_prompt} placeholder.
type TaskSpec struct {
	Description    string `json:"description" validate:"required"`
	ExpectedOutput string `json:"expected_output"`
}

// SpecialNodeDef is a catalog entry for a protected, system-provided step.
type SpecialNodeDef struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name"`
	Type        string `json:"type" validate:"required"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description"`
	Prompt      string `json:"prompt,omitempty"`
}

// System is a saved, named workflow graph.
type System struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Graph       Graph     `json:"graph"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RunRequest hands a canonical graph and free-text prompt to an executor.
type RunRequest struct {
	Graph      Graph  `json:"graph"`
	UserPrompt string `json:"user_prompt"`
}

// StepResult is the output of one executed node.
type StepResult struct {
	Output  string `json:"output"`
	Persona string `json:"persona"`
	Role    string `json:"role"`
}

// RunResult is what an executor returns; the canvas never interprets it.
type RunResult struct {
	Final string                `json:"final"`
	Steps map[string]StepResult `json:"steps"`
}

// Runner executes a workflow graph.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// PromptNodeID is the id of the built-in user prompt node.
const PromptNodeID = "prompt"

// DefaultSpecialNodes returns the built-in special-node catalog.
func DefaultSpecialNodes() []SpecialNodeDef {
	return []SpecialNodeDef{
		{
			ID:          PromptNodeID,
			Name:        "User Prompt",
			Type:        "prompt",
			Role:        "User Input",
			Description: "Passes the user's prompt to every connected agent",
		},
	}
}
