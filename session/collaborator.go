package session

import (
	"context"
	"errors"

	"github.com/meikuraledutech/flowgraph"
)

// Collaborator is everything a session needs from the outside world:
// catalogs, system persistence and execution.
type Collaborator interface {
	SpecialNodes(ctx context.Context) ([]flowgraph.SpecialNodeDef, error)
	Personas(ctx context.Context) ([]flowgraph.Persona, error)
	SaveSystem(ctx context.Context, sys *flowgraph.System) (*flowgraph.System, error)
	LoadSystem(ctx context.Context, name string) (*flowgraph.System, error)
	Run(ctx context.Context, req flowgraph.RunRequest) (*flowgraph.RunResult, error)
}

// StoreCollaborator serves a session from a flowgraph.Store and a Runner.
type StoreCollaborator struct {
	store  flowgraph.Store
	runner flowgraph.Runner
}

func NewStoreCollaborator(store flowgraph.Store, runner flowgraph.Runner) *StoreCollaborator {
	return &StoreCollaborator{store: store, runner: runner}
}

func (c *StoreCollaborator) SpecialNodes(ctx context.Context) ([]flowgraph.SpecialNodeDef, error) {
	return c.store.ListSpecialNodes(ctx)
}

func (c *StoreCollaborator) Personas(ctx context.Context) ([]flowgraph.Persona, error) {
	return c.store.ListPersonas(ctx)
}

// SaveSystem creates the system, or updates it when the name is taken.
func (c *StoreCollaborator) SaveSystem(ctx context.Context, sys *flowgraph.System) (*flowgraph.System, error) {
	existing, err := c.store.GetSystem(ctx, sys.Name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		out, err := c.store.CreateSystem(ctx, sys)
		if !errors.Is(err, flowgraph.ErrSystemExists) {
			return out, err
		}
	}
	return c.store.UpdateSystem(ctx, sys.Name, sys)
}

// LoadSystem returns flowgraph.ErrSystemNotFound for unknown names.
func (c *StoreCollaborator) LoadSystem(ctx context.Context, name string) (*flowgraph.System, error) {
	sys, err := c.store.GetSystem(ctx, name)
	if err != nil {
		return nil, err
	}
	if sys == nil {
		return nil, flowgraph.ErrSystemNotFound
	}
	return sys, nil
}

func (c *StoreCollaborator) Run(ctx context.Context, req flowgraph.RunRequest) (*flowgraph.RunResult, error) {
	return c.runner.Run(ctx, req)
}
