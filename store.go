package flowgraph

import (
	"context"
	"errors"
)

var (
	ErrInvalidGraph    = errors.New("flowgraph: invalid graph")
	ErrPersonaExists   = errors.New("flowgraph: persona with this name already exists")
	ErrPersonaNotFound = errors.New("flowgraph: persona not found")
	ErrSystemExists    = errors.New("flowgraph: system with this name already exists")
	ErrSystemNotFound  = errors.New("flowgraph: system not found")
)

// Store defines the contract for persisting personas, the special-node
// catalog and saved systems.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Personas
	ListPersonas(ctx context.Context) ([]Persona, error)
	GetPersona(ctx context.Context, name string) (*Persona, error)
	CreatePersona(ctx context.Context, p *Persona) error
	UpdatePersona(ctx context.Context, name string, p *Persona) error
	DeletePersona(ctx context.Context, name string) (*Persona, error)

	// Special nodes
	ListSpecialNodes(ctx context.Context) ([]SpecialNodeDef, error)
	PutSpecialNode(ctx context.Context, def *SpecialNodeDef) error

	// Systems
	ListSystems(ctx context.Context) ([]System, error)
	GetSystem(ctx context.Context, name string) (*System, error)
	CreateSystem(ctx context.Context, s *System) (*System, error)
	UpdateSystem(ctx context.Context, name string, s *System) (*System, error)
	DeleteSystem(ctx context.Context, name string) (*System, error)
}
