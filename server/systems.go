package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flowgraph"
)

type systemRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Graph       *flowgraph.Graph `json:"graph" validate:"required"`
}

type runRequest struct {
	Graph      *flowgraph.Graph `json:"graph" validate:"required"`
	UserPrompt string           `json:"user_prompt"`
}

func (s *Server) systemRoutes(api fiber.Router) {
	api.Get("/systems", func(c fiber.Ctx) error {
		systems, err := s.store.ListSystems(c.Context())
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(systems)
	})

	// Saving under an existing name updates that system.
	api.Post("/systems", func(c fiber.Ctx) error {
		var req systemRequest
		if err := s.bind(c, &req); err != nil {
			return s.fail(c, err)
		}
		if len(req.Graph.Nodes) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "system graph must contain at least one node"})
		}
		sys := &flowgraph.System{Name: req.Name, Description: req.Description, Graph: *req.Graph}

		existing, err := s.store.GetSystem(c.Context(), req.Name)
		if err != nil {
			return s.fail(c, err)
		}
		if existing != nil {
			updated, err := s.store.UpdateSystem(c.Context(), req.Name, sys)
			if err != nil {
				return s.fail(c, err)
			}
			return c.JSON(fiber.Map{"message": "system updated", "system": updated})
		}
		created, err := s.store.CreateSystem(c.Context(), sys)
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "system saved", "system": created})
	})

	api.Get("/systems/:name", func(c fiber.Ctx) error {
		sys, err := s.store.GetSystem(c.Context(), c.Params("name"))
		if err != nil {
			return s.fail(c, err)
		}
		if sys == nil {
			return s.fail(c, flowgraph.ErrSystemNotFound)
		}
		return c.JSON(sys)
	})

	api.Put("/systems/:name", func(c fiber.Ctx) error {
		var req systemRequest
		req.Name = c.Params("name")
		if err := s.bind(c, &req); err != nil {
			return s.fail(c, err)
		}
		sys, err := s.store.UpdateSystem(c.Context(), c.Params("name"), &flowgraph.System{
			Description: req.Description,
			Graph:       *req.Graph,
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "system updated", "system": sys})
	})

	api.Delete("/systems/:name", func(c fiber.Ctx) error {
		sys, err := s.store.DeleteSystem(c.Context(), c.Params("name"))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "system deleted", "system": sys})
	})

	// ── Execution ─────────────────────────────────────────────────────
	api.Post("/run-crew-graph", func(c fiber.Ctx) error {
		var req runRequest
		if err := s.bind(c, &req); err != nil {
			return s.fail(c, err)
		}
		res, err := s.runner.Run(c.Context(), flowgraph.RunRequest{Graph: *req.Graph, UserPrompt: req.UserPrompt})
		s.metrics.observeRun(err)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(res)
	})
}
