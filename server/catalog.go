package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flowgraph"
)

func (s *Server) catalogRoutes(api fiber.Router) {
	// ── Personas ──────────────────────────────────────────────────────
	api.Get("/personas", func(c fiber.Ctx) error {
		personas, err := s.store.ListPersonas(c.Context())
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(personas)
	})

	api.Post("/personas", func(c fiber.Ctx) error {
		var p flowgraph.Persona
		if err := s.bind(c, &p); err != nil {
			return s.fail(c, err)
		}
		if err := s.store.CreatePersona(c.Context(), &p); err != nil {
			return s.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "persona created", "persona": p})
	})

	api.Put("/personas/:name", func(c fiber.Ctx) error {
		var p flowgraph.Persona
		if err := s.bind(c, &p); err != nil {
			return s.fail(c, err)
		}
		if err := s.store.UpdatePersona(c.Context(), c.Params("name"), &p); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "persona updated", "persona": p})
	})

	api.Delete("/personas/:name", func(c fiber.Ctx) error {
		p, err := s.store.DeletePersona(c.Context(), c.Params("name"))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "persona deleted", "persona": p})
	})

	// ── Special nodes ─────────────────────────────────────────────────
	api.Get("/special-nodes", func(c fiber.Ctx) error {
		defs, err := s.store.ListSpecialNodes(c.Context())
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(defs)
	})

	api.Put("/special-nodes/:id", func(c fiber.Ctx) error {
		var def flowgraph.SpecialNodeDef
		if err := c.Bind().JSON(&def); err != nil {
			return s.fail(c, errInvalidBody)
		}
		def.ID = c.Params("id")
		if err := s.validate.Struct(&def); err != nil {
			return s.fail(c, err)
		}
		if err := s.store.PutSpecialNode(c.Context(), &def); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(def)
	})
}
