package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flowgraph"
	"github.com/meikuraledutech/flowgraph/canvas"
	"github.com/meikuraledutech/flowgraph/session"
)

type personaRequest struct {
	Persona string `json:"persona"`
}

type saveRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type loadRequest struct {
	Name string `json:"name" validate:"required"`
}

type sessionRunRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) sessionRoutes(api fiber.Router) {
	api.Post("/sessions", func(c fiber.Ctx) error {
		sess, err := s.sessions.Create(c.Context())
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sess.Snapshot())
	})

	sessions := api.Group("/sessions/:id", s.lookupSession)

	sessions.Get("/", func(c fiber.Ctx) error {
		return c.JSON(current(c).Snapshot())
	})

	sessions.Delete("/", func(c fiber.Ctx) error {
		if err := s.sessions.Close(c.Params("id")); err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	sessions.Get("/graph", func(c fiber.Ctx) error {
		return c.JSON(current(c).Graph())
	})

	// Inbound sync of a graph pushed by the client.
	sessions.Put("/graph", func(c fiber.Ctx) error {
		g, err := flowgraph.ParseGraph(c.Body())
		if err != nil {
			return s.fail(c, errInvalidBody)
		}
		changed, err := current(c).Apply(g)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"changed": changed, "session": current(c).Snapshot()})
	})

	sessions.Put("/persona", func(c fiber.Ctx) error {
		var req personaRequest
		if err := s.bind(c, &req); err != nil {
			return s.fail(c, err)
		}
		if err := current(c).SelectPersona(req.Persona); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(current(c).Snapshot())
	})

	sessions.Put("/viewport", func(c fiber.Ctx) error {
		var vp canvas.Viewport
		if err := s.bind(c, &vp); err != nil {
			return s.fail(c, err)
		}
		if err := current(c).SetViewport(&vp); err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	sessions.Post("/commands", func(c fiber.Ctx) error {
		cmd, err := canvas.DecodeCommand(c.Body())
		if err != nil {
			return s.fail(c, err)
		}
		res, err := current(c).Dispatch(cmd)
		s.metrics.observeCommand(cmd.Name(), err)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"result": res, "session": current(c).Snapshot()})
	})

	sessions.Post("/save", func(c fiber.Ctx) error {
		var req saveRequest
		if err := s.bind(c, &req); err != nil {
			return s.fail(c, err)
		}
		sys, err := current(c).Save(c.Context(), req.Name, req.Description)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "system saved", "system": sys})
	})

	sessions.Post("/load", func(c fiber.Ctx) error {
		var req loadRequest
		if err := s.bind(c, &req); err != nil {
			return s.fail(c, err)
		}
		changed, err := current(c).Load(c.Context(), req.Name)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"changed": changed, "session": current(c).Snapshot()})
	})

	sessions.Post("/run", func(c fiber.Ctx) error {
		var req sessionRunRequest
		if err := s.bind(c, &req); err != nil {
			return s.fail(c, err)
		}
		res, err := current(c).Run(c.Context(), req.Prompt)
		if !session.IsValidation(err) {
			s.metrics.observeRun(err)
		}
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(res)
	})
}

const sessionKey = "session"

func (s *Server) lookupSession(c fiber.Ctx) error {
	sess, err := s.sessions.Get(c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	c.Locals(sessionKey, sess)
	return c.Next()
}

func current(c fiber.Ctx) *session.Session {
	return c.Locals(sessionKey).(*session.Session)
}
