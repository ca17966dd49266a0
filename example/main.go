package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/flowgraph"
	"github.com/meikuraledutech/flowgraph/canvas"
	"github.com/meikuraledutech/flowgraph/memory"
	"github.com/meikuraledutech/flowgraph/postgres"
	"github.com/meikuraledutech/flowgraph/runner"
	"github.com/meikuraledutech/flowgraph/session"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Postgres when DATABASE_URL is set, memory otherwise.
	var store flowgraph.Store = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	// 1. Create tables (seeds the prompt special node)
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Personas ──────────────────────────────────────────────────────
	for _, p := range []flowgraph.Persona{
		{
			Name:  "Researcher",
			Agent: flowgraph.PersonaSpec{Role: "Researcher", Goal: "Collect facts"},
			Task:  flowgraph.TaskSpec{Description: "Research {user_prompt}", ExpectedOutput: "Bullet notes"},
		},
		{
			Name:  "Writer",
			Agent: flowgraph.PersonaSpec{Role: "Writer", Goal: "Explain clearly"},
			Task:  flowgraph.TaskSpec{Description: "Write a short answer to {user_prompt}"},
		},
	} {
		if err := store.CreatePersona(ctx, &p); err != nil && !errors.Is(err, flowgraph.ErrPersonaExists) {
			log.Fatalf("create persona: %v", err)
		}
	}
	fmt.Println("personas created")

	// ── Editing session ───────────────────────────────────────────────
	run := runner.New(store, logger)
	sess := session.New(session.NewStoreCollaborator(store, run),
		session.WithLogger(logger),
		session.WithChangeHandler(func(g flowgraph.Graph) {
			fmt.Printf("graph changed: %d nodes, %d edges\n", len(g.Nodes), len(g.Edges))
		}),
	)
	defer sess.Close()
	if err := sess.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}

	if err := sess.SelectPersona("Researcher"); err != nil {
		log.Fatalf("select: %v", err)
	}
	researcher, err := sess.AddNode()
	if err != nil {
		log.Fatalf("add node: %v", err)
	}
	res, err := sess.Dispatch(canvas.AddNode{Persona: "Writer"})
	if err != nil {
		log.Fatalf("add node: %v", err)
	}
	writer := res.NodeID

	for _, cmd := range []canvas.Command{
		canvas.Connect{Source: flowgraph.PromptNodeID, Target: researcher},
		canvas.Connect{Source: researcher, Target: writer},
	} {
		if _, err := sess.Dispatch(cmd); err != nil {
			log.Fatalf("%s: %v", cmd.Name(), err)
		}
	}

	// Special nodes are protected.
	if _, err := sess.Dispatch(canvas.DeleteNode{ID: flowgraph.PromptNodeID}); err != nil {
		fmt.Printf("delete prompt node: %v\n", err)
	}

	fmt.Println("\ncanonical graph:")
	printJSON(sess.Graph())

	// ── Save, reload, run ─────────────────────────────────────────────
	if _, err := sess.Save(ctx, "research-and-write", "Two step pipeline"); err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Println("\nsystem saved")

	changed, err := sess.Load(ctx, "research-and-write")
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	fmt.Printf("reload changed canvas: %v\n", changed)

	result, err := sess.Run(ctx, "why the sky is blue")
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	fmt.Println("\nrun result:")
	printJSON(result)

	// ── Cleanup ───────────────────────────────────────────────────────
	if _, err := store.DeleteSystem(ctx, "research-and-write"); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nsystem deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
