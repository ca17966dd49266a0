package main

import (
	"errors"
	"fmt"

	"github.com/meikuraledutech/flowgraph/postgres"
	"github.com/spf13/cobra"
)

func newSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create tables and seed the special-node catalog",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPGStore(cmd, func(s *postgres.PGStore) error {
					if err := s.CreateSchema(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "schema created")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "drop",
			Short: "Drop every flowgraph table",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPGStore(cmd, func(s *postgres.PGStore) error {
					if err := s.DropSchema(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "schema dropped")
					return nil
				})
			},
		},
	)
	return cmd
}

var errNoDatabase = errors.New("database.url is not set")

func withPGStore(cmd *cobra.Command, fn func(*postgres.PGStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errNoDatabase
	}
	pool, err := openPool(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(postgres.New(pool))
}
