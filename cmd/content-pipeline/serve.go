// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-pipeline/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline JSON API",
	Long: `Serve exposes the pipeline over HTTP: POST /api/items starts an item,
GET /api/items lists the review queue, and /api/items/{id}/approve, reject,
and abort mirror the CLI review commands.

On startup, items interrupted mid-stage by a previous process are resumed.
Items at the review gate stay parked.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	orch, closeStore, err := buildOrchestrator(os.Stdout)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := orch.Resume(cmd.Context()); err != nil {
		return fmt.Errorf("resuming interrupted items: %w", err)
	}

	s, err := server.New(orch)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Routes())
}
