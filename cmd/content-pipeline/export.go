// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-pipeline/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all items and audit trails to data/index/",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().Bool("json", false, "export JSON instead of YAML")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	st, err := store.New(loadPipelineConfig().Store)
	if err != nil {
		return err
	}
	defer st.Close()

	var path string
	if asJSON {
		path, err = st.ExportJSON(cmd.Context())
	} else {
		path, err = st.ExportYAML(cmd.Context())
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}
