// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List items waiting for human review",
	RunE:  runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}

func runPending(cmd *cobra.Command, args []string) error {
	orch, closeStore, err := buildOrchestrator(io.Discard)
	if err != nil {
		return err
	}
	defer closeStore()

	items, err := orch.ListPending(cmd.Context())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No items awaiting review.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tWORDS\tREVISIONS\tFLAGGED\tCOST")
	for _, item := range items {
		words := 0
		if item.Metrics != nil {
			words = item.Metrics.WordCount
		}
		flagged := ""
		if item.QualityIncomplete {
			flagged = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t$%.4f\n",
			item.ID, item.Title, words, item.RevisionCount, flagged, item.CostAccumulated)
	}
	return tw.Flush()
}
