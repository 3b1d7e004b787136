// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show [item-id]",
	Short: "Show a content item's state, metrics, and audit trail",
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Bool("content", false, "print the full article content")

	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one item id")
	}
	withContent, _ := cmd.Flags().GetBool("content")

	orch, closeStore, err := buildOrchestrator(io.Discard)
	if err != nil {
		return err
	}
	defer closeStore()

	item, err := orch.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printItem(os.Stdout, item)

	trail, err := orch.AuditTrail(cmd.Context(), item.ID)
	if err != nil {
		return err
	}
	fmt.Println("\nAudit trail:")
	for _, e := range trail {
		line := fmt.Sprintf("  %s  %-10s", e.At.Format("2006-01-02 15:04:05"), e.Actor)
		if e.To != "" {
			if e.From != "" {
				line += fmt.Sprintf("  %s -> %s", e.From, e.To)
			} else {
				line += fmt.Sprintf("  -> %s", e.To)
			}
		}
		if e.CostDelta != 0 {
			line += fmt.Sprintf("  $%.4f", e.CostDelta)
		}
		if e.Note != "" {
			line += "  " + e.Note
		}
		fmt.Println(line)
	}

	if withContent && item.Content != "" {
		fmt.Println("\n" + item.Content)
	}
	return nil
}

// printItem writes a one-screen summary of the item.
func printItem(w io.Writer, item *types.ContentItem) {
	fmt.Fprintf(w, "Item:     %s\n", item.ID)
	fmt.Fprintf(w, "Topic:    %s\n", item.Topic)
	fmt.Fprintf(w, "Stage:    %s\n", item.Stage)
	if item.Title != "" {
		fmt.Fprintf(w, "Title:    %s\n", item.Title)
	}
	if item.Metrics != nil {
		fmt.Fprintf(w, "Quality:  %d words, %d min read, Flesch %.1f (%s), completeness %d/10\n",
			item.Metrics.WordCount, item.Metrics.ReadingTimeMinutes,
			item.Metrics.FleschScore, item.Metrics.GradeLevel,
			item.Metrics.CompletenessScore)
	}
	if item.RevisionCount > 0 {
		fmt.Fprintf(w, "Revisions: %d\n", item.RevisionCount)
	}
	if item.QualityIncomplete {
		fmt.Fprintf(w, "Flagged:  quality incomplete after revision budget\n")
	}
	if len(item.Issues) > 0 {
		fmt.Fprintf(w, "Issues:   %s\n", strings.Join(item.Issues, "; "))
	}
	if len(item.SourceURLs) > 0 {
		fmt.Fprintf(w, "Sources:  %d\n", len(item.SourceURLs))
	}
	fmt.Fprintf(w, "Cost:     $%.4f\n", item.CostAccumulated)
	if item.PostURL != "" {
		fmt.Fprintf(w, "Post:     %s\n", item.PostURL)
	}
	if item.SocialPostID != "" {
		fmt.Fprintf(w, "Share:    %s\n", item.SocialPostID)
	}
	if item.FailReason != "" {
		fmt.Fprintf(w, "Failure:  %s\n", item.FailReason)
	}
}
