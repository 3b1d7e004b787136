// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-pipeline/internal/pipeline"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

var startCmd = &cobra.Command{
	Use:   "start [topic]",
	Short: "Start a new content item and run it to the review gate",
	Long: `Start creates a content item for the topic, researches it, drafts the
article, and runs quality checks with bounded revision cycles. The item then
waits for human review; nothing is published without approval.

A topic that duplicates an item already in flight is rejected.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().Int("max-revisions", 0, "revision cycles allowed before forwarding flagged (1-3)")
	startCmd.Flags().Bool("skip-research", false, "draft directly from the topic without web research")
	startCmd.Flags().String("research-model", "", "research model variant (sonar, sonar-pro, sonar-reasoning)")
	startCmd.Flags().String("blog-status", "", "WordPress post status on publish (draft or publish)")
	startCmd.Flags().Bool("skip-social", false, "do not share on social media after publishing")

	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a topic")
	}
	topic := strings.Join(args, " ")

	maxRevisions, _ := cmd.Flags().GetInt("max-revisions")
	skipResearch, _ := cmd.Flags().GetBool("skip-research")
	researchModel, _ := cmd.Flags().GetString("research-model")
	blogStatus, _ := cmd.Flags().GetString("blog-status")
	skipSocial, _ := cmd.Flags().GetBool("skip-social")

	orch, closeStore, err := buildOrchestrator(os.Stdout)
	if err != nil {
		return err
	}
	defer closeStore()

	item, err := orch.Start(cmd.Context(), topic, pipeline.StartOptions{
		MaxRevisionCycles: maxRevisions,
		SkipResearch:      skipResearch,
		ResearchModel:     types.ResearchModel(researchModel),
		BlogStatus:        types.BlogStatus(blogStatus),
		SkipSocial:        skipSocial,
	})
	if err != nil {
		var dup *pipeline.DuplicateError
		if errors.As(err, &dup) {
			fmt.Fprintf(os.Stderr, "Duplicate topic: item %s is already in stage %s\n",
				dup.Existing.ID, dup.Existing.Stage)
		}
		return err
	}

	printItem(os.Stdout, item)
	return nil
}
