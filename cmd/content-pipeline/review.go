// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var approveCmd = &cobra.Command{
	Use:   "approve [item-id]",
	Short: "Approve a reviewed item and publish it",
	Long: `Approve opens the review gate for one item: the article is published to
the blog and, when configured, shared on social media. Approval is the only
path to the published stage.`,
	RunE: runApprove,
}

var rejectCmd = &cobra.Command{
	Use:   "reject [item-id]",
	Short: "Reject a reviewed item, closing it with a recorded reason",
	Long: `Reject closes the item as failed with the reviewer's reason recorded in
the audit trail. The item is kept for the record, and the topic is free to
be started again.`,
	RunE: runReject,
}

var abortCmd = &cobra.Command{
	Use:   "abort [item-id]",
	Short: "Abort an item before it publishes",
	RunE:  runAbort,
}

func init() {
	approveCmd.Flags().String("actor", "", "reviewer recorded in the audit trail (default: current user)")
	rejectCmd.Flags().String("actor", "", "reviewer recorded in the audit trail (default: current user)")
	rejectCmd.Flags().String("reason", "", "why the article is rejected (required)")
	abortCmd.Flags().String("actor", "", "operator recorded in the audit trail (default: current user)")

	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(abortCmd)
}

func actorFlag(cmd *cobra.Command) string {
	actor, _ := cmd.Flags().GetString("actor")
	if actor == "" {
		actor = os.Getenv("USER")
	}
	if actor == "" {
		actor = "operator"
	}
	return actor
}

func runApprove(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one item id")
	}

	orch, closeStore, err := buildOrchestrator(os.Stdout)
	if err != nil {
		return err
	}
	defer closeStore()

	item, err := orch.Approve(cmd.Context(), args[0], actorFlag(cmd))
	if err != nil {
		return err
	}
	printItem(os.Stdout, item)
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one item id")
	}
	reason, _ := cmd.Flags().GetString("reason")
	if reason == "" {
		return fmt.Errorf("provide --reason for the rejection")
	}

	orch, closeStore, err := buildOrchestrator(os.Stdout)
	if err != nil {
		return err
	}
	defer closeStore()

	item, err := orch.Reject(cmd.Context(), args[0], actorFlag(cmd), reason)
	if err != nil {
		return err
	}
	printItem(os.Stdout, item)
	return nil
}

func runAbort(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one item id")
	}

	orch, closeStore, err := buildOrchestrator(os.Stdout)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := orch.Abort(cmd.Context(), args[0], actorFlag(cmd)); err != nil {
		return err
	}
	fmt.Printf("Item %s aborted.\n", args[0])
	return nil
}
