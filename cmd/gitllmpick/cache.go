package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/awslabs/Git-llm-pick/pkg/llmclient"
	"github.com/awslabs/Git-llm-pick/pkg/report"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the LLM response cache",
	}
	cmd.AddCommand(newCacheInspectCmd())
	cmd.AddCommand(newCachePruneCmd())
	return cmd
}

func newCacheInspectCmd() *cobra.Command {
	var cachePath, outputFormat string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := llmclient.NewCache(cachePath)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			entries, err := cache.List()
			if err != nil {
				return fmt.Errorf("listing cache entries: %w", err)
			}
			return report.WriteCacheEntries(os.Stdout, entries, report.Format(outputFormat))
		},
	}
	cmd.Flags().StringVar(&cachePath, "cache-path", ".gitllmpick/cache", "directory of the LLM response cache")
	cmd.Flags().StringVar(&outputFormat, "output", "table", "table|json|yaml")
	return cmd
}

func newCachePruneCmd() *cobra.Command {
	var cachePath string
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cache entries older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := llmclient.NewCache(cachePath)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			removed, err := cache.Prune(olderThan)
			if err != nil {
				return fmt.Errorf("pruning cache: %w", err)
			}
			fmt.Fprintf(os.Stdout, "removed %d cache entr%s\n", len(removed), plural(len(removed)))
			return nil
		},
	}
	cmd.Flags().StringVar(&cachePath, "cache-path", ".gitllmpick/cache", "directory of the LLM response cache")
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age threshold for pruning")
	return cmd
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
