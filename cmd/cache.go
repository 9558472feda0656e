package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/pipeline"
	"github.com/theirongolddev/cashpulse/internal/store"
)

var flagCachePrune int

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show or maintain the SQLite parse and score cache",
	RunE:  runCache,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cache database",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.Flags().IntVar(&flagCachePrune, "prune", 0, "Keep only the N most recent cached scores")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCache(_ *cobra.Command, _ []string) error {
	path := pipeline.CachePath()
	cache, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer func() { _ = cache.Close() }()

	version, err := cache.SchemaVersion()
	if err != nil {
		return err
	}
	households, err := cache.HouseholdCount()
	if err != nil {
		return err
	}
	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		return err
	}

	fmt.Printf("  Cache file:     %s\n", path)
	fmt.Printf("  Schema version: %d\n", version)
	fmt.Printf("  Households:     %d (%d files)\n", households, len(tracked))

	if flagCachePrune > 0 {
		n, err := cache.PruneResults(flagCachePrune)
		if err != nil {
			return fmt.Errorf("pruning scores: %w", err)
		}
		fmt.Printf("  Pruned %d cached scores\n", n)
	}
	return nil
}

func runCacheClear(_ *cobra.Command, _ []string) error {
	path := pipeline.CachePath()
	removed := 0
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		err := os.Remove(p)
		if err == nil {
			removed++
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	if removed == 0 {
		fmt.Println("  No cache to clear")
		return nil
	}
	fmt.Printf("  Removed %s\n", path)
	return nil
}
