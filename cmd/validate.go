package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/source"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check snapshot files for malformed records",
	Long: "With no arguments, check every household under the data directory. " +
		"Otherwise check the given .jsonl snapshot files or .json snapshot documents.",
	RunE: runValidate,
}

var scoreCmd = &cobra.Command{
	Use:   "score <file>",
	Short: "Score a single snapshot file without touching the data directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runScoreFile,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(scoreCmd)
}

// problem is one rejected file or household.
type problem struct {
	Target string `json:"target"`
	Error  string `json:"error"`
}

func runValidate(_ *cobra.Command, args []string) error {
	var problems []problem
	checked := 0

	if len(args) > 0 {
		for _, path := range args {
			checked++
			if _, err := readSnapshotFile(path); err != nil {
				problems = append(problems, problem{Target: path, Error: err.Error()})
			}
		}
	} else {
		run, err := scoreHouseholds()
		if err != nil {
			return err
		}
		checked = run.load.HouseholdCount
		for _, fe := range run.load.Errors {
			problems = append(problems, problem{Target: fe.Path, Error: fe.Err.Error()})
		}
		for _, f := range run.score.Failures {
			problems = append(problems, problem{Target: "household " + f.HouseholdID, Error: f.Err.Error()})
		}
	}

	if flagJSON {
		if problems == nil {
			problems = []problem{}
		}
		if err := printJSON(problems); err != nil {
			return err
		}
	} else {
		fmt.Println()
		if len(problems) == 0 {
			fmt.Printf("  %d checked, all valid\n\n", checked)
			return nil
		}
		for _, p := range problems {
			fmt.Printf("  %s %s\n      %s\n", cli.RenderSeverity(model.SeverityCritical), p.Target, cli.Muted(p.Error))
		}
		fmt.Println()
	}

	if len(problems) > 0 {
		return fmt.Errorf("%d of %d invalid", len(problems), checked)
	}
	return nil
}

func runScoreFile(_ *cobra.Command, args []string) error {
	opts, err := scoringOptions()
	if err != nil {
		return err
	}
	snap, err := readSnapshotFile(args[0])
	if err != nil {
		return err
	}
	r, err := health.Compute(snap, opts)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(r)
	}
	printHouseholdReport(r)
	return nil
}

// readSnapshotFile parses a .jsonl record file or a .json snapshot document
// and validates every record in it.
func readSnapshotFile(path string) (model.Snapshot, error) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var snap model.Snapshot
	if filepath.Ext(path) == ".jsonl" {
		pr := source.ParseFile(source.DiscoveredFile{Path: path, HouseholdID: id})
		if pr.Err != nil {
			return snap, pr.Err
		}
		snap = pr.Part
	} else {
		f, err := os.Open(path)
		if err != nil {
			return snap, err
		}
		defer func() { _ = f.Close() }()
		snap, err = source.ParseSnapshotJSON(f)
		if err != nil {
			return snap, fmt.Errorf("%s: %w", path, err)
		}
		if snap.HouseholdID == "" {
			snap.HouseholdID = id
		}
	}

	if err := health.Validate(snap); err != nil {
		return snap, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
