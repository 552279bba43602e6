package main

import (
	"fmt"
	"log"
	"os"

	"autotrace/internal/app"
	"autotrace/internal/features"
	"autotrace/internal/replay"

	"github.com/spf13/cobra"
)

var (
	replayLayer       string
	replayKeepInvalid bool
	replayDryRun      bool
	replayTolerance   float64
)

var replayCmd = &cobra.Command{
	Use:   "replay [project] [script]",
	Short: "Run a recorded input script against a project",
	Long: `Replay feeds a JSON script of pointer and key events to the trace tool
without opening a window. Each finished trace is added to the edit layer and
printed as WKT; the project is saved afterwards unless --dry-run is given.

A script is an array of steps such as
  {"kind": "move", "x": 120, "y": 40, "mods": ["trace"]}
with kinds move, click, rclick, modifier_down, modifier_up, reverse_down,
reverse_up, backspace and cancel. A move without "mods" keeps the modifiers
held by earlier modifier_down and reverse_down steps. Coordinates are screen
pixels of the view stored in the project.`,
	Args: cobra.ExactArgs(2),
	Run:  runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayLayer, "layer", "", "Edit layer id (default: the project's active layer)")
	replayCmd.Flags().BoolVar(&replayKeepInvalid, "keep-invalid", false, "Keep traces that fail validation")
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "Do not save the project")
	replayCmd.Flags().Float64Var(&replayTolerance, "tolerance", 0, "Snap tolerance in pixels (default: 12)")
}

func runReplay(cmd *cobra.Command, args []string) {
	projectPath, scriptPath := args[0], args[1]

	state := app.NewState(replayTolerance, features.Always(replayKeepInvalid), log.Default())
	if err := state.LoadProject(projectPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading project: %v\n", err)
		os.Exit(1)
	}
	if replayLayer != "" {
		if err := state.SetActiveLayer(replayLayer); err != nil {
			fmt.Fprintf(os.Stderr, "Error selecting layer: %v\n", err)
			os.Exit(1)
		}
	}

	events, err := replay.Load(scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading script: %v\n", err)
		os.Exit(1)
	}

	res, err := replay.Run(state, events)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	layerID := state.ActiveLayer()
	fmt.Printf("Events: %d\n", res.Events)
	fmt.Printf("Features added to %s: %d\n", layerID, len(res.Finished))
	if layer, err := state.Store.Layer(layerID); err == nil {
		for _, id := range res.Finished {
			if f, err := layer.Feature(id); err == nil {
				fmt.Printf("  %s\n", f)
			}
		}
	}
	for _, e := range res.Errors {
		fmt.Printf("Warning: %v\n", e)
	}

	if replayDryRun {
		return
	}
	if err := state.SaveProject(""); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving project: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved %s\n", projectPath)
}
