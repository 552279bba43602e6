// Package main provides the entry point for the AutoTrace application.
package main

import (
	"fmt"
	"log"
	"os"

	"autotrace/internal/app"
	"autotrace/internal/features"
	"autotrace/internal/version"
	"autotrace/ui/mainwindow"
	"autotrace/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
)

const appTitle = "AutoTrace"

var rootCmd = &cobra.Command{
	Use:   "autotrace [project]",
	Short: "Digitize features by tracing the boundaries of existing ones",
	Long: `AutoTrace is a vector editor for digitizing lines and polygons. Holding the
trace modifier while moving between two snapped vertices of the same feature
copies the boundary between them into the new feature.

Without a subcommand the editor window opens, loading the given project or
the last project used.`,
	Version: version.Version,
	Args:    cobra.MaximumNArgs(1),
	Run:     runGUI,
}

func runGUI(cmd *cobra.Command, args []string) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	appPrefs := prefs.Load()

	fyneApp := fyneapp.NewWithID("org.autotrace.editor")
	fyneApp.Settings().SetTheme(&app.AutoTraceTheme{})

	// The window is created after the state, so the decider resolves it late.
	var win *mainwindow.MainWindow
	decider := features.DeciderFunc(func(problems []features.Problem, done func(keep bool)) {
		if win == nil {
			done(false)
			return
		}
		win.Confirm(problems, done)
	})

	appState := app.NewState(appPrefs.TolerancePx(), decider, log.Default())
	win = mainwindow.New(fyneApp, appState, appPrefs)

	projectPath := appPrefs.String(prefs.KeyLastProject)
	if len(args) > 0 {
		projectPath = args[0]
	}
	if projectPath != "" {
		if err := appState.LoadProject(projectPath); err != nil {
			log.Printf("Failed to load project %s: %v", projectPath, err)
		}
	}

	win.ShowAndRun()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
