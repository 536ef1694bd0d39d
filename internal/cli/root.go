package cli

import (
	"github.com/nebulatools/sleepplan/internal/engine"
	"github.com/nebulatools/sleepplan/internal/repository"
	"github.com/spf13/cobra"
)

// App holds the repositories and the engine used by CLI commands.
type App struct {
	Children    repository.ChildRepo
	Events      repository.EventRepo
	Plans       repository.PlanRepo
	Transcripts repository.TranscriptRepo
	Engine      *engine.Engine
}

// NewRootCmd creates the top-level "sleepplan" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "sleepplan",
		Short: "Sleep plan generation and versioning engine",
	}

	root.AddCommand(
		newChildCmd(app),
		newEventCmd(app),
		newPlanCmd(app),
		newTranscriptCmd(app),
		newGateCmd(app),
	)

	return root
}
