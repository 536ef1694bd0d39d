package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nebulatools/sleepplan/internal/domain"
	"github.com/spf13/cobra"
)

func newTranscriptCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Manage consultation transcripts",
	}

	cmd.AddCommand(newTranscriptAddCmd(app))

	return cmd
}

func newTranscriptAddCmd(app *App) *cobra.Command {
	var child, provider, summary string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a consultation transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			childID, err := resolveChildID(ctx, app, child)
			if err != nil {
				return err
			}

			tr := &domain.Transcript{
				ID:        uuid.New().String(),
				ChildID:   childID,
				Provider:  provider,
				Summary:   summary,
				CreatedAt: time.Now().UTC(),
			}
			if err := app.Transcripts.Create(ctx, tr); err != nil {
				return err
			}

			fmt.Printf("Registered transcript %s\n", tr.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&child, "child", "", "Child ID or name")
	cmd.Flags().StringVar(&provider, "provider", "manual", "Transcript source (e.g. zoom, manual)")
	cmd.Flags().StringVar(&summary, "summary", "", "Consultation summary")
	_ = cmd.MarkFlagRequired("child")

	return cmd
}
