package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nebulatools/sleepplan/internal/cli/formatter"
	"github.com/nebulatools/sleepplan/internal/domain"
	"github.com/spf13/cobra"
)

func newChildCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "child",
		Short: "Manage children",
	}

	cmd.AddCommand(
		newChildAddCmd(app),
		newChildListCmd(app),
	)

	return cmd
}

func newChildAddCmd(app *App) *cobra.Command {
	var name, birthdate string
	var surveyDone bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new child",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			c := &domain.Child{
				ID:        uuid.New().String(),
				Name:      name,
				CreatedAt: now,
				UpdatedAt: now,
			}

			if birthdate != "" {
				bd, err := time.Parse("2006-01-02", birthdate)
				if err != nil {
					return fmt.Errorf("invalid birthdate %q: %w", birthdate, err)
				}
				c.Birthdate = &bd
			}
			if surveyDone {
				c.Survey = &domain.SurveyData{Completed: true}
			}

			if err := app.Children.Create(context.Background(), c); err != nil {
				return err
			}

			fmt.Printf("Created child %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Child's name")
	cmd.Flags().StringVar(&birthdate, "birthdate", "", "Birthdate (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&surveyDone, "survey-complete", false, "Mark the onboarding survey as completed")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newChildListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List children",
		RunE: func(cmd *cobra.Command, args []string) error {
			children, err := app.Children.List(context.Background())
			if err != nil {
				return err
			}
			fmt.Print(formatter.FormatChildList(children, time.Now().UTC()))
			return nil
		},
	}
}
