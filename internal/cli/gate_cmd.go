package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/nebulatools/sleepplan/internal/cli/formatter"
	"github.com/nebulatools/sleepplan/internal/domain"
	"github.com/nebulatools/sleepplan/internal/engine"
	"github.com/spf13/cobra"
)

func newGateCmd(app *App) *cobra.Command {
	var child, planType, base, transcript string
	var windowDays int

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Evaluate a generation gate without calling the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			childID, err := resolveChildID(ctx, app, child)
			if err != nil {
				return err
			}
			pt, err := planTypeFlag(planType)
			if err != nil {
				return err
			}

			var result engine.GateResult
			switch pt {
			case domain.PlanInitial:
				window := engine.TrailingWindow(time.Now().UTC(), windowDays)
				result, err = app.Engine.EvaluateInitialGate(ctx, childID, window)
			case domain.PlanEventBased:
				var baseID *string
				if base != "" {
					id, rerr := resolvePlanID(ctx, app, childID, base)
					if rerr != nil {
						return rerr
					}
					baseID = &id
				}
				result, err = app.Engine.EvaluateProgressionGate(ctx, childID, baseID)
			case domain.PlanRefinement:
				if base == "" || transcript == "" {
					return fmt.Errorf("refinement gate requires --base and --transcript")
				}
				baseID, rerr := resolvePlanID(ctx, app, childID, base)
				if rerr != nil {
					return rerr
				}
				result, err = app.Engine.EvaluateRefinementGate(ctx, childID, baseID, transcript)
			}
			if err != nil && result.Reason == "" {
				return err
			}

			fmt.Print(formatter.FormatGateResult(pt, result))
			return nil
		},
	}

	cmd.Flags().StringVar(&child, "child", "", "Child ID or name")
	cmd.Flags().StringVar(&planType, "type", "initial", "Plan type to gate for")
	cmd.Flags().StringVar(&base, "base", "", "Base plan for progressions and refinements")
	cmd.Flags().StringVar(&transcript, "transcript", "", "Transcript ID for refinements")
	cmd.Flags().IntVar(&windowDays, "window-days", 30, "Trailing window length for the initial gate")
	_ = cmd.MarkFlagRequired("child")

	return cmd
}
