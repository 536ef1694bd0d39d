package cli

import (
	"context"
	"fmt"

	"github.com/nebulatools/sleepplan/internal/cli/formatter"
	"github.com/nebulatools/sleepplan/internal/domain"
	"github.com/nebulatools/sleepplan/internal/engine"
	"github.com/spf13/cobra"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate, activate, and inspect sleep plans",
	}

	cmd.AddCommand(
		newPlanGenerateCmd(app),
		newPlanApplyCmd(app),
		newPlanListCmd(app),
		newPlanShowCmd(app),
	)

	return cmd
}

func planTypeFlag(value string) (domain.PlanType, error) {
	t := domain.PlanType(value)
	if !domain.ValidPlanTypes[value] {
		return "", fmt.Errorf("unknown plan type %q (want initial, event_based, or transcript_refinement)", value)
	}
	return t, nil
}

func newPlanGenerateCmd(app *App) *cobra.Command {
	var child, planType, base, transcript string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new draft plan for a child",
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

			req := engine.GenerateRequest{
				ChildID:   childID,
				PlanType:  pt,
				CreatedBy: "cli",
			}
			if base != "" {
				baseID, err := resolvePlanID(ctx, app, childID, base)
				if err != nil {
					return err
				}
				req.BasePlanID = &baseID
			}
			if transcript != "" {
				req.TranscriptID = &transcript
			}

			result, err := app.Engine.GeneratePlan(ctx, req)
			if err != nil {
				if ee := engine.AsEngineError(err); ee != nil {
					fmt.Print(formatter.FormatEngineError(ee))
					return fmt.Errorf("generation failed: %s", ee.Code)
				}
				return err
			}

			fmt.Print(formatter.FormatPlanDetail(result.Plan))
			fmt.Printf("\nGenerated in %dms (%d attempt(s)). Activate with: sleepplan plan apply --child %s --plan %s\n",
				result.InferenceMs, result.Attempts, child, result.Plan.VersionLabel())
			return nil
		},
	}

	cmd.Flags().StringVar(&child, "child", "", "Child ID or name")
	cmd.Flags().StringVar(&planType, "type", "initial", "Plan type (initial, event_based, transcript_refinement)")
	cmd.Flags().StringVar(&base, "base", "", "Base plan (ID or version label) for progressions and refinements")
	cmd.Flags().StringVar(&transcript, "transcript", "", "Transcript ID for refinements")
	_ = cmd.MarkFlagRequired("child")

	return cmd
}

func newPlanApplyCmd(app *App) *cobra.Command {
	var child, plan string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Activate a plan, superseding the rest",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			childID, err := resolveChildID(ctx, app, child)
			if err != nil {
				return err
			}
			planID, err := resolvePlanID(ctx, app, childID, plan)
			if err != nil {
				return err
			}

			if err := app.Engine.ApplyPlan(ctx, childID, planID); err != nil {
				return err
			}

			activated, err := app.Plans.GetByID(ctx, planID)
			if err != nil {
				return err
			}
			fmt.Printf("%s is now the active plan\n", activated.VersionLabel())
			return nil
		},
	}

	cmd.Flags().StringVar(&child, "child", "", "Child ID or name")
	cmd.Flags().StringVar(&plan, "plan", "", "Plan ID or version label (e.g. 2 or 2.3)")
	_ = cmd.MarkFlagRequired("child")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func newPlanListCmd(app *App) *cobra.Command {
	var child string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a child's plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			childID, err := resolveChildID(ctx, app, child)
			if err != nil {
				return err
			}
			plans, err := app.Plans.ListByChild(ctx, childID)
			if err != nil {
				return err
			}
			fmt.Print(formatter.FormatPlanList(plans))
			return nil
		},
	}

	cmd.Flags().StringVar(&child, "child", "", "Child ID or name")
	_ = cmd.MarkFlagRequired("child")

	return cmd
}

func newPlanShowCmd(app *App) *cobra.Command {
	var child, plan string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one plan in full",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			childID, err := resolveChildID(ctx, app, child)
			if err != nil {
				return err
			}
			planID, err := resolvePlanID(ctx, app, childID, plan)
			if err != nil {
				return err
			}
			p, err := app.Plans.GetByID(ctx, planID)
			if err != nil {
				return err
			}
			fmt.Print(formatter.FormatPlanDetail(p))
			return nil
		},
	}

	cmd.Flags().StringVar(&child, "child", "", "Child ID or name")
	cmd.Flags().StringVar(&plan, "plan", "", "Plan ID or version label")
	_ = cmd.MarkFlagRequired("child")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}
