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

func newEventCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Log and inspect sleep diary events",
	}

	cmd.AddCommand(
		newEventLogCmd(app),
		newEventListCmd(app),
	)

	return cmd
}

func parseEventTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (want RFC3339 or YYYY-MM-DD [HH:MM])", value)
}

func newEventLogCmd(app *App) *cobra.Command {
	var child, eventType, start, end string
	var sleepDelay, feedingMl int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a diary event for a child",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			childID, err := resolveChildID(ctx, app, child)
			if err != nil {
				return err
			}

			startTime, err := parseEventTime(start)
			if err != nil {
				return err
			}

			e := &domain.Event{
				ID:        uuid.New().String(),
				ChildID:   childID,
				Type:      domain.EventType(eventType),
				StartTime: startTime,
				CreatedAt: time.Now().UTC(),
			}

			if end != "" {
				endTime, err := parseEventTime(end)
				if err != nil {
					return err
				}
				e.EndTime = &endTime
			}
			if cmd.Flags().Changed("sleep-delay") {
				e.Detail = domain.SleepDetail{DelayMinutes: sleepDelay}
			}
			if cmd.Flags().Changed("feeding-ml") {
				e.Detail = domain.FeedingDetail{AmountMl: feedingMl}
			}

			if err := e.Validate(); err != nil {
				return err
			}
			if err := app.Events.Create(ctx, e); err != nil {
				return err
			}

			fmt.Printf("Logged %s event at %s\n", e.Type, e.StartTime.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&child, "child", "", "Child ID or name")
	cmd.Flags().StringVar(&eventType, "type", "", "Event type (sleep, nap, wake, night_waking, feeding, medication, extra_activity)")
	cmd.Flags().StringVar(&start, "start", "", "Start time")
	cmd.Flags().StringVar(&end, "end", "", "End time (optional)")
	cmd.Flags().IntVar(&sleepDelay, "sleep-delay", 0, "Minutes until asleep (sleep events only, 0-180)")
	cmd.Flags().IntVar(&feedingMl, "feeding-ml", 0, "Feeding amount in milliliters (feeding events only)")
	_ = cmd.MarkFlagRequired("child")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func newEventListCmd(app *App) *cobra.Command {
	var child, from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a child's events in a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			childID, err := resolveChildID(ctx, app, child)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			fromTime := now.AddDate(0, 0, -30)
			toTime := now
			if from != "" {
				if fromTime, err = parseEventTime(from); err != nil {
					return err
				}
			}
			if to != "" {
				if toTime, err = parseEventTime(to); err != nil {
					return err
				}
			}

			events, err := app.Events.ListByChild(ctx, childID, fromTime, toTime)
			if err != nil {
				return err
			}
			fmt.Print(formatter.FormatEventList(events))
			return nil
		},
	}

	cmd.Flags().StringVar(&child, "child", "", "Child ID or name")
	cmd.Flags().StringVar(&from, "from", "", "Window start (default 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (default now)")
	_ = cmd.MarkFlagRequired("child")

	return cmd
}
