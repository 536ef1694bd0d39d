package formatter

import (
	"fmt"
	"strings"

	"github.com/nebulatools/sleepplan/internal/domain"
	"github.com/nebulatools/sleepplan/internal/engine"
)

// FormatGateResult renders a gate evaluation: verdict, reason when denied,
// and the aggregated context the decision was made on.
func FormatGateResult(planType domain.PlanType, r engine.GateResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s gate: %s\n", planType, GateBadge(r.OK)))
	if !r.OK && r.Reason != "" {
		b.WriteString(fmt.Sprintf("Reason: %s\n", StyleRed.Render(string(r.Reason))))
	}
	if r.SurveyOnly {
		b.WriteString(Dim("Passed on completed survey alone; event history not required.") + "\n")
	}
	if r.BasePlan != nil {
		b.WriteString(fmt.Sprintf("Base: %s (%s)\n", r.BasePlan.VersionLabel(), Dim(TruncID(r.BasePlan.ID))))
	}

	if ctx := r.Context; ctx != nil {
		b.WriteString(fmt.Sprintf("Window: %s → %s\n",
			ctx.Window.From.Format("2006-01-02 15:04"),
			ctx.Window.To.Format("2006-01-02 15:04")))
		b.WriteString(fmt.Sprintf("Events: %d (need %d)   Distinct types: %d (need %d)\n",
			ctx.EventCount, r.MinEvents, ctx.DistinctTypes, r.MinDistinctTypes))
		if ctx.AgeInMonths != nil {
			b.WriteString(fmt.Sprintf("Age: %d months\n", *ctx.AgeInMonths))
		} else {
			b.WriteString(Dim("Age: unknown (no birthdate on record)") + "\n")
		}
		if len(ctx.TypeCounts) > 0 {
			b.WriteString(formatTypeCounts(ctx.TypeCounts))
		}
	}

	return b.String()
}

// FormatEngineError renders a typed generation failure with its context
// when the gate produced one.
func FormatEngineError(e *engine.Error) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s %s\n", StyleRed.Render("✗"), e.Message))
	b.WriteString(fmt.Sprintf("Code: %s\n", StyleRed.Render(string(e.Code))))
	if e.Attempts > 0 {
		b.WriteString(fmt.Sprintf("Attempts: %d\n", e.Attempts))
	}
	if ctx := e.Context; ctx != nil {
		b.WriteString(fmt.Sprintf("Context: %d events, %d distinct types in %s → %s\n",
			ctx.EventCount, ctx.DistinctTypes,
			ctx.Window.From.Format("2006-01-02"),
			ctx.Window.To.Format("2006-01-02")))
	}

	return b.String()
}
