package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nebulatools/sleepplan/internal/domain"
)

// planSystemPrompt instructs the model to produce a structured sleep plan.
const planSystemPrompt = `You are a pediatric sleep consultant generating a personalized sleep plan for a child.
You will receive the child's aggregated behavioral context: event counts over a time window, age in months, and survey status.

You must output ONLY a JSON object with these exact fields:
- planType: the requested plan type, echoed back verbatim
- title: short plan title
- summary: 2-4 sentence overview of the plan
- window: { from: RFC3339 timestamp, to: RFC3339 timestamp } echoing the context window
- metrics: { eventCount: number, distinctTypes: number, byType: object of type->count, ageInMonths?: number } echoing the context metrics
- recommendations: array of at least 3 objects, each with:
  - key: short machine identifier (e.g. "bedtime_routine")
  - action: concrete instruction for the caregivers
  - rationale: why this helps, grounded in the provided metrics

CRITICAL RULES:
1. Echo window and metrics exactly as given; do not invent numbers
2. Recommendations must be age-appropriate for the stated age in months
3. Output ONLY the JSON object, no markdown, no explanation`

// buildPlanPrompt renders the user prompt for a generation call.
func buildPlanPrompt(planType domain.PlanType, pctx *PlanContext, base *domain.Plan, transcriptID *string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Requested plan type: %s\n", planType)
	fmt.Fprintf(&b, "Context window: %s to %s\n",
		pctx.Window.From.Format(time.RFC3339), pctx.Window.To.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total events: %d across %d distinct types\n", pctx.EventCount, pctx.DistinctTypes)

	if len(pctx.TypeCounts) > 0 {
		types := make([]string, 0, len(pctx.TypeCounts))
		for t := range pctx.TypeCounts {
			types = append(types, string(t))
		}
		sort.Strings(types)
		b.WriteString("Events by type:\n")
		for _, t := range types {
			fmt.Fprintf(&b, "  %s: %d\n", t, pctx.TypeCounts[domain.EventType(t)])
		}
	}

	if pctx.AgeInMonths != nil {
		fmt.Fprintf(&b, "Child age: %d months\n", *pctx.AgeInMonths)
	}
	if pctx.SurveyComplete {
		b.WriteString("Intake survey: complete\n")
	}

	if base != nil {
		fmt.Fprintf(&b, "\nThis plan builds on %s (created %s). Its summary:\n%s\n",
			base.VersionLabel(), base.CreatedAt.Format(time.RFC3339), base.Output.Summary)
	}
	if transcriptID != nil {
		fmt.Fprintf(&b, "\nA consultation transcript (%s) postdates the base plan; refine the plan accordingly.\n", *transcriptID)
	}

	b.WriteString("\nGenerate the sleep plan JSON now.")
	return b.String()
}
