package engine

import (
	"fmt"

	"github.com/nebulatools/sleepplan/internal/domain"
	"github.com/nebulatools/sleepplan/internal/llm"
)

// ValidatePlanOutput parses raw model text into a PlanOutput and checks it
// against the fixed schema. Nothing past this boundary sees unvalidated
// model output. A nil error means the value is safe to persist.
func ValidatePlanOutput(raw string, want domain.PlanType) (*domain.PlanOutput, error) {
	out, err := llm.ExtractJSON[domain.PlanOutput](raw, planOutputValidator(want))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// planOutputValidator returns the schema check for a requested plan type.
func planOutputValidator(want domain.PlanType) llm.SchemaValidator[domain.PlanOutput] {
	return func(out domain.PlanOutput) error {
		if out.PlanType != string(want) {
			return fmt.Errorf("planType is %q, expected %q", out.PlanType, want)
		}
		if out.Title == "" {
			return fmt.Errorf("title is required")
		}
		if out.Summary == "" {
			return fmt.Errorf("summary is required")
		}
		if out.Window.From.IsZero() || out.Window.To.IsZero() {
			return fmt.Errorf("window from/to are required")
		}
		if !out.Window.To.After(out.Window.From) && !out.Window.To.Equal(out.Window.From) {
			return fmt.Errorf("window to must not precede from")
		}
		if out.Metrics.EventCount < 0 || out.Metrics.DistinctTypes < 0 {
			return fmt.Errorf("metrics must not be negative")
		}
		sum := 0
		for t, n := range out.Metrics.ByType {
			if n < 0 {
				return fmt.Errorf("byType count for %q must not be negative", t)
			}
			sum += n
		}
		if len(out.Metrics.ByType) > 0 && sum != out.Metrics.EventCount {
			return fmt.Errorf("byType counts sum to %d, eventCount says %d", sum, out.Metrics.EventCount)
		}
		if len(out.Recommendations) == 0 {
			return fmt.Errorf("at least one recommendation is required")
		}
		for i, rec := range out.Recommendations {
			if rec.Key == "" || rec.Action == "" || rec.Rationale == "" {
				return fmt.Errorf("recommendation %d is missing key, action, or rationale", i)
			}
		}
		return nil
	}
}
