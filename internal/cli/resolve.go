package cli

import (
	"context"
	"fmt"
	"strings"
)

// resolveChildID matches the input against known children by exact ID,
// ID prefix, or case-insensitive name.
func resolveChildID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("child ID is required")
	}

	children, err := app.Children.List(ctx)
	if err != nil {
		return "", err
	}

	for _, c := range children {
		if c.ID == input {
			return c.ID, nil
		}
	}

	for _, c := range children {
		if strings.EqualFold(c.Name, input) {
			return c.ID, nil
		}
	}

	var matches []string
	for _, c := range children {
		if strings.HasPrefix(c.ID, input) {
			matches = append(matches, c.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("child not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("child ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolvePlanID matches the input against the child's plans by exact ID,
// ID prefix, or version label such as "2" or "2.3".
func resolvePlanID(ctx context.Context, app *App, childID, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("plan ID is required")
	}

	plans, err := app.Plans.ListByChild(ctx, childID)
	if err != nil {
		return "", err
	}

	for _, p := range plans {
		if p.ID == input {
			return p.ID, nil
		}
	}

	// "2" or "2.3" selects by numbering.
	var number, version int
	if n, err := fmt.Sscanf(input, "%d.%d", &number, &version); err == nil && n == 2 {
		for _, p := range plans {
			if p.PlanNumber == number && p.PlanVersion == version {
				return p.ID, nil
			}
		}
	} else if n, err := fmt.Sscanf(input, "%d", &number); err == nil && n == 1 && !strings.Contains(input, ".") {
		for _, p := range plans {
			if p.PlanNumber == number && p.PlanVersion == 0 {
				return p.ID, nil
			}
		}
	}

	var matches []string
	for _, p := range plans {
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("plan not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("plan ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}
