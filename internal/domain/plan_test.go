package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlan_VersionLabel(t *testing.T) {
	assert.Equal(t, "Plan 0", (&Plan{PlanNumber: 0, PlanVersion: 0}).VersionLabel())
	assert.Equal(t, "Plan 2", (&Plan{PlanNumber: 2, PlanVersion: 0}).VersionLabel())
	assert.Equal(t, "Plan 2.3", (&Plan{PlanNumber: 2, PlanVersion: 3}).VersionLabel())
}

func TestPlan_Validate_Numbering(t *testing.T) {
	baseID := "base-1"

	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{"initial at 0.0", Plan{Type: PlanInitial}, false},
		{"initial with nonzero number", Plan{Type: PlanInitial, PlanNumber: 1}, true},
		{"initial with nonzero version", Plan{Type: PlanInitial, PlanVersion: 1}, true},
		{"event_based at 1.0", Plan{Type: PlanEventBased, PlanNumber: 1}, false},
		{"event_based at 0", Plan{Type: PlanEventBased, PlanNumber: 0}, true},
		{"event_based with version", Plan{Type: PlanEventBased, PlanNumber: 2, PlanVersion: 1}, true},
		{"refinement at 2.1 with base", Plan{Type: PlanRefinement, PlanNumber: 2, PlanVersion: 1, Source: SourceData{BasePlanID: &baseID}}, false},
		{"refinement at version 0", Plan{Type: PlanRefinement, PlanNumber: 2, Source: SourceData{BasePlanID: &baseID}}, true},
		{"refinement without base", Plan{Type: PlanRefinement, PlanNumber: 2, PlanVersion: 1}, true},
		{"refinement of initial at 0.1", Plan{Type: PlanRefinement, PlanNumber: 0, PlanVersion: 1, Source: SourceData{BasePlanID: &baseID}}, false},
		{"negative number", Plan{Type: PlanEventBased, PlanNumber: -1}, true},
		{"unknown type", Plan{Type: "weekly"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlanStatus_Terminal(t *testing.T) {
	assert.False(t, PlanDraft.Terminal())
	assert.False(t, PlanActive.Terminal())
	assert.True(t, PlanSuperseded.Terminal())
}
