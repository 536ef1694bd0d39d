package engine

import (
	"time"

	"github.com/nebulatools/sleepplan/internal/domain"
)

// GateResult is the outcome of an eligibility evaluation. When OK is false,
// Reason holds the first failing condition and Context carries the counts
// the decision was made on, so callers can render a precise message
// ("7 of 10 required events in the last 30 days").
type GateResult struct {
	OK      bool
	Reason  Code
	Context *PlanContext

	// Thresholds the context was judged against.
	MinEvents        int
	MinDistinctTypes int

	// SurveyOnly is true when the initial gate passed purely on a complete
	// survey, with no event history requirement.
	SurveyOnly bool

	// BasePlan is the resolved base plan for progression and refinement
	// evaluations.
	BasePlan *domain.Plan

	// TranscriptAt is the resolved transcript timestamp for refinements.
	TranscriptAt *time.Time
}

func gatePass(pctx *PlanContext, cfg Config) GateResult {
	return GateResult{OK: true, Context: pctx, MinEvents: cfg.MinEvents, MinDistinctTypes: cfg.MinDistinctTypes}
}

func gateFail(pctx *PlanContext, cfg Config, reason Code) GateResult {
	return GateResult{OK: false, Reason: reason, Context: pctx, MinEvents: cfg.MinEvents, MinDistinctTypes: cfg.MinDistinctTypes}
}

// evaluateSanity applies the three-condition data sufficiency check in its
// fixed order: event volume, then type variety, then age. The first failing
// condition determines the reason.
func evaluateSanity(pctx *PlanContext, cfg Config) (Code, bool) {
	if pctx.EventCount < cfg.MinEvents {
		return CodeNotEnoughEvents, false
	}
	if pctx.DistinctTypes < cfg.MinDistinctTypes {
		return CodeNotEnoughDistinctTypes, false
	}
	if pctx.AgeInMonths == nil || *pctx.AgeInMonths < 0 {
		return CodeInvalidAge, false
	}
	return "", true
}

// EvaluateInitialGate decides whether a child is eligible for an initial
// plan given the aggregated context. A complete survey passes unconditionally
// when the survey-only override is enabled; otherwise the sanity check
// applies. Pure: no I/O, deterministic for a given context and config.
func EvaluateInitialGate(pctx *PlanContext, cfg Config) GateResult {
	if pctx.SurveyComplete && cfg.AllowSurveyOnly {
		res := gatePass(pctx, cfg)
		res.SurveyOnly = true
		return res
	}
	if reason, ok := evaluateSanity(pctx, cfg); !ok {
		return gateFail(pctx, cfg, reason)
	}
	return gatePass(pctx, cfg)
}

// evaluateProgression decides eligibility for an event-based plan given the
// already-resolved base plan and a context recomputed over
// [base.CreatedAt, now]. There must be at least one new event since the
// base plan, and the sanity check must hold over that window.
func evaluateProgression(pctx *PlanContext, base *domain.Plan, cfg Config) GateResult {
	if pctx.EventCount == 0 {
		res := gateFail(pctx, cfg, CodeNoNewEvents)
		res.BasePlan = base
		return res
	}
	if reason, ok := evaluateSanity(pctx, cfg); !ok {
		res := gateFail(pctx, cfg, reason)
		res.BasePlan = base
		return res
	}
	res := gatePass(pctx, cfg)
	res.BasePlan = base
	return res
}

// evaluateRefinement decides eligibility for a transcript refinement. The
// transcript must postdate the base plan strictly. The sanity check is
// skipped unless configured on: a consultation happened, which is signal
// enough regardless of event volume.
func evaluateRefinement(pctx *PlanContext, base *domain.Plan, transcriptAt time.Time, cfg Config) GateResult {
	if !transcriptAt.After(base.CreatedAt) {
		res := gateFail(pctx, cfg, CodeTranscriptNotAfterBase)
		res.BasePlan = base
		res.TranscriptAt = &transcriptAt
		return res
	}
	if cfg.SanityGateRefinements {
		if reason, ok := evaluateSanity(pctx, cfg); !ok {
			res := gateFail(pctx, cfg, reason)
			res.BasePlan = base
			res.TranscriptAt = &transcriptAt
			return res
		}
	}
	res := gatePass(pctx, cfg)
	res.BasePlan = base
	res.TranscriptAt = &transcriptAt
	return res
}
