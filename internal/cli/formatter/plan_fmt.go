package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nebulatools/sleepplan/internal/domain"
)

// FormatPlanList renders a child's plan history, newest first.
func FormatPlanList(plans []*domain.Plan) string {
	if len(plans) == 0 {
		return Dim("No plans yet.") + "\n"
	}

	headers := []string{"PLAN", "TYPE", "STATUS", "EVENTS", "CREATED", "ID"}
	rows := make([][]string, 0, len(plans))

	for _, p := range plans {
		rows = append(rows, []string{
			Bold(p.VersionLabel()),
			string(p.Type),
			StatusBadge(p.Status),
			fmt.Sprintf("%d", p.Source.EventCount),
			p.CreatedAt.Format("2006-01-02 15:04"),
			Dim(TruncID(p.ID)),
		})
	}

	return RenderTable(headers, rows)
}

// FormatPlanDetail renders one plan in full: identity, source window,
// and the validated output with its recommendations.
func FormatPlanDetail(p *domain.Plan) string {
	var b strings.Builder

	b.WriteString(Header(fmt.Sprintf("%s · %s", p.VersionLabel(), p.Output.Title)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s  %s  %s\n", StatusBadge(p.Status), string(p.Type), Dim(p.ID)))
	b.WriteString("\n")

	b.WriteString(p.Output.Summary)
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Window: %s → %s  (%d events, %d types)\n",
		p.Source.From.Format("2006-01-02"),
		p.Source.To.Format("2006-01-02"),
		p.Source.EventCount,
		p.Source.DistinctTypes))
	if len(p.Source.ByType) > 0 {
		b.WriteString(formatTypeCounts(p.Source.ByType))
	}
	if p.Source.BasePlanID != nil {
		b.WriteString(fmt.Sprintf("Base plan: %s\n", Dim(TruncID(*p.Source.BasePlanID))))
	}
	if p.Source.TranscriptID != nil {
		b.WriteString(fmt.Sprintf("Transcript: %s\n", Dim(TruncID(*p.Source.TranscriptID))))
	}
	b.WriteString("\n")

	b.WriteString(Bold("Recommendations"))
	b.WriteString("\n")
	for _, rec := range p.Output.Recommendations {
		b.WriteString(fmt.Sprintf("  %s %s\n", StyleBlue.Render("•"), Bold(rec.Key)))
		b.WriteString(fmt.Sprintf("    %s\n", rec.Action))
		b.WriteString(fmt.Sprintf("    %s\n", Dim(rec.Rationale)))
	}

	return b.String()
}

func formatTypeCounts(byType map[domain.EventType]int) string {
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s %d", t, byType[domain.EventType(t)]))
	}
	return Dim("  "+strings.Join(parts, " · ")) + "\n"
}

// FormatChildList renders the registered children with age and survey state.
func FormatChildList(children []*domain.Child, now time.Time) string {
	if len(children) == 0 {
		return Dim("No children registered.") + "\n"
	}

	headers := []string{"NAME", "AGE", "SURVEY", "ID"}
	rows := make([][]string, 0, len(children))

	for _, c := range children {
		age := Dim("--")
		if c.Birthdate != nil {
			age = fmt.Sprintf("%dmo", domain.AgeInMonths(*c.Birthdate, now))
		}
		survey := Dim("incomplete")
		if c.SurveyComplete() {
			survey = StyleGreen.Render("complete")
		}
		rows = append(rows, []string{Bold(c.Name), age, survey, Dim(TruncID(c.ID))})
	}

	return RenderTable(headers, rows)
}

// FormatEventList renders events in a window, oldest first.
func FormatEventList(events []*domain.Event) string {
	if len(events) == 0 {
		return Dim("No events in this window.") + "\n"
	}

	headers := []string{"TYPE", "START", "END", "DETAIL"}
	rows := make([][]string, 0, len(events))

	for _, e := range events {
		end := Dim("--")
		if e.EndTime != nil {
			end = e.EndTime.Format("15:04")
		}
		detail := ""
		switch d := e.Detail.(type) {
		case domain.SleepDetail:
			detail = fmt.Sprintf("fell asleep after %dmin", d.DelayMinutes)
		case domain.FeedingDetail:
			detail = fmt.Sprintf("%dml", d.AmountMl)
		}
		rows = append(rows, []string{
			string(e.Type),
			e.StartTime.Format("2006-01-02 15:04"),
			end,
			Dim(detail),
		})
	}

	return RenderTable(headers, rows)
}
