package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"concierge/internal/briefing"
)

var (
	cardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("223"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	lateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// renderBriefing lays the briefing out as a bordered terminal card.
func renderBriefing(b briefing.Briefing, loc *time.Location) string {
	var lines []string
	lines = append(lines,
		titleStyle.Render(fmt.Sprintf("%s, %s", b.Greeting, b.FirstName)),
		labelStyle.Render(b.Date),
		"",
	)

	row := func(label, value string) {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-10s", label))+" "+value)
	}

	if b.NextEvent != nil {
		row("Next", fmt.Sprintf("%s at %s", b.NextEvent.Title, b.NextEvent.Start.In(loc).Format("Mon 15:04")))
		if b.LeaveInMinutes != nil {
			if b.Late {
				row("Leave", lateStyle.Render("now"))
			} else {
				row("Leave", fmt.Sprintf("in %d min", *b.LeaveInMinutes))
			}
		}
	} else {
		row("Next", "nothing scheduled")
	}
	if b.NextSegment != nil {
		row("Travel", fmt.Sprintf("%s: %s, %s", b.NextSegment.TripTitle, b.NextSegment.Segment.Detail,
			b.NextSegment.Start.In(loc).Format("Mon 2 Jan 15:04")))
	}
	row("Decisions", fmt.Sprintf("%d pending", b.PendingDecisions))
	row("Alerts", fmt.Sprintf("%d unresolved", b.UnresolvedAlerts))
	row("Spend", fmt.Sprintf("%.2f this month", b.MTDDiscretionary))

	if len(b.OpenRequests) > 0 {
		lines = append(lines, "", titleStyle.Render("Open requests"))
		for _, r := range b.OpenRequests {
			lines = append(lines, fmt.Sprintf("  %s (%s, %s)", r.Title, r.Status, r.Priority))
		}
	}
	if len(b.Today) > 0 {
		lines = append(lines, "", titleStyle.Render("Today"))
		for _, o := range b.Today {
			lines = append(lines, fmt.Sprintf("  %s %s", o.Start.In(loc).Format("15:04"), o.Title))
		}
	}

	return cardStyle.Render(strings.Join(lines, "\n"))
}
