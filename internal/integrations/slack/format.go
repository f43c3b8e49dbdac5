package slackbot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tasklens/internal/domain"
)

// parseTaskText splits slash command text into a title (first line) and an
// optional description (the remaining lines).
func parseTaskText(text string) (string, string) {
	text = strings.TrimSpace(text)
	title, description, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(title), strings.TrimSpace(description)
}

// parseDoneArg reads the 1-based task number given to /done.
func parseDoneArg(text string, open int) (int, error) {
	if open == 0 {
		return 0, errors.New("No open tasks to complete.")
	}
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "#"))
	if text == "" && open == 1 {
		return 1, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > open {
		return 0, fmt.Errorf("Usage: `/done <number>` where number is between 1 and %d (see `/tasks`).", open)
	}
	return n, nil
}

func formatTaskLine(n int, t domain.Task) string {
	line := fmt.Sprintf("%d. %s", n, t.Title)
	if t.Description != "" {
		line += fmt.Sprintf(" _%s_", t.Description)
	}
	return line
}

// latestPeriod keeps the insights generated for the period starting at start,
// or all of them when none match.
func latestPeriod(list []domain.Insight, start time.Time) []domain.Insight {
	var out []domain.Insight
	for _, in := range list {
		if in.PeriodStart.Equal(start) {
			out = append(out, in)
		}
	}
	if len(out) == 0 {
		return list
	}
	return out
}

func formatStats(allTime, recent domain.ClassificationStats) string {
	var sb strings.Builder
	sb.WriteString("*Tagging Dashboard*\n\n")

	sb.WriteString("*All-time Overview*\n")
	writeOverview(&sb, allTime)

	sb.WriteString("\n*Last 4 Weeks*\n")
	writeOverview(&sb, recent)

	sb.WriteString("\n*Confidence Distribution (last 4 weeks)*\n")
	sb.WriteString(fmt.Sprintf("- <50%%: %d\n", recent.BucketBelow50))
	sb.WriteString(fmt.Sprintf("- 50-70%%: %d\n", recent.Bucket50to70))
	sb.WriteString(fmt.Sprintf("- 70-90%%: %d\n", recent.Bucket70to90))
	sb.WriteString(fmt.Sprintf("- 90%%+: %d\n", recent.Bucket90Plus))

	if len(recent.ByActionDomain) > 0 {
		sb.WriteString("\n*Action Domains (last 4 weeks)*\n")
		for _, c := range recent.ByActionDomain {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", c.Category.Label(), c.Count))
		}
	}
	return sb.String()
}

func writeOverview(sb *strings.Builder, s domain.ClassificationStats) {
	sb.WriteString(fmt.Sprintf("- Tagged: %d\n", s.TotalClassifications))
	sb.WriteString(fmt.Sprintf("- Keyword fallbacks: %d\n", s.FallbackCount))
	if s.TotalClassifications > 0 {
		sb.WriteString(fmt.Sprintf("- Avg confidence: %.2f\n", s.AvgConfidence))
	}
}

func helpLines(isManager bool) []string {
	lines := []string{
		"*Tasklens Commands*",
		"",
		"`/task <what you want to do>` - Log a task. Add details on the next line (Shift+Enter).",
		"`/tasks` - List your open tasks.",
		"`/done <number>` - Complete a task from `/tasks`.",
		"`/insights` - Reflect on this week's patterns.",
		"`/help` - Show this help.",
	}
	if isManager {
		lines = append(lines,
			"",
			"*Manager Commands*",
			"",
			"`/tag-stats` - Show the tagging dashboard.",
		)
	}
	return lines
}
