package insights

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"
	"time"

	"tasklens/internal/domain"
)

const (
	highCompletionRate = 0.8
	lowCompletionRate  = 0.5
	heavyTasksPerDay   = 10
	lightTasksPerDay   = 3
)

var energyAdvice = map[domain.EnergyType]string{
	domain.DeepFocus:        "Schedule these during your peak concentration hours.",
	domain.LightActivity:    "These are great for filling gaps between meetings.",
	domain.SocialEnergy:     "Make sure you're balancing this with solo recharge time.",
	domain.CreativeFlow:     "Protect uninterrupted blocks for these activities.",
	domain.RoutineExecution: "Consider batching these together for efficiency.",
	domain.PhysicalActivity: "You're staying active—keep it up!",
}

var timeWeightAdvice = map[domain.TimeWeight]string{
	domain.QuickWin:          "Good for momentum when you need a boost.",
	domain.ModerateEffort:    "This is a sustainable pace.",
	domain.DeepWork:          "Make sure you're protecting focus time.",
	domain.OngoingCommitment: "Track progress in small milestones.",
	domain.WaitingOnOthers:   "Consider what you can do while waiting.",
}

// Sentences yields the observations for an analysis in a fixed order. Each
// sentence is produced only when its own condition holds, so the sequence
// holds between zero and six items. An analysis with nothing observed yields
// nothing.
func Sentences(a domain.PatternAnalysis) iter.Seq[string] {
	return func(yield func(string) bool) {
		if isEmpty(a) {
			return
		}
		for _, gen := range generators {
			s, ok := gen(a)
			if !ok {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// GenerateInsights collects Sentences into a slice.
func GenerateInsights(a domain.PatternAnalysis) []string {
	return slices.Collect(Sentences(a))
}

var generators = []func(domain.PatternAnalysis) (string, bool){
	domainSentence,
	energySentence,
	timeWeightSentence,
	hoursSentence,
	completionSentence,
	volumeSentence,
}

func domainSentence(a domain.PatternAnalysis) (string, bool) {
	if a.DominantActionDomain == nil {
		return "", false
	}
	d := *a.DominantActionDomain
	total := a.ByActionDomain.Total()
	if total == 0 {
		return "", false
	}
	pct := percent(float64(a.ByActionDomain.Count(d)) / float64(total))
	return fmt.Sprintf("You've been focusing heavily on %s, which makes up about %d%% of your activities.", d.Label(), pct), true
}

func energySentence(a domain.PatternAnalysis) (string, bool) {
	if a.DominantEnergyType == nil {
		return "", false
	}
	e := *a.DominantEnergyType
	return withAdvice(fmt.Sprintf("Most of your tasks require %s.", e.Label()), energyAdvice[e]), true
}

func timeWeightSentence(a domain.PatternAnalysis) (string, bool) {
	if a.DominantTimeWeight == nil {
		return "", false
	}
	w := *a.DominantTimeWeight
	return withAdvice(fmt.Sprintf("Your tasks tend to be %s activities.", w.Label()), timeWeightAdvice[w]), true
}

func hoursSentence(a domain.PatternAnalysis) (string, bool) {
	if len(a.MostProductiveHours) == 0 {
		return "", false
	}
	hours := make([]string, 0, len(a.MostProductiveHours))
	for _, h := range a.MostProductiveHours {
		hours = append(hours, FormatHour(h))
	}
	return fmt.Sprintf("You're most active around %s. Consider scheduling important tasks during these windows.", strings.Join(hours, ", ")), true
}

func completionSentence(a domain.PatternAnalysis) (string, bool) {
	pct := percent(a.CompletionRate)
	switch {
	case a.CompletionRate > highCompletionRate:
		return fmt.Sprintf("You're completing %d%% of your tasks—that's excellent follow-through.", pct), true
	case a.CompletionRate < lowCompletionRate:
		return fmt.Sprintf("You're completing about %d%% of tasks. Consider breaking larger tasks into smaller, achievable steps.", pct), true
	}
	return "", false
}

func volumeSentence(a domain.PatternAnalysis) (string, bool) {
	avg := int(math.Round(a.AverageTasksPerDay))
	switch {
	case a.AverageTasksPerDay > heavyTasksPerDay:
		return fmt.Sprintf("You're averaging %d tasks per day. Make sure you're not overwhelming yourself.", avg), true
	case a.AverageTasksPerDay < lightTasksPerDay:
		return fmt.Sprintf("You're keeping things light with around %d tasks per day.", avg), true
	}
	return "", false
}

// isEmpty reports an analysis with nothing observed: no dominants, no active
// hours and zero rates.
func isEmpty(a domain.PatternAnalysis) bool {
	return a.DominantActionDomain == nil &&
		a.DominantEnergyType == nil &&
		a.DominantTimeWeight == nil &&
		len(a.MostProductiveHours) == 0 &&
		a.CompletionRate == 0 &&
		a.AverageTasksPerDay == 0
}

// withAdvice appends an advice clause; a missing clause leaves the
// observation on its own.
func withAdvice(observation, advice string) string {
	if advice == "" {
		return observation
	}
	return observation + " " + advice
}

// FormatHour renders an hour of day as "midnight", "noon", "9am" or "9pm".
func FormatHour(hour int) string {
	switch {
	case hour == 0:
		return "midnight"
	case hour == 12:
		return "noon"
	case hour < 12:
		return fmt.Sprintf("%dam", hour)
	default:
		return fmt.Sprintf("%dpm", hour-12)
	}
}

func percent(ratio float64) int {
	return int(math.Round(ratio * 100))
}

// FormatMessage renders stored insights for a chat message.
func FormatMessage(start, end time.Time, list []domain.Insight) string {
	header := fmt.Sprintf("*Your week in review (%s - %s)*", start.Format("Jan 2"), end.AddDate(0, 0, -1).Format("Jan 2"))
	if len(list) == 0 {
		return header + "\nNot much to reflect on yet. Log a few tasks and check back later."
	}
	var b strings.Builder
	b.WriteString(header)
	for _, in := range list {
		b.WriteString("\n• ")
		b.WriteString(in.Text)
	}
	return b.String()
}
