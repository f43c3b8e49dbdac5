package llm

import (
	"fmt"
	"strings"

	"tasklens/internal/domain"
)

var actionDomainHints = map[domain.ActionDomain]string{
	domain.WorkProject:        "professional work, projects, meetings",
	domain.PersonalAdmin:      "errands, paperwork, scheduling",
	domain.HealthWellness:     "exercise, doctor visits, mental health",
	domain.LearningGrowth:     "study, courses, skill development",
	domain.SocialConnection:   "time with friends, family, community",
	domain.CreativeExpression: "art, writing, music, hobbies",
	domain.HomeMaintenance:    "cleaning, repairs, organization",
	domain.FinancialPlanning:  "budget, investments, bills",
}

var energyTypeHints = map[domain.EnergyType]string{
	domain.DeepFocus:        "sustained concentration, complex thinking",
	domain.LightActivity:    "low cognitive load, routine tasks",
	domain.SocialEnergy:     "interaction and communication with others",
	domain.CreativeFlow:     "generative thinking, ideation, making things",
	domain.RoutineExecution: "familiar patterns and habits",
	domain.PhysicalActivity: "body movement, exercise",
}

var timeWeightHints = map[domain.TimeWeight]string{
	domain.QuickWin:          "under 15 minutes, easy to finish",
	domain.ModerateEffort:    "15 to 60 minutes, medium complexity",
	domain.DeepWork:          "1 to 3 hours, needs a focus block",
	domain.OngoingCommitment: "spans several days or weeks",
	domain.WaitingOnOthers:   "blocked on someone else",
}

var systemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You tag personal tasks along three dimensions. Pick exactly one value per dimension from the lists below.\n\n")

	b.WriteString("action_domain (area of life):\n")
	for _, d := range domain.ActionDomains() {
		fmt.Fprintf(&b, "- %s: %s\n", d, actionDomainHints[d])
	}
	b.WriteString("\nenergy_type (kind of energy required):\n")
	for _, e := range domain.EnergyTypes() {
		fmt.Fprintf(&b, "- %s: %s\n", e, energyTypeHints[e])
	}
	b.WriteString("\ntime_weight (effort and duration):\n")
	for _, w := range domain.TimeWeights() {
		fmt.Fprintf(&b, "- %s: %s\n", w, timeWeightHints[w])
	}

	b.WriteString(`
Respond with JSON only, no prose, in this shape:
{"action_domain": "...", "energy_type": "...", "time_weight": "...", "confidence_score": 0.0-1.0, "reasoning": "one short sentence"}`)
	return b.String()
}

func buildUserPrompt(title, description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		description = "None"
	}
	return fmt.Sprintf("Title: %s\nDescription: %s", strings.TrimSpace(title), description)
}
