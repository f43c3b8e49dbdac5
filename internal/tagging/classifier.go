// Package tagging assigns the three hidden tags (action domain, energy type
// and time weight) to free-text tasks using an ordered keyword rule table.
package tagging

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"tasklens/internal/domain"
)

const MethodKeyword = "keyword_heuristic"

// Classify tags text with the keyword rules. It never fails: text that matches
// nothing gets personal_admin, light_activity and moderate_effort.
func Classify(text string) domain.TagAnalysis {
	text = strings.ToLower(text)

	actionDomain, confidence := rules.actionDomain.match(text)
	energyType, _ := rules.energyType.match(text)
	timeWeight, _ := rules.timeWeight.match(text)

	return domain.TagAnalysis{
		ActionDomain:    actionDomain,
		EnergyType:      energyType,
		TimeWeight:      timeWeight,
		ConfidenceScore: confidence,
		Reasoning: fmt.Sprintf(
			"Keyword-based analysis detected: %s domain, %s energy, %s time commitment",
			actionDomain, energyType, timeWeight,
		),
		Metadata: map[string]any{
			"method":      MethodKeyword,
			"text_length": utf8.RuneCountInString(text),
		},
	}
}

// ClassifyTask tags a task from its title and optional description.
func ClassifyTask(title, description string) domain.TagAnalysis {
	return Classify(title + " " + description)
}

// Classifier is anything that can tag a task. The keyword rules are the
// default; a learned model can stand in as long as it returns closed-set tags.
type Classifier interface {
	ClassifyTask(ctx context.Context, title, description string) (domain.TagAnalysis, error)
}

type KeywordClassifier struct{}

func (KeywordClassifier) ClassifyTask(_ context.Context, title, description string) (domain.TagAnalysis, error) {
	return ClassifyTask(title, description), nil
}

// Validate checks that a tag produced by any classifier stays inside the
// closed category sets and the confidence range.
func Validate(a domain.TagAnalysis) error {
	if !a.ActionDomain.Valid() {
		return domain.NewInputError("action_domain", fmt.Sprintf("unknown category %q", a.ActionDomain))
	}
	if !a.EnergyType.Valid() {
		return domain.NewInputError("energy_type", fmt.Sprintf("unknown category %q", a.EnergyType))
	}
	if !a.TimeWeight.Valid() {
		return domain.NewInputError("time_weight", fmt.Sprintf("unknown category %q", a.TimeWeight))
	}
	if a.ConfidenceScore < 0 || a.ConfidenceScore > 1 {
		return domain.NewInputError("confidence_score", fmt.Sprintf("%v outside [0,1]", a.ConfidenceScore))
	}
	return nil
}
