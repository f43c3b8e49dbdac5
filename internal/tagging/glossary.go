package tagging

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"tasklens/internal/domain"
)

const (
	MethodGlossary     = "glossary"
	glossaryConfidence = 0.99
)

// GlossaryTerm pins one or more dimensions for tasks mentioning a phrase.
// Empty dimensions are left to the wrapped classifier.
type GlossaryTerm struct {
	Phrase       string              `yaml:"phrase"`
	ActionDomain domain.ActionDomain `yaml:"action_domain,omitempty"`
	EnergyType   domain.EnergyType   `yaml:"energy_type,omitempty"`
	TimeWeight   domain.TimeWeight   `yaml:"time_weight,omitempty"`
}

type glossaryFile struct {
	Terms []GlossaryTerm `yaml:"terms"`
}

type glossaryEntry struct {
	term    GlossaryTerm
	pattern *regexp.Regexp
}

// Glossary overrides another classifier for team-specific vocabulary. The
// first matching term in file order wins.
type Glossary struct {
	next    Classifier
	entries []glossaryEntry
}

// LoadGlossary reads a YAML glossary and wraps next with it.
func LoadGlossary(path string, next Classifier) (*Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	var f glossaryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse glossary yaml: %w", err)
	}
	return NewGlossary(f.Terms, next)
}

func NewGlossary(terms []GlossaryTerm, next Classifier) (*Glossary, error) {
	g := &Glossary{next: next}
	seen := make(map[string]bool)
	for i, t := range terms {
		phrase := strings.ToLower(strings.TrimSpace(t.Phrase))
		if phrase == "" {
			return nil, fmt.Errorf("glossary term %d: empty phrase", i+1)
		}
		if seen[phrase] {
			continue
		}
		seen[phrase] = true
		if t.ActionDomain == "" && t.EnergyType == "" && t.TimeWeight == "" {
			return nil, fmt.Errorf("glossary term %q: no dimension set", t.Phrase)
		}
		if t.ActionDomain != "" && !t.ActionDomain.Valid() {
			return nil, fmt.Errorf("glossary term %q: unknown action_domain %q", t.Phrase, t.ActionDomain)
		}
		if t.EnergyType != "" && !t.EnergyType.Valid() {
			return nil, fmt.Errorf("glossary term %q: unknown energy_type %q", t.Phrase, t.EnergyType)
		}
		if t.TimeWeight != "" && !t.TimeWeight.Valid() {
			return nil, fmt.Errorf("glossary term %q: unknown time_weight %q", t.Phrase, t.TimeWeight)
		}
		pattern, err := compileTokens([]string{phrase})
		if err != nil {
			return nil, fmt.Errorf("glossary term %q: %w", t.Phrase, err)
		}
		g.entries = append(g.entries, glossaryEntry{term: t, pattern: pattern})
	}
	return g, nil
}

func (g *Glossary) Len() int { return len(g.entries) }

func (g *Glossary) ClassifyTask(ctx context.Context, title, description string) (domain.TagAnalysis, error) {
	tag, err := g.next.ClassifyTask(ctx, title, description)
	if err != nil {
		return tag, err
	}
	text := strings.ToLower(title + " " + description)
	for _, e := range g.entries {
		if !e.pattern.MatchString(text) {
			continue
		}
		return applyTerm(tag, e.term), nil
	}
	return tag, nil
}

func applyTerm(tag domain.TagAnalysis, t GlossaryTerm) domain.TagAnalysis {
	if t.ActionDomain != "" {
		tag.ActionDomain = t.ActionDomain
	}
	if t.EnergyType != "" {
		tag.EnergyType = t.EnergyType
	}
	if t.TimeWeight != "" {
		tag.TimeWeight = t.TimeWeight
	}
	tag.ConfidenceScore = glossaryConfidence
	tag.Reasoning = fmt.Sprintf("Glossary term %q: %s domain, %s energy, %s time commitment",
		t.Phrase, tag.ActionDomain, tag.EnergyType, tag.TimeWeight)

	meta := make(map[string]any, len(tag.Metadata)+2)
	for k, v := range tag.Metadata {
		meta[k] = v
	}
	if base := tag.Method(); base != "" {
		meta["base_method"] = base
	}
	meta["method"] = MethodGlossary
	meta["glossary_phrase"] = t.Phrase
	tag.Metadata = meta
	return tag
}
