package tagging

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"tasklens/internal/domain"
)

//go:embed rules.yaml
var rulesYAML []byte

type ruleFile struct {
	ActionDomain dimensionSpec `yaml:"action_domain"`
	EnergyType   dimensionSpec `yaml:"energy_type"`
	TimeWeight   dimensionSpec `yaml:"time_weight"`
}

type dimensionSpec struct {
	Default           string     `yaml:"default"`
	DefaultConfidence float64    `yaml:"default_confidence"`
	Rules             []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Category   string   `yaml:"category"`
	Confidence float64  `yaml:"confidence"`
	Tokens     []string `yaml:"tokens"`
}

type rule[K ~string] struct {
	category   K
	confidence float64
	pattern    *regexp.Regexp
}

// dimension is an ordered rule list for one tag dimension. The first rule
// whose pattern matches decides the category.
type dimension[K ~string] struct {
	rules              []rule[K]
	fallback           K
	fallbackConfidence float64
}

func (d dimension[K]) match(text string) (K, float64) {
	for _, r := range d.rules {
		if r.pattern.MatchString(text) {
			return r.category, r.confidence
		}
	}
	return d.fallback, d.fallbackConfidence
}

func (d dimension[K]) categories() []K {
	out := make([]K, 0, len(d.rules))
	for _, r := range d.rules {
		out = append(out, r.category)
	}
	return out
}

type ruleSet struct {
	actionDomain dimension[domain.ActionDomain]
	energyType   dimension[domain.EnergyType]
	timeWeight   dimension[domain.TimeWeight]
}

// rules is compiled once from the embedded table and only read afterwards.
var rules = mustLoadRules(rulesYAML)

func mustLoadRules(data []byte) ruleSet {
	rs, err := loadRules(data)
	if err != nil {
		panic(fmt.Sprintf("tagging: %v", err))
	}
	return rs
}

func loadRules(data []byte) (ruleSet, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ruleSet{}, fmt.Errorf("parse rules yaml: %w", err)
	}

	var rs ruleSet
	var err error
	if rs.actionDomain, err = compileDimension(f.ActionDomain, domain.ActionDomain.Valid); err != nil {
		return ruleSet{}, fmt.Errorf("action_domain: %w", err)
	}
	if rs.energyType, err = compileDimension(f.EnergyType, domain.EnergyType.Valid); err != nil {
		return ruleSet{}, fmt.Errorf("energy_type: %w", err)
	}
	if rs.timeWeight, err = compileDimension(f.TimeWeight, domain.TimeWeight.Valid); err != nil {
		return ruleSet{}, fmt.Errorf("time_weight: %w", err)
	}
	return rs, nil
}

func compileDimension[K ~string](spec dimensionSpec, valid func(K) bool) (dimension[K], error) {
	d := dimension[K]{
		fallback:           K(spec.Default),
		fallbackConfidence: spec.DefaultConfidence,
	}
	if !valid(d.fallback) {
		return d, fmt.Errorf("unknown default category %q", spec.Default)
	}
	for _, r := range spec.Rules {
		category := K(r.Category)
		if !valid(category) {
			return d, fmt.Errorf("unknown category %q", r.Category)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return d, fmt.Errorf("confidence for %s out of range: %v", r.Category, r.Confidence)
		}
		pattern, err := compileTokens(r.Tokens)
		if err != nil {
			return d, fmt.Errorf("tokens for %s: %w", r.Category, err)
		}
		d.rules = append(d.rules, rule[K]{category: category, confidence: r.Confidence, pattern: pattern})
	}
	return d, nil
}

// compileTokens builds one alternation for a rule. Literal tokens match whole
// words or phrases; "stem*" matches any word beginning with stem. A word
// boundary is only required on an edge where the token has a word character,
// so tokens like "c++" still match.
func compileTokens(tokens []string) (*regexp.Regexp, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens")
	}
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		stem, isStem := strings.CutSuffix(tok, "*")
		if isStem {
			if stem == "" {
				return nil, fmt.Errorf("empty stem")
			}
			tok = stem
		}
		if tok == "" {
			return nil, fmt.Errorf("empty token")
		}
		part := regexp.QuoteMeta(tok)
		if isWordByte(tok[0]) {
			part = `\b` + part
		}
		if !isStem && isWordByte(tok[len(tok)-1]) {
			part += `\b`
		}
		parts = append(parts, part)
	}
	return regexp.Compile(`(?:` + strings.Join(parts, "|") + `)`)
}

// isWordByte matches the ASCII word characters that \b is defined over.
func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
