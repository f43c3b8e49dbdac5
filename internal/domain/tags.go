package domain

import "strings"

type ActionDomain string

const (
	WorkProject        ActionDomain = "work_project"
	PersonalAdmin      ActionDomain = "personal_admin"
	HealthWellness     ActionDomain = "health_wellness"
	LearningGrowth     ActionDomain = "learning_growth"
	SocialConnection   ActionDomain = "social_connection"
	CreativeExpression ActionDomain = "creative_expression"
	HomeMaintenance    ActionDomain = "home_maintenance"
	FinancialPlanning  ActionDomain = "financial_planning"
)

type EnergyType string

const (
	DeepFocus        EnergyType = "deep_focus"
	LightActivity    EnergyType = "light_activity"
	SocialEnergy     EnergyType = "social_energy"
	CreativeFlow     EnergyType = "creative_flow"
	RoutineExecution EnergyType = "routine_execution"
	PhysicalActivity EnergyType = "physical_activity"
)

type TimeWeight string

const (
	QuickWin          TimeWeight = "quick_win"
	ModerateEffort    TimeWeight = "moderate_effort"
	DeepWork          TimeWeight = "deep_work"
	OngoingCommitment TimeWeight = "ongoing_commitment"
	WaitingOnOthers   TimeWeight = "waiting_on_others"
)

// ActionDomains returns the closed set of action domains.
func ActionDomains() []ActionDomain {
	return []ActionDomain{
		WorkProject, PersonalAdmin, HealthWellness, LearningGrowth,
		SocialConnection, CreativeExpression, HomeMaintenance, FinancialPlanning,
	}
}

func EnergyTypes() []EnergyType {
	return []EnergyType{
		DeepFocus, LightActivity, SocialEnergy, CreativeFlow, RoutineExecution, PhysicalActivity,
	}
}

func TimeWeights() []TimeWeight {
	return []TimeWeight{
		QuickWin, ModerateEffort, DeepWork, OngoingCommitment, WaitingOnOthers,
	}
}

func (d ActionDomain) Valid() bool {
	for _, v := range ActionDomains() {
		if v == d {
			return true
		}
	}
	return false
}

func (e EnergyType) Valid() bool {
	for _, v := range EnergyTypes() {
		if v == e {
			return true
		}
	}
	return false
}

func (w TimeWeight) Valid() bool {
	for _, v := range TimeWeights() {
		if v == w {
			return true
		}
	}
	return false
}

func (d ActionDomain) Label() string { return label(string(d)) }
func (e EnergyType) Label() string   { return label(string(e)) }
func (w TimeWeight) Label() string   { return label(string(w)) }

func label(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// TagAnalysis is the classifier output for one task. It is replaced as a
// whole when the task text changes, never patched field by field.
type TagAnalysis struct {
	ActionDomain    ActionDomain   `json:"action_domain"`
	EnergyType      EnergyType     `json:"energy_type"`
	TimeWeight      TimeWeight     `json:"time_weight"`
	ConfidenceScore float64        `json:"confidence_score"`
	Reasoning       string         `json:"reasoning"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Method reports which classifier produced the tag, from its metadata.
func (a TagAnalysis) Method() string {
	if m, ok := a.Metadata["method"].(string); ok {
		return m
	}
	return ""
}
