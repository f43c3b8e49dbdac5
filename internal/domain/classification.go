package domain

import "time"

// ClassificationRecord is one entry of the append-only tagging log.
type ClassificationRecord struct {
	ID              int64
	TaskID          string
	ActionDomain    ActionDomain
	EnergyType      EnergyType
	TimeWeight      TimeWeight
	ConfidenceScore float64
	Method          string
	FallbackReason  string
	LLMProvider     string
	LLMModel        string
	ClassifiedAt    time.Time
}

type ClassificationStats struct {
	TotalClassifications int
	FallbackCount        int
	AvgConfidence        float64
	BucketBelow50        int
	Bucket50to70         int
	Bucket70to90         int
	Bucket90Plus         int
	ByActionDomain       []CategoryCount[ActionDomain]
}
