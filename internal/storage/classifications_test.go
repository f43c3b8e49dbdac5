package storage

import (
	"context"
	"testing"
	"time"

	"tasklens/internal/domain"
)

func TestClassificationStats(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)

	records := []domain.ClassificationRecord{
		{TaskID: "t1", ActionDomain: domain.WorkProject, EnergyType: domain.DeepFocus, TimeWeight: domain.DeepWork, ConfidenceScore: 0.95, Method: "ai_powered", LLMProvider: "anthropic", ClassifiedAt: now},
		{TaskID: "t2", ActionDomain: domain.WorkProject, EnergyType: domain.SocialEnergy, TimeWeight: domain.QuickWin, ConfidenceScore: 0.80, Method: "keyword_heuristic", ClassifiedAt: now},
		{TaskID: "t3", ActionDomain: domain.PersonalAdmin, EnergyType: domain.LightActivity, TimeWeight: domain.ModerateEffort, ConfidenceScore: 0.60, Method: "keyword_heuristic", FallbackReason: "timeout", ClassifiedAt: now},
		{TaskID: "t4", ActionDomain: domain.PersonalAdmin, EnergyType: domain.LightActivity, TimeWeight: domain.ModerateEffort, ConfidenceScore: 0.40, Method: "ai_powered", ClassifiedAt: now},
		{TaskID: "old", ActionDomain: domain.HomeMaintenance, EnergyType: domain.LightActivity, TimeWeight: domain.ModerateEffort, ConfidenceScore: 0.75, ClassifiedAt: now.AddDate(0, -2, 0)},
	}
	for _, r := range records {
		if err := s.InsertClassificationHistory(ctx, r); err != nil {
			t.Fatalf("InsertClassificationHistory failed: %v", err)
		}
	}

	st, err := s.GetClassificationStats(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("GetClassificationStats failed: %v", err)
	}
	if st.TotalClassifications != 4 || st.FallbackCount != 1 {
		t.Fatalf("totals = %+v", st)
	}
	if st.BucketBelow50 != 1 || st.Bucket50to70 != 1 || st.Bucket70to90 != 1 || st.Bucket90Plus != 1 {
		t.Fatalf("buckets = %+v", st)
	}
	if diff := st.AvgConfidence - 0.6875; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("avg confidence = %v, want 0.6875", st.AvgConfidence)
	}
	if len(st.ByActionDomain) != 2 || st.ByActionDomain[0].Category != domain.PersonalAdmin || st.ByActionDomain[0].Count != 2 {
		t.Fatalf("by domain = %+v", st.ByActionDomain)
	}

	hist, err := s.GetClassificationHistory(ctx, "t3")
	if err != nil || len(hist) != 1 || hist[0].FallbackReason != "timeout" {
		t.Fatalf("history = %+v, %v", hist, err)
	}
}
