package analyzer

import (
	"fmt"
	"math"
	"testing"

	"github.com/LJTian/TrendPulse/internal/model"
)

func TestAnalyzeFiltersLowConfidence(t *testing.T) {
	classifications := []model.ArticleClassification{
		{Title: "Tesla stock surges after earnings beat", Topic: "Tesla Earnings", Source: "reddit", Confidence: 95},
		{Title: "Fed might hold rates", Topic: "Fed Rate Decision", Source: "news", Confidence: 60},
	}

	analysis := Analyze(classifications, 50, DefaultThreshold)

	if analysis.TotalArticles != 50 {
		t.Fatalf("expected totalArticles 50, got %d", analysis.TotalArticles)
	}
	if analysis.MatchedArticles != 2 {
		t.Fatalf("expected matchedArticles 2, got %d", analysis.MatchedArticles)
	}
	if len(analysis.TopicPopularity) != 1 {
		t.Fatalf("expected 1 topic above threshold, got %d", len(analysis.TopicPopularity))
	}
	got := analysis.TopicPopularity[0]
	if got.Topic != "Tesla Earnings" || got.Count != 1 || got.TotalMatches != 1 {
		t.Fatalf("unexpected topic entry: %+v", got)
	}
	if math.Abs(got.AvgConfidence-0.95) > 1e-9 {
		t.Fatalf("expected avgConfidence 0.95, got %v", got.AvgConfidence)
	}
	if analysis.ConfidenceThreshold != DefaultThreshold {
		t.Fatalf("threshold should echo back, got %v", analysis.ConfidenceThreshold)
	}
}

func TestAnalyzeSortsByCountKeepingFirstSeenOrderOnTies(t *testing.T) {
	classifications := []model.ArticleClassification{
		{Title: "a1", Topic: "Alpha", Source: "reddit", Confidence: 90},
		{Title: "b1", Topic: "Beta", Source: "reddit", Confidence: 90},
		{Title: "c1", Topic: "Gamma", Source: "reddit", Confidence: 90},
		{Title: "c2", Topic: "Gamma", Source: "x", Confidence: 90},
	}

	analysis := Analyze(classifications, 4, DefaultThreshold)

	if len(analysis.TopicPopularity) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(analysis.TopicPopularity))
	}
	if analysis.TopicPopularity[0].Topic != "Gamma" {
		t.Fatalf("highest count should sort first, got %q", analysis.TopicPopularity[0].Topic)
	}
	// Alpha 和 Beta 同为 1 条，保持首次出现顺序
	if analysis.TopicPopularity[1].Topic != "Alpha" || analysis.TopicPopularity[2].Topic != "Beta" {
		t.Fatalf("tied topics should keep first-seen order, got %q then %q",
			analysis.TopicPopularity[1].Topic, analysis.TopicPopularity[2].Topic)
	}
}

func TestAnalyzeCapsSampleTitlesAndDedupsSources(t *testing.T) {
	var classifications []model.ArticleClassification
	sources := []string{"reddit", "reddit", "x", "news", "x"}
	for i, src := range sources {
		classifications = append(classifications, model.ArticleClassification{
			Title:      fmt.Sprintf("headline %d", i),
			Topic:      "Single Topic",
			Source:     src,
			Confidence: 80,
		})
	}

	analysis := Analyze(classifications, 5, DefaultThreshold)

	got := analysis.TopicPopularity[0]
	if got.Count != 5 {
		t.Fatalf("expected count 5, got %d", got.Count)
	}
	if len(got.SampleTitles) != 3 {
		t.Fatalf("sample titles capped at 3, got %d", len(got.SampleTitles))
	}
	if got.SampleTitles[0] != "headline 0" {
		t.Fatalf("samples should keep input order, got %q", got.SampleTitles[0])
	}
	want := []string{"reddit", "x", "news"}
	if len(got.Sources) != len(want) {
		t.Fatalf("expected %d distinct sources, got %v", len(want), got.Sources)
	}
	for i, s := range want {
		if got.Sources[i] != s {
			t.Fatalf("sources should keep first-seen order, got %v", got.Sources)
		}
	}
}

func TestAnalyzeTopTopicsCappedAtTen(t *testing.T) {
	var classifications []model.ArticleClassification
	for i := 0; i < 12; i++ {
		classifications = append(classifications, model.ArticleClassification{
			Title:      fmt.Sprintf("headline %d", i),
			Topic:      fmt.Sprintf("Topic %d", i),
			Source:     "news",
			Confidence: 90,
		})
	}

	analysis := Analyze(classifications, 12, DefaultThreshold)

	if len(analysis.TopicPopularity) != 12 {
		t.Fatalf("popularity list keeps all topics, got %d", len(analysis.TopicPopularity))
	}
	if len(analysis.TopTopics) != maxTopTopics {
		t.Fatalf("topTopics capped at %d, got %d", maxTopTopics, len(analysis.TopTopics))
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	analysis := Analyze(nil, 0, DefaultThreshold)
	if analysis.MatchedArticles != 0 || len(analysis.TopicPopularity) != 0 || len(analysis.TopTopics) != 0 {
		t.Fatalf("empty input should yield empty analysis: %+v", analysis)
	}
	if analysis.TopicPopularity == nil {
		t.Fatalf("popularity should be an empty slice, not nil")
	}
}

func TestAnalyzeThresholdBoundary(t *testing.T) {
	classifications := []model.ArticleClassification{
		{Title: "exactly at threshold", Topic: "Edge", Source: "news", Confidence: 70},
		{Title: "just below", Topic: "Edge", Source: "news", Confidence: 69},
	}
	analysis := Analyze(classifications, 2, DefaultThreshold)
	if len(analysis.TopicPopularity) != 1 || analysis.TopicPopularity[0].Count != 1 {
		t.Fatalf("confidence equal to threshold should pass, below should not: %+v", analysis.TopicPopularity)
	}
}

func TestAnalyzeBlankTopicBucketsAsUnknown(t *testing.T) {
	classifications := []model.ArticleClassification{
		{Title: "untagged headline", Topic: "", Source: "x", Confidence: 85},
	}
	analysis := Analyze(classifications, 1, DefaultThreshold)
	if len(analysis.TopicPopularity) != 1 || analysis.TopicPopularity[0].Topic != "Unknown" {
		t.Fatalf("blank topic should bucket as Unknown: %+v", analysis.TopicPopularity)
	}
}
