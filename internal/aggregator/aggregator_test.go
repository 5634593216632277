package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LJTian/TrendPulse/internal/cache"
	"github.com/LJTian/TrendPulse/internal/classifier"
	"github.com/LJTian/TrendPulse/internal/collector"
	"github.com/LJTian/TrendPulse/internal/model"
)

type stubFetcher struct {
	name     string
	articles []model.Article
	err      error
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context) ([]model.Article, error) {
	return s.articles, s.err
}

type stubClassifier struct {
	calls  int
	result *model.Classification
	err    error
}

func (s *stubClassifier) Classify(ctx context.Context, articles []model.Article) (*model.Classification, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	titles := make([]string, 0, len(articles))
	for _, a := range articles {
		titles = append(titles, a.Title)
	}
	return &model.Classification{
		TopStories:  []model.TopStory{},
		AllArticles: []model.ArticleClassification{},
		Fingerprint: classifier.Fingerprint(titles),
	}, nil
}

func newTestAggregator(cls Classifier, fetchers ...collector.Fetcher) (*Aggregator, *cache.Cache) {
	c := cache.New(5*time.Minute, 10*time.Minute, "")
	return New(fetchers, cls, c), c
}

func TestSnapshotAllSourcesFailStillReturnsFullPayload(t *testing.T) {
	cls := &stubClassifier{}
	agg, _ := newTestAggregator(cls,
		&stubFetcher{name: model.SourceReddit, err: errors.New("boom")},
		&stubFetcher{name: model.SourceX},
		&stubFetcher{name: model.SourceNewsAPI, err: errors.New("boom")},
		&stubFetcher{name: model.SourcePerplexity},
	)

	s, err := agg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if s.Reddit == nil || s.X == nil || s.NewsAPI == nil || s.Perplexity == nil {
		t.Fatalf("all source lists must be present even when empty: %+v", s)
	}
	if len(s.Reddit)+len(s.X)+len(s.NewsAPI)+len(s.Perplexity) != 0 {
		t.Fatalf("expected empty lists from failed sources")
	}
	if s.TopStories == nil || s.AllArticles == nil {
		t.Fatalf("classification lists must be present even when empty")
	}
	if s.Analysis.TopicPopularity == nil {
		t.Fatalf("analysis must be present in the payload")
	}
	if s.Timestamp.IsZero() {
		t.Fatalf("timestamp must be set")
	}
}

func TestSnapshotServesFromCache(t *testing.T) {
	cls := &stubClassifier{}
	fetcher := &stubFetcher{name: model.SourceReddit, articles: []model.Article{
		{ID: "r1", Title: "Fed holds rates"},
	}}
	agg, _ := newTestAggregator(cls, fetcher)

	first, err := agg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("first Snapshot error: %v", err)
	}

	fetcher.articles = nil // 第二次命中缓存时不应该重新采集
	second, err := agg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("second Snapshot error: %v", err)
	}
	if second != first {
		t.Fatalf("expected the cached snapshot back")
	}
	if cls.calls != 1 {
		t.Fatalf("classifier should have run once, ran %d times", cls.calls)
	}
}

func TestSnapshotRetagsMergedSources(t *testing.T) {
	cls := &stubClassifier{}
	agg, _ := newTestAggregator(cls, &stubFetcher{
		name: model.SourceReddit,
		articles: []model.Article{
			{ID: "r1", Title: "Fed holds rates", Source: ""},
		},
	})

	s, err := agg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if len(s.Reddit) != 1 || s.Reddit[0].Source != model.SourceReddit {
		t.Fatalf("merged articles must carry their source tag: %+v", s.Reddit)
	}
}

func TestForceRefreshReusesClassificationOnSameFingerprint(t *testing.T) {
	articles := []model.Article{{ID: "r1", Title: "Fed holds rates"}}
	cls := &stubClassifier{result: &model.Classification{
		TopStories:  []model.TopStory{{Topic: "Fed Rate Decision", Count: 1, Confidence: 90}},
		AllArticles: []model.ArticleClassification{{Title: "Fed holds rates", Topic: "Fed Rate Decision", Source: "reddit", Confidence: 90}},
		Fingerprint: classifier.Fingerprint([]string{"Fed holds rates"}),
	}}
	agg, c := newTestAggregator(cls, &stubFetcher{name: model.SourceReddit, articles: articles})

	first, err := agg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if cls.calls != 1 {
		t.Fatalf("expected 1 classifier call, got %d", cls.calls)
	}

	second, err := agg.ForceRefresh(context.Background())
	if err != nil {
		t.Fatalf("ForceRefresh error: %v", err)
	}
	if second == first {
		t.Fatalf("force refresh must rebuild the snapshot")
	}
	if cls.calls != 1 {
		t.Fatalf("unchanged article set should reuse cached classification, classifier ran %d times", cls.calls)
	}
	if len(second.TopStories) != 1 {
		t.Fatalf("expected reused top stories in refreshed snapshot")
	}
	if _, ok := c.Snapshot(); !ok {
		t.Fatalf("refreshed snapshot should be cached")
	}
}

func TestClassifierErrorDegradesToEmptyAnalysis(t *testing.T) {
	cls := &stubClassifier{err: errors.New("upstream down")}
	agg, _ := newTestAggregator(cls, &stubFetcher{
		name:     model.SourceReddit,
		articles: []model.Article{{ID: "r1", Title: "Fed holds rates"}},
	})

	s, err := agg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot should degrade, not fail: %v", err)
	}
	if len(s.Reddit) != 1 {
		t.Fatalf("raw articles must survive a classifier outage")
	}
	if len(s.TopStories) != 0 || len(s.AllArticles) != 0 {
		t.Fatalf("expected empty classification on outage")
	}
	// 降级结果不缓存，下一轮强刷会再次调用分类器
	if _, err := agg.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh error: %v", err)
	}
	if cls.calls != 2 {
		t.Fatalf("degraded classification must not be cached, classifier ran %d times", cls.calls)
	}
}
