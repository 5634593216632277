package aggregator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/LJTian/TrendPulse/internal/analyzer"
	"github.com/LJTian/TrendPulse/internal/cache"
	"github.com/LJTian/TrendPulse/internal/classifier"
	"github.com/LJTian/TrendPulse/internal/collector"
	"github.com/LJTian/TrendPulse/internal/metrics"
	"github.com/LJTian/TrendPulse/internal/model"
)

// 单个采集器的整体超时；采集器内部还有更细的单次请求超时
const fetchTimeout = 45 * time.Second

// Classifier 外部分类服务的最小接口，便于测试替换
type Classifier interface {
	Classify(ctx context.Context, articles []model.Article) (*model.Classification, error)
}

// Aggregator 聚合管线：并发扇出四个采集器，合并打源标签，
// 经分类缓存调用外部分类，再做主题热度统计，结果写入聚合缓存。
type Aggregator struct {
	fetchers   []collector.Fetcher
	classifier Classifier
	cache      *cache.Cache
}

func New(fetchers []collector.Fetcher, cls Classifier, c *cache.Cache) *Aggregator {
	return &Aggregator{
		fetchers:   fetchers,
		classifier: cls,
		cache:      c,
	}
}

// Snapshot 聚合缓存命中时原样返回；未命中则重新计算并写回
func (a *Aggregator) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	if s, ok := a.cache.Snapshot(); ok {
		metrics.CacheRequests.WithLabelValues("aggregate", "hit").Inc()
		log.Println("aggregate cache hit")
		return s, nil
	}
	metrics.CacheRequests.WithLabelValues("aggregate", "miss").Inc()
	log.Println("aggregate cache miss, computing fresh snapshot")
	return a.compute(ctx)
}

// ForceRefresh 只丢弃聚合层后重算；仍然有效的分类结果按指纹复用
func (a *Aggregator) ForceRefresh(ctx context.Context) (*model.Snapshot, error) {
	log.Println("force refresh requested")
	a.cache.DropSnapshot()
	return a.compute(ctx)
}

func (a *Aggregator) compute(ctx context.Context) (snapshot *model.Snapshot, err error) {
	// 合并/统计阶段的意外崩溃兜底为"结构完整的空载荷 + 错误"，
	// 下游永远只面对同一种响应格式
	defer func() {
		if r := recover(); r != nil {
			log.Printf("aggregation panic: %v", r)
			snapshot = model.EmptySnapshot(time.Now().UTC(), analyzer.DefaultThreshold)
			err = fmt.Errorf("aggregation failed: %v", r)
		}
	}()

	bySource := a.fanOut(ctx)

	// 合并并打上来源标签；跨源不去重：同一事件被多个源报道
	// 正是分类器衡量热度的原始信号
	var merged []model.Article
	for _, name := range []string{model.SourceReddit, model.SourceX, model.SourceNewsAPI, model.SourcePerplexity} {
		articles := bySource[name]
		for i := range articles {
			articles[i].Source = name
		}
		merged = append(merged, articles...)
	}

	classification := a.classify(ctx, merged)
	analysis := analyzer.Analyze(classification.AllArticles, len(merged), analyzer.DefaultThreshold)

	snapshot = &model.Snapshot{
		Timestamp:   time.Now().UTC(),
		Reddit:      orEmpty(bySource[model.SourceReddit]),
		X:           orEmpty(bySource[model.SourceX]),
		NewsAPI:     orEmpty(bySource[model.SourceNewsAPI]),
		Perplexity:  orEmpty(bySource[model.SourcePerplexity]),
		TopStories:  classification.TopStories,
		AllArticles: classification.AllArticles,
		Analysis:    analysis,
	}

	a.cache.SetSnapshot(snapshot)
	return snapshot, nil
}

// fanOut 并发执行全部采集器并在屏障处汇合；
// 单个采集器失败或超时降级为空列表，不阻塞其它源
func (a *Aggregator) fanOut(ctx context.Context) map[string][]model.Article {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		bySource = make(map[string][]model.Article, len(a.fetchers))
	)

	for _, f := range a.fetchers {
		fetcher := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fetcher.Name()

			fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()

			articles, err := fetcher.Fetch(fctx)
			switch {
			case err != nil:
				log.Printf("fetch %s error: %v", name, err)
				metrics.FetchTotal.WithLabelValues(name, "error").Inc()
			case len(articles) == 0:
				log.Printf("fetch %s got 0 items", name)
				metrics.FetchTotal.WithLabelValues(name, "empty").Inc()
			default:
				metrics.FetchTotal.WithLabelValues(name, "ok").Inc()
				metrics.FetchArticles.WithLabelValues(name).Add(float64(len(articles)))
			}

			mu.Lock()
			bySource[name] = articles
			mu.Unlock()
		}()
	}

	wg.Wait()
	return bySource
}

// classify 经分类缓存调用外部服务；服务失败降级为空分类，
// 管线继续产出空的主题统计而不是整体报错
func (a *Aggregator) classify(ctx context.Context, merged []model.Article) *model.Classification {
	titles := make([]string, 0, len(merged))
	for _, m := range merged {
		titles = append(titles, m.Title)
	}
	fingerprint := classifier.Fingerprint(titles)

	if cl, ok := a.cache.Classification(fingerprint); ok {
		metrics.CacheRequests.WithLabelValues("classification", "hit").Inc()
		log.Println("classification cache hit")
		return cl
	}
	metrics.CacheRequests.WithLabelValues("classification", "miss").Inc()

	cl, err := a.classifier.Classify(ctx, merged)
	if err != nil || cl == nil {
		log.Printf("classification unavailable: %v", err)
		return &model.Classification{
			TopStories:  []model.TopStory{},
			AllArticles: []model.ArticleClassification{},
			Fingerprint: fingerprint,
		}
	}

	// 完全空的结果（未配置 key 或服务降级）不进缓存，下一轮还有机会拿到真结果
	if len(cl.TopStories) > 0 || len(cl.AllArticles) > 0 {
		a.cache.SetClassification(cl)
	}
	return cl
}

func orEmpty(articles []model.Article) []model.Article {
	if articles == nil {
		return []model.Article{}
	}
	return articles
}
