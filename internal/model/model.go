package model

import "time"

// 数据源标识，与对外 JSON 字段保持一致
const (
	SourceReddit     = "reddit"
	SourceX          = "x"
	SourceNewsAPI    = "newsApi"
	SourcePerplexity = "perplexity"
)

// Article 各采集器统一输出的文章结构，采集完成后不再修改
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}

// TopStory 分类服务识别出的具体新闻事件（非宽泛主题），最多 3 条
type TopStory struct {
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	Confidence int    `json:"confidence"` // 0-100
}

// ArticleClassification 单篇文章的主题归类结果
type ArticleClassification struct {
	Title      string `json:"title"`
	Topic      string `json:"topic"`
	Source     string `json:"source"`
	Confidence int    `json:"confidence"` // 0-100
}

// TopicPopularity 按主题聚合后的热度统计
type TopicPopularity struct {
	Topic         string   `json:"topic"`
	Count         int      `json:"count"`
	AvgConfidence float64  `json:"avgConfidence"` // 0-1
	SampleTitles  []string `json:"sampleTitles"`  // 最多 3 条示例标题
	TotalMatches  int      `json:"totalMatches"`
	Sources       []string `json:"sources"`
}

// TopicAnalysis 主题热度分析的整体结果
type TopicAnalysis struct {
	TotalArticles       int               `json:"totalArticles"`
	MatchedArticles     int               `json:"matchedArticles"`
	TopicPopularity     []TopicPopularity `json:"topicPopularity"`
	TopTopics           []TopicPopularity `json:"topTopics"` // 前 10
	ConfidenceThreshold float64           `json:"confidenceThreshold"`
}

// Snapshot 聚合端点返回的完整载荷；失败时返回同样结构的空壳，
// 下游不需要第二套响应格式
type Snapshot struct {
	Timestamp   time.Time               `json:"timestamp"`
	Reddit      []Article               `json:"reddit"`
	X           []Article               `json:"x"`
	NewsAPI     []Article               `json:"newsApi"`
	Perplexity  []Article               `json:"perplexity"`
	TopStories  []TopStory              `json:"topStories"`
	AllArticles []ArticleClassification `json:"allArticlesAnalysis"`
	Analysis    TopicAnalysis           `json:"topicAnalysis"`
}

// Classification 分类服务一轮调用的整体输出，整体进出分类缓存
type Classification struct {
	TopStories  []TopStory              `json:"topStories"`
	AllArticles []ArticleClassification `json:"allArticles"`
	Fingerprint string                  `json:"fingerprint"` // 输入标题集合的指纹
}

// CacheStatus 两级缓存的状态，年龄单位为毫秒
type CacheStatus struct {
	HasData           bool  `json:"hasData"`
	DataAge           int64 `json:"dataAge"`
	DataTTL           int64 `json:"dataTtl"`
	HasClassification bool  `json:"hasClassification"`
	ClassificationAge int64 `json:"classificationAge"`
	ClassificationTTL int64 `json:"classificationTtl"`
}

// EmptySnapshot 返回结构完整但内容为空的载荷，用于整体失败时兜底
func EmptySnapshot(now time.Time, threshold float64) *Snapshot {
	return &Snapshot{
		Timestamp:   now,
		Reddit:      []Article{},
		X:           []Article{},
		NewsAPI:     []Article{},
		Perplexity:  []Article{},
		TopStories:  []TopStory{},
		AllArticles: []ArticleClassification{},
		Analysis: TopicAnalysis{
			TopicPopularity:     []TopicPopularity{},
			TopTopics:           []TopicPopularity{},
			ConfidenceThreshold: threshold,
		},
	}
}
