package analyzer

import (
	"sort"

	"github.com/LJTian/TrendPulse/internal/model"
)

// DefaultThreshold 置信度阈值（0-1），低于该值的归类不参与统计
const DefaultThreshold = 0.7

const (
	maxSampleTitles = 3
	maxTopTopics    = 10
)

type topicGroup struct {
	topic           string
	count           int
	totalConfidence float64
	sampleTitles    []string
	sources         []string
	seenSources     map[string]struct{}
}

// Analyze 过滤低置信度归类，按主题分组并按条数降序排序。
// 空输入得到空统计，不算错误。
func Analyze(classifications []model.ArticleClassification, totalArticles int, threshold float64) model.TopicAnalysis {
	groups := make(map[string]*topicGroup)
	var order []*topicGroup

	for _, c := range classifications {
		confidence := float64(c.Confidence) / 100
		if confidence < threshold {
			continue
		}
		topic := c.Topic
		if topic == "" {
			topic = "Unknown"
		}

		g, ok := groups[topic]
		if !ok {
			g = &topicGroup{topic: topic, seenSources: make(map[string]struct{})}
			groups[topic] = g
			order = append(order, g)
		}

		g.count++
		g.totalConfidence += confidence
		if len(g.sampleTitles) < maxSampleTitles {
			g.sampleTitles = append(g.sampleTitles, c.Title)
		}
		if _, ok := g.seenSources[c.Source]; !ok {
			g.seenSources[c.Source] = struct{}{}
			g.sources = append(g.sources, c.Source)
		}
	}

	// 稳定排序：条数相同的主题保持首次出现的先后顺序
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})

	popularity := make([]model.TopicPopularity, 0, len(order))
	for _, g := range order {
		popularity = append(popularity, model.TopicPopularity{
			Topic:         g.topic,
			Count:         g.count,
			AvgConfidence: g.totalConfidence / float64(g.count),
			SampleTitles:  g.sampleTitles,
			TotalMatches:  g.count,
			Sources:       g.sources,
		})
	}

	top := popularity
	if len(top) > maxTopTopics {
		top = top[:maxTopTopics]
	}

	return model.TopicAnalysis{
		TotalArticles:       totalArticles,
		MatchedArticles:     len(classifications),
		TopicPopularity:     popularity,
		TopTopics:           top,
		ConfidenceThreshold: threshold,
	}
}
