package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/TrendPulse/internal/model"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	insightMaxItems = 10
	insightTimeout  = 15 * time.Second
	insightModel    = "sonar"

	insightSystemPrompt = "Return ONLY a JSON array of up to 10 items with title, url, source, publishedAt about current trending topics and industry insights. No extra text."
	insightUserPrompt   = "Latest trending topics, news, and industry insights."
)

// InsightFetcher 通过对话式搜索 API (Perplexity) 获取趋势条目。
// 未配置 key、超时或解析失败都返回空列表。
type InsightFetcher struct {
	apiKey string
	client *openai.Client
}

func NewInsightFetcher(apiKey, baseURL string) *InsightFetcher {
	f := &InsightFetcher{apiKey: apiKey}
	if apiKey != "" {
		client := openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		)
		f.client = &client
	}
	return f
}

func (f *InsightFetcher) Name() string {
	return model.SourcePerplexity
}

type insightItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
	Published   string `json:"published"`
}

func (f *InsightFetcher) Fetch(ctx context.Context) ([]model.Article, error) {
	if f.client == nil {
		return nil, nil
	}
	log.Println("fetch search insight items...")

	ctx, cancel := context.WithTimeout(ctx, insightTimeout)
	defer cancel()

	response, err := f.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: insightModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(insightSystemPrompt),
			openai.UserMessage(insightUserPrompt),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		log.Printf("insight: request failed: %v", err)
		return nil, nil
	}
	if len(response.Choices) == 0 {
		return nil, nil
	}

	items := parseInsightItems(response.Choices[0].Message.Content)
	if len(items) > insightMaxItems {
		items = items[:insightMaxItems]
	}

	seen := newDedupSet()
	articles := make([]model.Article, 0, len(items))
	for i, it := range items {
		title := strings.TrimSpace(it.Title)
		url := it.URL
		if url == "" {
			url = it.Link
		}
		if title == "" || seen.seen(title, url) {
			continue
		}
		id := url
		if id == "" {
			id = fmt.Sprintf("p-%d", i)
		}
		published := it.PublishedAt
		if published == "" {
			published = it.Published
		}
		articles = append(articles, model.Article{
			ID:          id,
			Title:       title,
			URL:         url,
			Source:      model.SourcePerplexity,
			PublishedAt: parseInsightTime(published),
		})
	}
	return articles, nil
}

// parseInsightItems 先整体解析；模型偶尔会在数组前后夹带说明文字，
// 此时提取第一个中括号子串再解析；全都失败返回空
func parseInsightItems(content string) []insightItem {
	var items []insightItem
	if err := json.Unmarshal([]byte(content), &items); err == nil {
		return items
	}
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &items); err != nil {
		return nil
	}
	return items
}

func parseInsightTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
