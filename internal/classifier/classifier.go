package classifier

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/LJTian/TrendPulse/internal/model"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	groqModel      = "llama-3.3-70b-versatile"
	requestTimeout = 30 * time.Second
	maxTopStories  = 3
	topStoriesMax  = 4000
	classifyMaxTok = 8000
	temperatureLow = 0.1
)

// 顶级事件提取：要求按具体事件（而非宽泛主题）分组，输出严格 JSON。
// 排序规则完全交给外部服务：count 降序、confidence 降序，
// 最后的平手由服务自行评估金融市场影响，这里不在本地重算。
const topStoriesSystemPrompt = `You are a highly intelligent news and financial market analysis AI. Analyze a list of headlines and identify the top 3 most reported-on news stories. Rules: 1. Group by specific, recent events, not broad themes ('Russia-Ukraine War' is too general; 'Ukrainian Strike on Belgorod Fuel Depot' is specific). 2. Respond with a single valid JSON array only, no other text or markdown. 3. Each object has exactly three keys: "topic" (short representative title), "count" (number of headlines covering the event), "confidence" (integer 50-100, your certainty that all grouped headlines are about the exact same event). 4. Sort by "count" descending; tie-break by "confidence" descending; in a further tie prioritize the story with greater potential impact on global financial markets. Example: [{"topic": "US Federal Reserve Holds Interest Rates Steady", "count": 9, "confidence": 98}]`

const classifySystemPrompt = `You are a news analysis AI. Analyze headlines and categorize them with confidence scores. Return only valid JSON.`

// Client 封装对外部大模型分类服务（Groq，OpenAI 兼容端点）的两类调用。
// 未配置 key 时所有调用直接返回空结果。
type Client struct {
	api *openai.Client
}

func New(apiKey, baseURL string) *Client {
	c := &Client{}
	if apiKey != "" {
		api := openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		)
		c.api = &api
	}
	return c
}

// Classify 按顺序执行两次调用（顶级事件提取 + 逐篇归类），
// 结果整体进出分类缓存。任一调用失败都降级为对应的空列表。
func (c *Client) Classify(ctx context.Context, articles []model.Article) (*model.Classification, error) {
	titles := make([]string, 0, len(articles))
	for _, a := range articles {
		titles = append(titles, a.Title)
	}

	result := &model.Classification{
		TopStories:  []model.TopStory{},
		AllArticles: []model.ArticleClassification{},
		Fingerprint: Fingerprint(titles),
	}
	if c.api == nil || len(articles) == 0 {
		return result, nil
	}

	stories, err := c.topStories(ctx, titles)
	if err != nil {
		log.Printf("classifier: top stories: %v", err)
	} else {
		result.TopStories = stories
	}

	classifications, err := c.classifyArticles(ctx, titles)
	if err != nil {
		log.Printf("classifier: classify articles: %v", err)
	} else {
		result.AllArticles = classifications
	}

	return result, nil
}

func (c *Client) topStories(ctx context.Context, titles []string) ([]model.TopStory, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prompt := buildHeadlinesPrompt(
		"Identify the top 3 most reported-on specific news events among these headlines.",
		titles,
	)

	content, err := c.complete(ctx, topStoriesSystemPrompt, prompt, topStoriesMax)
	if err != nil {
		return nil, err
	}

	stories := parseTopStories(content)
	if stories == nil {
		return nil, fmt.Errorf("unparsable top stories response")
	}
	if len(stories) > maxTopStories {
		stories = stories[:maxTopStories]
	}
	return stories, nil
}

func (c *Client) classifyArticles(ctx context.Context, titles []string) ([]model.ArticleClassification, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prompt := buildHeadlinesPrompt(
		`Analyze these headlines and provide a JSON array where each object contains:
- "title": the original headline
- "topic": the main topic/category this headline belongs to
- "source": the source type (reddit, news, etc.)
- "confidence": a confidence score from 0-100 indicating how well this headline fits the topic

Return ONLY a valid JSON array. Example:
[{"title": "Tesla stock surges after earnings beat", "topic": "Tesla Earnings Report", "source": "reddit", "confidence": 95}]`,
		titles,
	)

	content, err := c.complete(ctx, classifySystemPrompt, prompt, classifyMaxTok)
	if err != nil {
		return nil, err
	}

	classifications := parseClassifications(content)
	if classifications == nil {
		return nil, fmt.Errorf("unparsable classification response")
	}
	return classifications, nil
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	response, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: groqModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperatureLow),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return response.Choices[0].Message.Content, nil
}

func buildHeadlinesPrompt(instruction string, titles []string) string {
	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n\nHeadlines to analyze:\n")
	for i, title := range titles {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, title))
	}
	return sb.String()
}

// Fingerprint 计算标题集合的指纹：排序后的小写标题串联取 sha1。
// 分类缓存用它判断合并文章集是否发生了实质变化。
func Fingerprint(titles []string) string {
	normalized := make([]string, 0, len(titles))
	for _, t := range titles {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	sort.Strings(normalized)

	h := sha1.New()
	for _, t := range normalized {
		h.Write([]byte(t))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
