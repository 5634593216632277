package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/LJTian/TrendPulse/internal/model"
	"github.com/mmcdole/gofeed"
)

const (
	newsDefaultAPIBase = "https://newsapi.org"
	newsDefaultRSSBase = "https://news.google.com"
	newsMaxArticles    = 30
	newsStopCount      = 20 // 达到该数量后不再请求更多词条
	newsMinUnique      = 10 // 低于该数量继续降级到 RSS
	newsRSSTermLimit   = 5  // RSS 兜底只尝试前几个词条
	newsClientTimeout  = 8 * time.Second
	newsMaxBodyBytes   = 2 << 20 // 2MB
)

// 全球趋势搜索词，固定顺序
var newsTrendingTerms = []string{
	"technology",
	"business",
	"world news",
	"breaking news",
	"trending",
	"latest news",
	"global news",
	"tech news",
	"finance",
	"cryptocurrency",
	"artificial intelligence",
	"climate change",
	"politics",
	"science",
	"health",
}

// NewsWireFetcher 通讯社连接器：配置了 API key 时走 NewsAPI 逐词条查询，
// 未配置或结果不足时降级为免认证的 Google News RSS。
type NewsWireFetcher struct {
	APIKey  string
	APIBase string
	RSSBase string
	Terms   []string
	client  *http.Client
	parser  *gofeed.Parser
}

func NewNewsWireFetcher(apiKey string) *NewsWireFetcher {
	client := &http.Client{Timeout: newsClientTimeout}
	parser := gofeed.NewParser()
	return &NewsWireFetcher{
		APIKey:  apiKey,
		APIBase: newsDefaultAPIBase,
		RSSBase: newsDefaultRSSBase,
		Terms:   newsTrendingTerms,
		client:  client,
		parser:  parser,
	}
}

func (n *NewsWireFetcher) Name() string {
	return model.SourceNewsAPI
}

func (n *NewsWireFetcher) Fetch(ctx context.Context) ([]model.Article, error) {
	log.Println("fetch news wire articles...")

	seen := newDedupSet()
	articles := runChain(ctx, newsMinUnique,
		n.apiTier(seen),
		n.rssTier(seen),
	)

	if len(articles) == 0 {
		log.Println("newswire: no items fetched")
	}
	return articles, nil
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// apiTier 逐词条查询 NewsAPI；未配置 key 时整级跳过
func (n *NewsWireFetcher) apiTier(seen *dedupSet) tierFunc {
	return func(ctx context.Context, acc []model.Article) []model.Article {
		if n.APIKey == "" {
			return acc
		}
		for _, term := range n.Terms {
			if ctx.Err() != nil || len(acc) >= newsStopCount {
				break
			}
			resp, err := n.queryAPI(ctx, term)
			if err != nil {
				log.Printf("newswire: query %q: %v", term, err)
				continue
			}
			for _, a := range resp.Articles {
				if len(acc) >= newsMaxArticles {
					break
				}
				if a.Title == "" || a.URL == "" || seen.seen(a.Title, a.URL) {
					continue
				}
				acc = append(acc, model.Article{
					ID:          a.URL,
					Title:       a.Title,
					URL:         a.URL,
					Source:      model.SourceNewsAPI,
					PublishedAt: a.PublishedAt.UTC(),
				})
			}
		}
		return acc
	}
}

func (n *NewsWireFetcher) queryAPI(ctx context.Context, term string) (*newsAPIResponse, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("pageSize", "50")
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("apiKey", n.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		n.APIBase+"/v2/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var apiResp newsAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, newsMaxBodyBytes)).Decode(&apiResp); err != nil {
		return nil, err
	}
	if apiResp.Status != "ok" {
		return nil, fmt.Errorf("newsapi error status %q", apiResp.Status)
	}
	return &apiResp, nil
}

// rssTier Google News RSS 兜底：先用标准解析，失败再用正则模式，
// 两种都不行就跳过该词条
func (n *NewsWireFetcher) rssTier(seen *dedupSet) tierFunc {
	return func(ctx context.Context, acc []model.Article) []model.Article {
		terms := n.Terms
		if len(terms) > newsRSSTermLimit {
			terms = terms[:newsRSSTermLimit]
		}
		for _, term := range terms {
			if ctx.Err() != nil || len(acc) >= newsStopCount {
				break
			}
			body, err := n.fetchRSS(ctx, term)
			if err != nil {
				log.Printf("newswire: rss %q: %v", term, err)
				continue
			}
			items := n.parseRSS(body)
			for _, it := range items {
				if len(acc) >= newsMaxArticles {
					break
				}
				if seen.seen(it.title, it.link) {
					continue
				}
				acc = append(acc, model.Article{
					ID:          fmt.Sprintf("g-%d", len(acc)),
					Title:       it.title,
					URL:         it.link,
					Source:      model.SourceNewsAPI,
					PublishedAt: it.published,
				})
			}
		}
		return acc
	}
}

func (n *NewsWireFetcher) fetchRSS(ctx context.Context, term string) (string, error) {
	rssURL := fmt.Sprintf("%s/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en",
		n.RSSBase, url.QueryEscape(term))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rssURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "TrendPulseBot/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, newsMaxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type rssItem struct {
	title     string
	link      string
	published time.Time
}

// 备用正则：feed 格式异常导致标准解析失败时，直接从 XML 中抠 item
var rssItemPattern = regexp.MustCompile(`(?s)<item>.*?<title>(?:<!\[CDATA\[)?(.*?)(?:\]\]>)?</title>.*?<link>(.*?)</link>.*?</item>`)

func (n *NewsWireFetcher) parseRSS(body string) []rssItem {
	feed, err := n.parser.ParseString(body)
	if err == nil && len(feed.Items) > 0 {
		items := make([]rssItem, 0, len(feed.Items))
		for _, it := range feed.Items {
			if it.Title == "" || it.Link == "" {
				continue
			}
			published := time.Time{}
			if it.PublishedParsed != nil {
				published = it.PublishedParsed.UTC()
			}
			items = append(items, rssItem{title: it.Title, link: it.Link, published: published})
		}
		return items
	}

	var items []rssItem
	for _, m := range rssItemPattern.FindAllStringSubmatch(body, -1) {
		title := strings.TrimSpace(m[1])
		link := strings.TrimSpace(m[2])
		if title == "" || link == "" {
			continue
		}
		items = append(items, rssItem{title: title, link: link})
	}
	return items
}
