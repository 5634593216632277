package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/LJTian/TrendPulse/internal/model"
)

const (
	redditDefaultBase     = "https://www.reddit.com"
	redditMaxArticles     = 100
	redditPerPageLimit    = 50
	redditClientTimeout   = 8 * time.Second
	redditMaxResponseSize = 2 << 20 // 2MB
)

// 热门社区的固定顺序列表，前面的社区优先被抓取
var redditCommunities = []string{
	"popular",
	"all",
	"worldnews",
	"technology",
	"business",
	"entrepreneur",
	"startups",
	"investing",
	"personalfinance",
	"economics",
	"news",
	"politics",
	"science",
	"futurology",
	"gadgets",
	"programming",
	"MachineLearning",
	"cryptocurrency",
	"stocks",
	"wallstreetbets",
	"apple",
	"microsoft",
	"google",
	"tesla",
}

// RedditFetcher 抓取各热门社区的"当日最热"帖子。
// 单个社区请求失败直接跳到下一个社区，不中断整轮采集。
type RedditFetcher struct {
	BaseURL     string
	Communities []string
	client      *http.Client
}

func NewRedditFetcher() *RedditFetcher {
	return &RedditFetcher{
		BaseURL:     redditDefaultBase,
		Communities: redditCommunities,
		client:      &http.Client{Timeout: redditClientTimeout},
	}
}

func (r *RedditFetcher) Name() string {
	return model.SourceReddit
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID                  string  `json:"id"`
				Title               string  `json:"title"`
				Permalink           string  `json:"permalink"`
				URLOverriddenByDest string  `json:"url_overridden_by_dest"`
				CreatedUTC          float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *RedditFetcher) Fetch(ctx context.Context) ([]model.Article, error) {
	log.Println("fetch Reddit top-of-day posts...")

	seen := newDedupSet()
	articles := make([]model.Article, 0, redditMaxArticles)

	for _, community := range r.Communities {
		if ctx.Err() != nil {
			break
		}
		listing, err := r.fetchCommunity(ctx, community)
		if err != nil {
			log.Printf("reddit: fetch r/%s: %v", community, err)
			continue
		}

		for _, child := range listing.Data.Children {
			post := child.Data
			if post.Title == "" {
				continue
			}
			url := post.URLOverriddenByDest
			if url == "" {
				url = r.BaseURL + post.Permalink
			}
			if seen.seen(post.Title, url) {
				continue
			}
			if len(articles) >= redditMaxArticles {
				break
			}
			articles = append(articles, model.Article{
				ID:          post.ID,
				Title:       post.Title,
				URL:         url,
				Source:      model.SourceReddit,
				PublishedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
			})
		}

		if len(articles) >= redditMaxArticles {
			break
		}
	}

	if len(articles) == 0 {
		log.Println("reddit: no items fetched")
	}
	return articles, nil
}

func (r *RedditFetcher) fetchCommunity(ctx context.Context, community string) (*redditListing, error) {
	url := fmt.Sprintf("%s/r/%s/top.json?limit=%d&t=day", r.BaseURL, community, redditPerPageLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "TrendPulseBot/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(io.LimitReader(resp.Body, redditMaxResponseSize)).Decode(&listing); err != nil {
		return nil, err
	}
	return &listing, nil
}
