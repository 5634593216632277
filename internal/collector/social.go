package collector

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/TrendPulse/internal/model"
	"github.com/gocolly/colly/v2"
	"github.com/mmcdole/gofeed"
)

const (
	xMaxItems      = 20
	xMinUnique     = 10 // 低于该数量继续尝试下一级降级策略
	xClientTimeout = 7 * time.Second
	xMinLineLen    = 20
)

// 镜像站点按稳定性排序，前面的优先
var xDefaultMirrors = []string{
	"https://nitter.net",
	"https://nitter.poast.org",
	"https://nitter.privacydev.net",
}

// 兜底页面抓取时需要过滤掉的导航/模板文案
var xBoilerplate = map[string]struct{}{
	"Nitter": {}, "Login": {}, "Register": {}, "Tweets": {}, "Search": {},
	"Top": {}, "Latest": {}, "People": {}, "Photos": {}, "Videos": {},
	"Trending": {}, "Hashtags": {},
}

// XTrendsFetcher 抓取 X (Twitter) 趋势内容，三级降级：
// 趋势 RSS → 主时间线 RSS → 单页启发式抓取。
// 每一级都会在所有镜像上轮询，单个镜像失败直接换下一个。
type XTrendsFetcher struct {
	Mirrors     []string
	FallbackURL string // 第三级启发式抓取的页面
	parser      *gofeed.Parser
}

func NewXTrendsFetcher() *XTrendsFetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: xClientTimeout}
	parser.UserAgent = "TrendPulseBot/1.0"
	return &XTrendsFetcher{
		Mirrors:     xDefaultMirrors,
		FallbackURL: "https://nitter.net/trending",
		parser:      parser,
	}
}

func (x *XTrendsFetcher) Name() string {
	return model.SourceX
}

func (x *XTrendsFetcher) Fetch(ctx context.Context) ([]model.Article, error) {
	log.Println("fetch X (Twitter) trending...")

	seen := newDedupSet()
	articles := runChain(ctx, xMinUnique,
		x.feedTier("/trending/rss", "x-trending", seen),
		x.feedTier("/rss", "x-popular", seen),
		x.scrapeTier(seen),
	)

	if len(articles) == 0 {
		log.Println("x: no items fetched")
	}
	return articles, nil
}

// feedTier 在所有镜像上尝试同一个 RSS 路径，直到拿满为止
func (x *XTrendsFetcher) feedTier(path, idPrefix string, seen *dedupSet) tierFunc {
	return func(ctx context.Context, acc []model.Article) []model.Article {
		for _, mirror := range x.Mirrors {
			if ctx.Err() != nil || len(acc) >= xMaxItems {
				break
			}
			feed, err := x.parser.ParseURLWithContext(mirror+path, ctx)
			if err != nil {
				log.Printf("x: fetch %s%s: %v", mirror, path, err)
				continue
			}
			for _, item := range feed.Items {
				if len(acc) >= xMaxItems {
					break
				}
				if item.Title == "" || seen.seen(item.Title, item.Link) {
					continue
				}
				published := time.Time{}
				if item.PublishedParsed != nil {
					published = item.PublishedParsed.UTC()
				}
				acc = append(acc, model.Article{
					ID:          fmt.Sprintf("%s-%d", idPrefix, len(acc)),
					Title:       item.Title,
					URL:         item.Link,
					Source:      model.SourceX,
					PublishedAt: published,
				})
			}
			if len(acc) >= xMaxItems {
				break
			}
		}
		return acc
	}
}

// scrapeTier 三级兜底：抓趋势页面，取足够长且不在模板黑名单里的文本行。
// 此时已经没有条目级链接可用，统一指向趋势页。
func (x *XTrendsFetcher) scrapeTier(seen *dedupSet) tierFunc {
	return func(ctx context.Context, acc []model.Article) []model.Article {
		c := colly.NewCollector(
			colly.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		)
		c.SetRequestTimeout(xClientTimeout)

		now := time.Now().UTC()
		c.OnHTML("a, p, span, div", func(e *colly.HTMLElement) {
			if len(acc) >= xMaxItems {
				return
			}
			line := strings.TrimSpace(e.Text)
			if len(line) < xMinLineLen {
				return
			}
			if _, ok := xBoilerplate[line]; ok {
				return
			}
			// 过滤含子元素的容器节点，只留叶子文本
			if e.DOM.Children().Length() > 0 {
				return
			}
			if seen.seen(line, "") {
				return
			}
			acc = append(acc, model.Article{
				ID:          fmt.Sprintf("x-fallback-%d", len(acc)),
				Title:       line,
				URL:         x.FallbackURL,
				Source:      model.SourceX,
				PublishedAt: now,
			})
		})

		if err := c.Visit(x.FallbackURL); err != nil {
			log.Printf("x: fallback scrape %s: %v", x.FallbackURL, err)
		}
		return acc
	}
}
