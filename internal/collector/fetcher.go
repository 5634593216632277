package collector

import (
	"context"
	"strings"

	"github.com/LJTian/TrendPulse/internal/model"
)

// Fetcher 抽象每一个数据源；Fetch 返回的错误只在调用方记日志，
// 不会让整个聚合流程失败
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Article, error)
}

// dedupSet 在单个采集器一次运行内按 (规范化标题, URL) 去重
type dedupSet struct {
	titles map[string]struct{}
	urls   map[string]struct{}
}

func newDedupSet() *dedupSet {
	return &dedupSet{
		titles: make(map[string]struct{}),
		urls:   make(map[string]struct{}),
	}
}

// seen 命中已见过的标题或 URL 时返回 true，否则记录后返回 false。
// url 为空时只按标题去重（兜底抓取的条目可能共用同一个落地页）。
func (d *dedupSet) seen(title, url string) bool {
	key := normalizeTitle(title)
	if key == "" {
		return true
	}
	if _, ok := d.titles[key]; ok {
		return true
	}
	if url != "" {
		if _, ok := d.urls[url]; ok {
			return true
		}
		d.urls[url] = struct{}{}
	}
	d.titles[key] = struct{}{}
	return false
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// tierFunc 单级降级策略：基于已累计的结果继续补充，返回新的累计结果
type tierFunc func(ctx context.Context, acc []model.Article) []model.Article

// runChain 依次执行各级降级策略，直到累计条数达到 floor 或策略耗尽。
// floor <= 0 表示只要拿到结果就算充足。
func runChain(ctx context.Context, floor int, tiers ...tierFunc) []model.Article {
	var acc []model.Article
	for _, tier := range tiers {
		if ctx.Err() != nil {
			break
		}
		acc = tier(ctx, acc)
		if floor <= 0 {
			if len(acc) > 0 {
				break
			}
			continue
		}
		if len(acc) >= floor {
			break
		}
	}
	return acc
}
