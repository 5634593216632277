package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/LJTian/TrendPulse/internal/aggregator"
	"github.com/LJTian/TrendPulse/internal/cache"
	"github.com/LJTian/TrendPulse/internal/classifier"
	"github.com/LJTian/TrendPulse/internal/collector"
	"github.com/LJTian/TrendPulse/internal/config"
)

// 一个仅执行一次聚合管线的命令行入口：适合手动触发或排查数据源问题，
// 结果以 JSON 打印到标准输出
func main() {
	cfg := config.Load()

	cacheLayer := cache.New(cfg.AggregateTTL, cfg.ClassifyTTL, cfg.RedisAddr)

	fetchers := []collector.Fetcher{
		collector.NewRedditFetcher(),
		collector.NewXTrendsFetcher(),
		collector.NewNewsWireFetcher(cfg.NewsAPIKey),
		collector.NewInsightFetcher(cfg.PerplexityAPIKey, cfg.PerplexityBaseURL),
	}

	cls := classifier.New(cfg.GroqAPIKey, cfg.GroqBaseURL)
	agg := aggregator.New(fetchers, cls, cacheLayer)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snapshot, err := agg.ForceRefresh(ctx)
	if err != nil {
		log.Fatalf("collect failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		log.Fatalf("encode snapshot: %v", err)
	}
}
