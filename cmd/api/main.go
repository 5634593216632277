package main

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/LJTian/TrendPulse/internal/aggregator"
	"github.com/LJTian/TrendPulse/internal/api"
	"github.com/LJTian/TrendPulse/internal/cache"
	"github.com/LJTian/TrendPulse/internal/classifier"
	"github.com/LJTian/TrendPulse/internal/collector"
	"github.com/LJTian/TrendPulse/internal/config"
	"github.com/LJTian/TrendPulse/internal/scheduler"
	"github.com/gin-gonic/gin"
)

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

	// 可选的定时预热：走与请求相同的 get-or-compute 路径
	if cfg.WarmCronSpec != "" {
		s, err := scheduler.New(cfg.WarmCronSpec, func(ctx context.Context) error {
			_, err := agg.Snapshot(ctx)
			return err
		})
		if err != nil {
			log.Fatalf("init scheduler failed: %v", err)
		}
		s.Start()
	}

	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health、/metrics 免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(agg, cacheLayer)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// basicAuthMiddleware 为整个站点增加一个简单的 Basic Auth 访问密码。
// 仅当配置了 APP_BASIC_USER / APP_BASIC_PASS 时启用。
// /health 与 /metrics 不做认证，便于健康检查与抓取。
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
