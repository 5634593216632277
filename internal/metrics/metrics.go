package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FetchTotal 按数据源与结果统计采集次数，result ∈ ok/empty/error
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trendpulse_fetch_total",
		Help: "Source fetch attempts by outcome.",
	}, []string{"source", "result"})

	// FetchArticles 按数据源统计采集到的文章条数
	FetchArticles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trendpulse_fetch_articles_total",
		Help: "Articles fetched per source.",
	}, []string{"source"})

	// CacheRequests 两级缓存的命中情况，tier ∈ aggregate/classification
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trendpulse_cache_requests_total",
		Help: "Cache lookups by tier and result.",
	}, []string{"tier", "result"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
