package api

import (
	"net/http"
	"time"

	"github.com/LJTian/TrendPulse/internal/aggregator"
	"github.com/LJTian/TrendPulse/internal/cache"
	"github.com/LJTian/TrendPulse/internal/metrics"
	"github.com/LJTian/TrendPulse/internal/model"
	"github.com/gin-gonic/gin"
)

type Server struct {
	agg   *aggregator.Aggregator
	cache *cache.Cache
}

func NewServer(agg *aggregator.Aggregator, c *cache.Cache) *Server {
	return &Server{agg: agg, cache: c}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/trending", s.trending)
		v1.GET("/cache/status", s.cacheStatus)
		v1.POST("/cache/clear", s.cacheClear)
		v1.POST("/cache/refresh", s.cacheRefresh)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// errorResponse 失败时在空载荷上附加错误信息，响应结构保持同一套
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	*model.Snapshot
}

func (s *Server) trending(c *gin.Context) {
	snapshot, err := s.agg.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:    "failed to aggregate trending content",
			Message:  err.Error(),
			Snapshot: snapshot,
		})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) cacheStatus(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		CacheStatus: s.cache.Status(),
		Timestamp:   time.Now().UTC(),
	})
}

type statusResponse struct {
	model.CacheStatus
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) cacheClear(c *gin.Context) {
	s.cache.Clear()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "cache cleared successfully",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) cacheRefresh(c *gin.Context) {
	snapshot, err := s.agg.ForceRefresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:    "failed to refresh trending content",
			Message:  err.Error(),
			Snapshot: snapshot,
		})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
