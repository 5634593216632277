package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/LJTian/TrendPulse/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeySnapshot       = "trendpulse:snapshot"
	redisKeyClassification = "trendpulse:classification"
	redisOpTimeout         = 3 * time.Second
)

// envelope 进 Redis 的包装：带上写入时刻，重启后据此恢复缓存年龄
type envelope struct {
	Data      json.RawMessage `json:"data"`
	WrittenAt time.Time       `json:"writtenAt"`
}

// Cache 两级 TTL 缓存：聚合层（完整快照）与分类层（外部分类结果）。
// 两层各自独立过期；进程内存是权威副本，配置了 Redis 时同步一份镜像，
// 便于进程重启后继承仍然有效的缓存。Redis 故障只记日志不影响主流程。
type Cache struct {
	mu sync.RWMutex

	aggregateTTL time.Duration
	classifyTTL  time.Duration

	snapshot   *model.Snapshot
	snapshotAt time.Time

	classification   *model.Classification
	classificationAt time.Time

	rdb *redis.Client
	now func() time.Time // 测试时注入假时钟
}

func New(aggregateTTL, classifyTTL time.Duration, redisAddr string) *Cache {
	c := &Cache{
		aggregateTTL: aggregateTTL,
		classifyTTL:  classifyTTL,
		now:          time.Now,
	}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed, cache runs in-memory only: %v", err)
		} else {
			c.rdb = rdb
			c.restore()
		}
	}

	return c
}

// Snapshot 返回仍在 TTL 窗口内的聚合快照；过期或不存在返回 false
func (c *Cache) Snapshot() (*model.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil || !c.valid(c.snapshotAt, c.aggregateTTL) {
		return nil, false
	}
	return c.snapshot, true
}

func (c *Cache) SetSnapshot(s *model.Snapshot) {
	c.mu.Lock()
	c.snapshot = s
	c.snapshotAt = c.now()
	at := c.snapshotAt
	c.mu.Unlock()

	c.mirror(redisKeySnapshot, s, at, c.aggregateTTL)
}

// Classification 返回仍然有效且指纹匹配的分类结果。
// 指纹不同说明合并文章集发生了实质变化，必须重新分类。
func (c *Cache) Classification(fingerprint string) (*model.Classification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.classification == nil || !c.valid(c.classificationAt, c.classifyTTL) {
		return nil, false
	}
	if c.classification.Fingerprint != fingerprint {
		return nil, false
	}
	return c.classification, true
}

func (c *Cache) SetClassification(cl *model.Classification) {
	c.mu.Lock()
	c.classification = cl
	c.classificationAt = c.now()
	at := c.classificationAt
	c.mu.Unlock()

	c.mirror(redisKeyClassification, cl, at, c.classifyTTL)
}

// Clear 丢弃两层缓存
func (c *Cache) Clear() {
	c.mu.Lock()
	c.snapshot = nil
	c.snapshotAt = time.Time{}
	c.classification = nil
	c.classificationAt = time.Time{}
	c.mu.Unlock()

	if c.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()
		if err := c.rdb.Del(ctx, redisKeySnapshot, redisKeyClassification).Err(); err != nil {
			log.Printf("warn: redis del: %v", err)
		}
	}
	log.Println("cache cleared")
}

// DropSnapshot 仅清聚合层；强制刷新用，让仍有效的分类结果得以复用
func (c *Cache) DropSnapshot() {
	c.mu.Lock()
	c.snapshot = nil
	c.snapshotAt = time.Time{}
	c.mu.Unlock()

	if c.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()
		if err := c.rdb.Del(ctx, redisKeySnapshot).Err(); err != nil {
			log.Printf("warn: redis del: %v", err)
		}
	}
}

// Status 报告两层的存在性、年龄与 TTL（毫秒）。
// 存在性只看有没有条目，不看是否过期：调用方据此区分"有但已过期"
// 和"从未采集过"；过期判断属于 Snapshot / Classification 读路径。
func (c *Cache) Status() model.CacheStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := model.CacheStatus{
		DataTTL:           c.aggregateTTL.Milliseconds(),
		ClassificationTTL: c.classifyTTL.Milliseconds(),
	}
	if c.snapshot != nil {
		status.HasData = true
		status.DataAge = c.now().Sub(c.snapshotAt).Milliseconds()
	}
	if c.classification != nil {
		status.HasClassification = true
		status.ClassificationAge = c.now().Sub(c.classificationAt).Milliseconds()
	}
	return status
}

func (c *Cache) valid(writtenAt time.Time, ttl time.Duration) bool {
	return !writtenAt.IsZero() && c.now().Sub(writtenAt) < ttl
}

// mirror 异地备份到 Redis，失败只记日志
func (c *Cache) mirror(key string, v any, writtenAt time.Time, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	env, err := encodeEnvelope(v, writtenAt)
	if err != nil {
		log.Printf("warn: redis mirror marshal %s: %v", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.rdb.Set(ctx, key, env, ttl).Err(); err != nil {
		log.Printf("warn: redis mirror set %s: %v", key, err)
	}
}

func encodeEnvelope(v any, writtenAt time.Time) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Data: data, WrittenAt: writtenAt})
}

// restore 启动时从 Redis 找回仍在 TTL 内的缓存
func (c *Cache) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if env, ok := c.load(ctx, redisKeySnapshot, c.aggregateTTL); ok {
		var s model.Snapshot
		if err := json.Unmarshal(env.Data, &s); err == nil {
			c.snapshot = &s
			c.snapshotAt = env.WrittenAt
			log.Printf("cache: restored snapshot from redis, age=%s", c.now().Sub(env.WrittenAt).Round(time.Second))
		}
	}
	if env, ok := c.load(ctx, redisKeyClassification, c.classifyTTL); ok {
		var cl model.Classification
		if err := json.Unmarshal(env.Data, &cl); err == nil {
			c.classification = &cl
			c.classificationAt = env.WrittenAt
		}
	}
}

func (c *Cache) load(ctx context.Context, key string, ttl time.Duration) (*envelope, bool) {
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return c.decodeEnvelope(bs, ttl)
}

// decodeEnvelope 校验镜像条目仍在 TTL 内；格式损坏或已过期都按不存在处理
func (c *Cache) decodeEnvelope(bs []byte, ttl time.Duration) (*envelope, bool) {
	var env envelope
	if err := json.Unmarshal(bs, &env); err != nil {
		return nil, false
	}
	if !c.valid(env.WrittenAt, ttl) {
		return nil, false
	}
	return &env, true
}
