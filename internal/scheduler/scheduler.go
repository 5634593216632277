package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// 延迟首轮预热，避免与进程启动期的首个请求争抢资源
	startupDelay = 15 * time.Second
	warmTimeout  = 2 * time.Minute
)

// Scheduler 定时预热聚合缓存，让仪表盘请求落在 TTL 窗口内
type Scheduler struct {
	cron *cron.Cron
	warm func(ctx context.Context) error
}

func New(spec string, warm func(ctx context.Context) error) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, warm: warm}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	time.AfterFunc(startupDelay, func() {
		go s.runOnce()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	log.Println("cache warm job start...")
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()

	if err := s.warm(ctx); err != nil {
		log.Printf("cache warm job error: %v", err)
		return
	}
	log.Println("cache warm job done")
}
