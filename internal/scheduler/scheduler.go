package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cfphub/cfphub/internal/crawler"
	"github.com/cfphub/cfphub/internal/processor"
	"github.com/cfphub/cfphub/internal/storage"
	"github.com/robfig/cron/v3"
)

// 单个来源一轮采集的最长耗时；Fetcher 的限速会拉长总时间，留足余量
const collectTimeout = 10 * time.Minute

// SourceJob 把一个来源绑定到独立的采集周期
type SourceJob struct {
	Provider string
	CronSpec string
}

type Scheduler struct {
	cron      *cron.Cron
	jobs      []SourceJob
	agg       *crawler.Aggregator
	processor *processor.SimpleProcessor
	store     *storage.Store
	enrich    bool
}

func New(jobs []SourceJob, agg *crawler.Aggregator, p *processor.SimpleProcessor, store *storage.Store, enrich bool) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:      c,
		jobs:      jobs,
		agg:       agg,
		processor: p,
		store:     store,
		enrich:    enrich,
	}

	for _, j := range jobs {
		job := j
		if _, err := c.AddFunc(job.CronSpec, func() { s.collectOne(job.Provider) }); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Cron 暴露底层 cron 实例，便于外部追加任务
func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮采集，避免与服务启动争抢资源
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.RunOnce()
	})
}

// RunOnce 并发执行所有来源的一轮采集，适合手动触发
func (s *Scheduler) RunOnce() {
	log.Println("start collect job...")

	var wg sync.WaitGroup
	for _, j := range s.jobs {
		job := j
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.collectOne(job.Provider)
		}()
	}

	wg.Wait()
	log.Println("collect job done (all sources)")
}

func (s *Scheduler) collectOne(provider string) {
	log.Printf("fetch from %s...", provider)

	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	items, err := s.agg.Run(ctx, []string{provider}, s.enrich)
	if err != nil {
		log.Printf("fetch %s error: %v", provider, err)
		return
	}
	if len(items) == 0 {
		log.Printf("fetch %s got 0 items", provider)
		return
	}

	processed := s.processor.Process(items)
	if len(processed) == 0 {
		return
	}
	if err := s.store.SaveBatch(processed); err != nil {
		log.Printf("save %s batch error: %v", provider, err)
		return
	}
	// 条数 = 本轮采集解析到的数量（非“新增数”，已存在会更新）
	log.Printf("%s done, fetched=%d saved=%d items", provider, len(items), len(processed))
}
