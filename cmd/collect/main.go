package main

import (
	"log"

	"github.com/cfphub/cfphub/internal/config"
	"github.com/cfphub/cfphub/internal/crawler"
	"github.com/cfphub/cfphub/internal/processor"
	"github.com/cfphub/cfphub/internal/scheduler"
	"github.com/cfphub/cfphub/internal/storage"
)

// 一次性采集入口：跑完所有来源后退出，适合 cron / CI 手动触发。
func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}
	if _, err := store.EnsureProvider("elsevier", "Elsevier", "https://www.journals.elsevier.com"); err != nil {
		log.Fatalf("ensure provider elsevier failed: %v", err)
	}
	if _, err := store.EnsureProvider("wiley", "Wiley", "https://onlinelibrary.wiley.com"); err != nil {
		log.Fatalf("ensure provider wiley failed: %v", err)
	}
	if _, err := store.EnsureProvider("mdpi", "MDPI", "https://www.mdpi.com"); err != nil {
		log.Fatalf("ensure provider mdpi failed: %v", err)
	}
	if _, err := store.EnsureProvider("sciencedirect", "ScienceDirect", "https://www.sciencedirect.com/browse/calls-for-papers"); err != nil {
		log.Fatalf("ensure provider sciencedirect failed: %v", err)
	}

	warn := func(provider, msg string) {
		log.Printf("[WARN] %s: %s, skipped", provider, msg)
	}

	fetcher := crawler.NewFetcher(cfg.FetchDelay)
	sources := []crawler.Source{
		crawler.NewElsevierSource(fetcher, warn),
		crawler.NewWileySource(fetcher, warn),
		crawler.NewMDPISource(fetcher, warn),
		crawler.NewScienceDirectSource(fetcher, warn),
	}
	rank := store.CachedRankLookup(crawler.NewRankClient(fetcher).Lookup)
	agg := crawler.NewAggregator(sources, rank, warn)

	jobs := []scheduler.SourceJob{
		{Provider: "elsevier", CronSpec: "@every 6h"},
		{Provider: "wiley", CronSpec: "@every 6h"},
		{Provider: "mdpi", CronSpec: "@every 6h"},
		{Provider: "sciencedirect", CronSpec: "@every 12h"},
	}
	s, err := scheduler.New(jobs, agg, processor.NewSimpleProcessor(), store, cfg.EnrichRank)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	log.Println("start one-off collection ...")
	s.RunOnce()
	log.Println("collection done")
}
