package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/cfphub/cfphub/internal/config"
	"github.com/cfphub/cfphub/internal/crawler"
)

// 导出模式：直接现场抓取指定来源，把结果以规范 JSON 数组输出，
// 不依赖数据库，便于把数据喂给静态站点或下游脚本。
func main() {
	var (
		providersArg = flag.String("providers", "elsevier,wiley,mdpi", "comma separated provider list")
		withRank     = flag.Bool("rank", true, "enrich records with Scimago SJR rank")
		outPath      = flag.String("out", "", "output file path, default stdout")
	)
	flag.Parse()

	cfg := config.Load()

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
	agg := crawler.NewAggregator(sources, crawler.NewRankClient(fetcher).Lookup, warn)

	var providers []string
	for _, p := range strings.Split(*providersArg, ",") {
		if p = strings.TrimSpace(p); p != "" {
			providers = append(providers, p)
		}
	}

	cfps, err := agg.Run(context.Background(), providers, *withRank)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	log.Printf("collected %d records from %d providers", len(cfps), len(providers))

	records := make([]map[string]any, 0, len(cfps))
	for _, c := range cfps {
		records = append(records, c.ToMap())
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.Fatalf("marshal failed: %v", err)
	}

	if *outPath == "" {
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
		return
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatalf("write %s failed: %v", *outPath, err)
	}
	log.Printf("exported %d records to %s", len(records), *outPath)
}
