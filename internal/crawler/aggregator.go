package crawler

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// 增强查询的并发上限；查询本身还受 Fetcher 的最小间隔约束
const enrichConcurrency = 3

// Aggregator 驱动一组数据源：按调用方指定的顺序依次采集、
// 隔离单源失败、可选地为每条记录附加期刊评分。
type Aggregator struct {
	sources map[string]Source
	rank    RankLookup
	warn    WarnFunc
}

// NewAggregator 注册数据源并注入告警观察者；rank 可为 nil（此时 enrich 为空操作）
func NewAggregator(sources []Source, rank RankLookup, warn WarnFunc) *Aggregator {
	if warn == nil {
		warn = logWarn
	}
	m := make(map[string]Source, len(sources))
	for _, s := range sources {
		m[s.Name()] = s
	}
	return &Aggregator{sources: m, rank: rank, warn: warn}
}

// Providers 返回已注册的 provider 标识（字典序）
func (a *Aggregator) Providers() []string {
	out := make([]string, 0, len(a.sources))
	for name := range a.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run 按顺序运行 providers 指定的数据源并汇总记录。
// 未知的 provider 标识是调用方契约错误，立即返回 error；
// 单个数据源整体失败只产出 0 条记录，不中断本轮运行。
// ctx 取消后不再发起新请求，返回已经产出的记录。
func (a *Aggregator) Run(ctx context.Context, providers []string, enrich bool) ([]CFP, error) {
	selected := make([]Source, 0, len(providers))
	for _, p := range providers {
		s, ok := a.sources[p]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", p)
		}
		selected = append(selected, s)
	}

	var out []CFP
	for _, s := range selected {
		if ctx.Err() != nil {
			break
		}
		// 逐源完整物化惰性序列，源内顺序即 payload 顺序
		for c := range s.Fetch(ctx) {
			out = append(out, c)
		}
	}

	if enrich && ctx.Err() == nil {
		a.enrich(ctx, out)
	}
	return out, nil
}

// enrich 为每条记录查询评分。查询之间相互独立，用有界并发执行；
// 结果按下标写回，记录的数量与顺序不变，失败只是让 Rank 保持为空。
func (a *Aggregator) enrich(ctx context.Context, cfps []CFP) {
	if a.rank == nil {
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, enrichConcurrency)
	for i := range cfps {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			cfps[i].Rank = a.rank(ctx, cfps[i].Journal)
		}(i)
	}
	wg.Wait()
}
