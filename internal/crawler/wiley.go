package crawler

import (
	"context"
	"encoding/json"
	"iter"
)

const (
	// Wiley 把征稿汇总为一份静态 JSON
	wileyCallsURL = "https://wol-prod-cfp-files.s3.amazonaws.com/v2/calls.json"
	wileyFeedURL  = "https://onlinelibrary.wiley.com/feed/rss"
)

// WileySource 抓取 Wiley 征稿汇总 JSON，失败时回退到 Wiley Online Library 订阅源
type WileySource struct {
	Fetcher *Fetcher
	Warn    WarnFunc

	APIURL  string
	FeedURL string
}

func NewWileySource(f *Fetcher, warn WarnFunc) *WileySource {
	if warn == nil {
		warn = logWarn
	}
	return &WileySource{
		Fetcher: f,
		Warn:    warn,
		APIURL:  wileyCallsURL,
		FeedURL: wileyFeedURL,
	}
}

func (w *WileySource) Name() string {
	return "wiley"
}

type wileyItem struct {
	JournalTitle string `json:"journalTitle"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Deadline     string `json:"deadline"`
	URL          string `json:"url"`
}

func (w *WileySource) Fetch(ctx context.Context) iter.Seq[CFP] {
	return func(yield func(CFP) bool) {
		out := w.fetchAPI(ctx)
		if out.state != outcomeSuccess {
			if out.state == outcomeFailed {
				w.Warn(w.Name(), out.reason)
			}
			out = feedFallback(ctx, w.Fetcher, w.Name(), "Wiley Journal", w.FeedURL)
			if out.state == outcomeFailed {
				w.Warn(w.Name(), out.reason)
				return
			}
		}
		for _, c := range out.cfps {
			if !yield(c) {
				return
			}
		}
	}
}

func (w *WileySource) fetchAPI(ctx context.Context) fetchOutcome {
	body, err := w.Fetcher.Get(ctx, w.APIURL)
	if err != nil {
		return failedOutcome("network error")
	}

	// 顶层就是数组
	var items []wileyItem
	if err := json.Unmarshal(body, &items); err != nil {
		return failedOutcome("bad JSON")
	}

	cfps := make([]CFP, 0, len(items))
	for _, it := range items {
		cfps = append(cfps, CFP{
			Provider:    w.Name(),
			Journal:     defaultString(it.JournalTitle, "Wiley Journal"),
			Title:       defaultString(it.Title, "Untitled"),
			Description: truncateDescription(it.Description),
			Deadline:    ExtractDeadline(it.Deadline),
			Link:        it.URL,
		})
	}
	return outcomeOf(cfps)
}
