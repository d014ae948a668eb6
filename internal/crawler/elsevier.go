package crawler

import (
	"context"
	"encoding/json"
	"iter"
)

const (
	elsevierAPIURL  = "https://api.journals.elsevier.com/special-issues?limit=100"
	elsevierFeedURL = "https://www.journals.elsevier.com/rss/calls-for-papers.xml"
)

// ElsevierSource 抓取 Elsevier 特刊征稿 API，失败时回退到征稿订阅源
type ElsevierSource struct {
	Fetcher *Fetcher
	Warn    WarnFunc

	APIURL  string
	FeedURL string
}

func NewElsevierSource(f *Fetcher, warn WarnFunc) *ElsevierSource {
	if warn == nil {
		warn = logWarn
	}
	return &ElsevierSource{
		Fetcher: f,
		Warn:    warn,
		APIURL:  elsevierAPIURL,
		FeedURL: elsevierFeedURL,
	}
}

func (e *ElsevierSource) Name() string {
	return "elsevier"
}

type elsevierItem struct {
	JournalTitle       string `json:"journalTitle"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	SubmissionDeadline string `json:"submissionDeadline"`
	URL                string `json:"url"`
}

// 上游 API 的列表字段在 specialIssues 与 hits 之间漂移过，两个都认
type elsevierResp struct {
	SpecialIssues []elsevierItem `json:"specialIssues"`
	Hits          []elsevierItem `json:"hits"`
}

func (e *ElsevierSource) Fetch(ctx context.Context) iter.Seq[CFP] {
	return func(yield func(CFP) bool) {
		out := e.fetchAPI(ctx)
		if out.state != outcomeSuccess {
			if out.state == outcomeFailed {
				e.Warn(e.Name(), out.reason)
			}
			out = feedFallback(ctx, e.Fetcher, e.Name(), "Elsevier Journal", e.FeedURL)
			if out.state == outcomeFailed {
				e.Warn(e.Name(), out.reason)
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

func (e *ElsevierSource) fetchAPI(ctx context.Context) fetchOutcome {
	body, err := e.Fetcher.Get(ctx, e.APIURL)
	if err != nil {
		return failedOutcome("network error")
	}

	var resp elsevierResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return failedOutcome("bad JSON")
	}

	items := resp.SpecialIssues
	if len(items) == 0 {
		items = resp.Hits
	}

	cfps := make([]CFP, 0, len(items))
	for _, it := range items {
		cfps = append(cfps, CFP{
			Provider:    e.Name(),
			Journal:     defaultString(it.JournalTitle, "Elsevier Journal"),
			Title:       defaultString(it.Title, "Untitled"),
			Description: truncateDescription(it.Description),
			Deadline:    ExtractDeadline(it.SubmissionDeadline),
			Link:        it.URL,
		})
	}
	return outcomeOf(cfps)
}
