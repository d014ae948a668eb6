package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"unicode"
)

const (
	// 带 %s 的模板，%s 为期刊 slug
	mdpiAPITemplate  = "https://www.mdpi.com/journal/%s?format=cfp&limit=100"
	mdpiFeedTemplate = "https://www.mdpi.com/rss/journal/%s"
)

// mdpiJournals 是固定的目标期刊列表，没有在线发现逻辑
var mdpiJournals = []string{"foods", "nutrients", "metabolites"}

// MDPISource 按期刊逐个抓取 MDPI 的特刊征稿接口；
// 单个期刊失败回退到该期刊的订阅源，且不影响其余期刊
type MDPISource struct {
	Fetcher *Fetcher
	Warn    WarnFunc

	Journals     []string
	APITemplate  string
	FeedTemplate string
}

func NewMDPISource(f *Fetcher, warn WarnFunc) *MDPISource {
	if warn == nil {
		warn = logWarn
	}
	return &MDPISource{
		Fetcher:      f,
		Warn:         warn,
		Journals:     mdpiJournals,
		APITemplate:  mdpiAPITemplate,
		FeedTemplate: mdpiFeedTemplate,
	}
}

func (m *MDPISource) Name() string {
	return "mdpi"
}

type mdpiItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	URL         string `json:"url"`
}

type mdpiResp struct {
	SpecialIssues []mdpiItem `json:"specialIssues"`
}

func (m *MDPISource) Fetch(ctx context.Context) iter.Seq[CFP] {
	return func(yield func(CFP) bool) {
		for _, j := range m.Journals {
			if ctx.Err() != nil {
				return
			}

			out := m.fetchJournal(ctx, j)
			if out.state != outcomeSuccess {
				if out.state == outcomeFailed {
					m.Warn(m.Name(), fmt.Sprintf("%s %s", j, out.reason))
				}
				out = feedFallback(ctx, m.Fetcher, m.Name(), capitalize(j),
					fmt.Sprintf(m.FeedTemplate, j))
				if out.state == outcomeFailed {
					m.Warn(m.Name(), fmt.Sprintf("%s %s", j, out.reason))
					continue
				}
			}
			for _, c := range out.cfps {
				if !yield(c) {
					return
				}
			}
		}
	}
}

func (m *MDPISource) fetchJournal(ctx context.Context, journal string) fetchOutcome {
	body, err := m.Fetcher.Get(ctx, fmt.Sprintf(m.APITemplate, journal))
	if err != nil {
		return failedOutcome("network error")
	}

	var resp mdpiResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return failedOutcome("bad JSON")
	}

	cfps := make([]CFP, 0, len(resp.SpecialIssues))
	for _, it := range resp.SpecialIssues {
		cfps = append(cfps, CFP{
			Provider:    m.Name(),
			Journal:     capitalize(journal),
			Title:       defaultString(it.Title, "Untitled"),
			Description: truncateDescription(it.Description),
			Deadline:    ExtractDeadline(it.Deadline),
			Link:        it.URL,
		})
	}
	return outcomeOf(cfps)
}

// capitalize 把期刊 slug 的首字母大写，作为期刊展示名
func capitalize(s string) string {
	rs := []rune(s)
	if len(rs) == 0 {
		return s
	}
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}
