package crawler

import (
	"context"
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const sciencedirectBrowseURL = "https://www.sciencedirect.com/browse/calls-for-papers"

// ScienceDirectSource 直接解析 ScienceDirect 的征稿浏览页。
// 这是纯 HTML 来源，没有订阅源备选：页面结构变化时退化为
// 0 条记录 + 告警，不会中断整体采集。
type ScienceDirectSource struct {
	Fetcher *Fetcher
	Warn    WarnFunc

	URL string
}

func NewScienceDirectSource(f *Fetcher, warn WarnFunc) *ScienceDirectSource {
	if warn == nil {
		warn = logWarn
	}
	return &ScienceDirectSource{
		Fetcher: f,
		Warn:    warn,
		URL:     sciencedirectBrowseURL,
	}
}

func (s *ScienceDirectSource) Name() string {
	return "sciencedirect"
}

func (s *ScienceDirectSource) Fetch(ctx context.Context) iter.Seq[CFP] {
	return func(yield func(CFP) bool) {
		if ctx.Err() != nil {
			return
		}

		host := hostOf(s.URL)
		c := colly.NewCollector(
			colly.AllowedDomains(host, "www."+host),
			colly.UserAgent(fetchUserAgent),
		)
		c.SetRequestTimeout(fetchClientTimeout)

		results := make([]CFP, 0, 50)

		// 页面结构可能调整，基于当前卡片式 DOM 做“尽力而为”的解析
		c.OnHTML("article", func(e *colly.HTMLElement) {
			title := strings.TrimSpace(e.ChildText("h3"))
			journal := strings.TrimSpace(e.DOM.Find("a[href*='/journal/']").First().Text())

			link := ""
			if href := e.ChildAttr("a[href*='call-for-papers']", "href"); href != "" {
				link = e.Request.AbsoluteURL(href)
			}
			if title == "" && link == "" {
				return
			}

			deadlineRaw := strings.TrimSpace(e.ChildText("time"))
			if deadlineRaw == "" {
				deadlineRaw = firstDateText(e.DOM)
			}

			results = append(results, CFP{
				Provider:    s.Name(),
				Journal:     defaultString(journal, "ScienceDirect Journal"),
				Title:       defaultString(title, "Untitled"),
				Description: truncateDescription(strings.TrimSpace(e.ChildText("p"))),
				Deadline:    ExtractDeadline(deadlineRaw),
				Link:        link,
			})
		})

		if err := c.Visit(s.URL); err != nil {
			s.Warn(s.Name(), "network error")
			return
		}
		if len(results) == 0 {
			s.Warn(s.Name(), "no cards found")
			return
		}

		for _, c := range results {
			if ctx.Err() != nil {
				return
			}
			if !yield(c) {
				return
			}
		}
	}
}

// firstDateText 在卡片内找第一段包含日期样式文本的节点（截稿日期常在 span/div 里）
func firstDateText(sel *goquery.Selection) string {
	var found string
	sel.Find("span, div, p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if t == "" || len(t) > 120 {
			return true
		}
		if deadlinePattern.MatchString(t) {
			found = t
			return false
		}
		return true
	})
	return found
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
