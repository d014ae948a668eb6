package crawler

import (
	"context"
	"html"
	"iter"
	"log"
	"regexp"
	"strings"
)

// WarnFunc 接收采集过程中的软失败告警，由调用方在构造时注入；
// 告警是一等输出而不是绑定在运行环境上的副作用
type WarnFunc func(provider, msg string)

// logWarn 是未注入观察者时的兜底告警
func logWarn(provider, msg string) {
	log.Printf("[WARN] %s: %s — skipped", provider, msg)
}

// Source 抽象每一个征稿数据源。
// Fetch 返回按需产出的惰性序列：迭代过程中才发起网络请求，
// 重新迭代会重新执行一次抓取。
type Source interface {
	Name() string
	Fetch(ctx context.Context) iter.Seq[CFP]
}

// outcomeState 表示单个端点一次抓取策略的结果类别，
// 用显式结果驱动主备策略切换，而不是靠异常控制流
type outcomeState int

const (
	outcomeSuccess outcomeState = iota
	outcomeEmpty
	outcomeFailed
)

type fetchOutcome struct {
	state  outcomeState
	cfps   []CFP
	reason string
}

func outcomeOf(cfps []CFP) fetchOutcome {
	if len(cfps) == 0 {
		return fetchOutcome{state: outcomeEmpty}
	}
	return fetchOutcome{state: outcomeSuccess, cfps: cfps}
}

func failedOutcome(reason string) fetchOutcome {
	return fetchOutcome{state: outcomeFailed, reason: reason}
}

// cfpKeywords 用于从普通订阅源条目中筛出征稿/特刊类内容
var cfpKeywords = []string{
	"call for papers",
	"call-for-papers",
	"call_for_papers",
	"special issue",
	"special-issue",
	"special_issue",
	"cfp",
}

// looksLikeCFP 按标题与链接路径做关键字启发式判断
func looksLikeCFP(title, link string) bool {
	t := strings.ToLower(title)
	l := strings.ToLower(link)
	for _, kw := range cfpKeywords {
		if strings.Contains(t, kw) || strings.Contains(l, kw) {
			return true
		}
	}
	return false
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags 去掉订阅源摘要里的 HTML 标签并还原实体
func stripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(htmlTagPattern.ReplaceAllString(s, "")))
}

// feedFallback 是各数据源共用的备选策略：拉取订阅源、按关键字过滤、
// 把条目映射为记录（标题/摘要 → Title/Description，截稿日期从摘要文本提取）
func feedFallback(ctx context.Context, f *Fetcher, provider, journal, feedURL string) fetchOutcome {
	items := f.GetFeed(ctx, feedURL)
	if items == nil {
		return failedOutcome("feed unavailable")
	}

	cfps := make([]CFP, 0, len(items))
	for _, it := range items {
		if !looksLikeCFP(it.Title, it.Link) {
			continue
		}
		summary := it.Description
		if it.Content != "" {
			summary = it.Content
		}
		summary = stripTags(summary)

		cfps = append(cfps, CFP{
			Provider:    provider,
			Journal:     journal,
			Title:       defaultString(strings.TrimSpace(it.Title), "Untitled"),
			Description: truncateDescription(summary),
			Deadline:    ExtractDeadline(summary),
			Link:        it.Link,
		})
	}
	return outcomeOf(cfps)
}
