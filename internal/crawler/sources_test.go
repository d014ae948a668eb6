package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
)

func collectAll(t *testing.T, s Source) []CFP {
	t.Helper()
	return slices.Collect(s.Fetch(context.Background()))
}

func noWarn(t *testing.T) WarnFunc {
	t.Helper()
	return func(provider, msg string) {
		t.Logf("warn: %s: %s", provider, msg)
	}
}

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Feed</title>
<item><title>Special Issue: Machine Learning in Food Science</title>
<link>https://example.com/special-issue/1</link>
<description>&lt;p&gt;Submission deadline 15 March 2026.&lt;/p&gt;</description></item>
<item><title>Editorial board update</title>
<link>https://example.com/news/42</link>
<description>Routine announcement, no dates.</description></item>
<item><title>New thematic collection</title>
<link>https://example.com/call-for-papers/7</link>
<description>Papers due 31 February 2025</description></item>
</channel></rss>`

func TestElsevierPrimaryStrategy(t *testing.T) {
	// 规范化映射：hits 键、submissionDeadline 字段、description 缺省为空
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":[{"journalTitle":"Foo","title":"Bar","submissionDeadline":"15 March 2026","url":"https://x"}]}`))
	}))
	defer srv.Close()

	src := NewElsevierSource(NewFetcher(0), noWarn(t))
	src.APIURL = srv.URL

	got := collectAll(t, src)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	c := got[0]
	if c.Provider != "elsevier" || c.Journal != "Foo" || c.Title != "Bar" {
		t.Fatalf("unexpected record: %+v", c)
	}
	if c.Description != "" {
		t.Fatalf("description = %q, want empty", c.Description)
	}
	if c.Deadline == nil || c.Deadline.Format(dateLayout) != "2026-03-15" {
		t.Fatalf("deadline = %v, want 2026-03-15", c.Deadline)
	}
	if c.Link != "https://x" {
		t.Fatalf("link = %q", c.Link)
	}
	if c.Posted != nil || c.Rank != nil {
		t.Fatalf("posted/rank should be absent: %+v", c)
	}
}

func TestElsevierAcceptsSpecialIssuesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"specialIssues":[{"title":"Old schema"},{"title":""}]}`))
	}))
	defer srv.Close()

	src := NewElsevierSource(NewFetcher(0), noWarn(t))
	src.APIURL = srv.URL

	got := collectAll(t, src)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	// 字段缺省值
	if got[0].Journal != "Elsevier Journal" {
		t.Fatalf("journal placeholder = %q", got[0].Journal)
	}
	if got[1].Title != "Untitled" {
		t.Fatalf("title placeholder = %q", got[1].Title)
	}
}

func TestElsevierFallsBackToFeedOnBadJSON(t *testing.T) {
	var warned []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>definitely not json</html>"))
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testFeedXML))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewElsevierSource(NewFetcher(0), func(provider, msg string) {
		warned = append(warned, provider+": "+msg)
	})
	src.APIURL = srv.URL + "/api"
	src.FeedURL = srv.URL + "/feed"

	got := collectAll(t, src)
	// 订阅源里 3 条，只有 2 条通过征稿关键字过滤
	if len(got) != 2 {
		t.Fatalf("got %d records from feed fallback, want 2", len(got))
	}
	if got[0].Title != "Special Issue: Machine Learning in Food Science" {
		t.Fatalf("first title = %q", got[0].Title)
	}
	if got[0].Deadline == nil || got[0].Deadline.Format(dateLayout) != "2026-03-15" {
		t.Fatalf("first deadline = %v", got[0].Deadline)
	}
	if strings.Contains(got[0].Description, "<p>") {
		t.Fatalf("feed description should have tags stripped: %q", got[0].Description)
	}
	// 第二条的 "31 February 2025" 是非法日期，deadline 保持缺失
	if got[1].Deadline != nil {
		t.Fatalf("invalid feed date should leave deadline nil, got %v", got[1].Deadline)
	}
	if len(warned) == 0 {
		t.Fatalf("primary failure should surface a warning")
	}
}

func TestElsevierNetworkFailureWithDeadFeed(t *testing.T) {
	src := NewElsevierSource(NewFetcher(0), noWarn(t))
	src.APIURL = "http://127.0.0.1:1/api"
	src.FeedURL = "http://127.0.0.1:1/feed"

	if got := collectAll(t, src); len(got) != 0 {
		t.Fatalf("got %d records, want 0 when both strategies fail", len(got))
	}
}

func TestWileyPrimaryStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"journalTitle":"J. Testing","title":"Call for Papers","description":"` +
			strings.Repeat("x", 300) + `","deadline":"1 July 2026","url":"https://wiley/1"}]`))
	}))
	defer srv.Close()

	src := NewWileySource(NewFetcher(0), noWarn(t))
	src.APIURL = srv.URL

	got := collectAll(t, src)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Provider != "wiley" || got[0].Journal != "J. Testing" {
		t.Fatalf("unexpected record: %+v", got[0])
	}
	if len([]rune(got[0].Description)) != descriptionMaxRunes {
		t.Fatalf("description not truncated to %d, got %d", descriptionMaxRunes, len([]rune(got[0].Description)))
	}
	if got[0].Deadline == nil || got[0].Deadline.Format(dateLayout) != "2026-07-01" {
		t.Fatalf("deadline = %v", got[0].Deadline)
	}
}

func TestMDPIIsolatesPerJournalFailure(t *testing.T) {
	mux := http.NewServeMux()
	// foods: primary 正常
	mux.HandleFunc("/journal/foods", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"specialIssues":[{"title":"Fermented Foods","deadline":"20 May 2026","url":"https://mdpi/foods/1"}]}`))
	})
	// nutrients: primary 坏掉，备选 feed 可用
	mux.HandleFunc("/journal/nutrients", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/rss/nutrients", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testFeedXML))
	})
	// metabolites: primary 与 feed 都失败
	mux.HandleFunc("/journal/metabolites", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/rss/metabolites", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewMDPISource(NewFetcher(0), noWarn(t))
	src.APITemplate = srv.URL + "/journal/%s"
	src.FeedTemplate = srv.URL + "/rss/%s"

	got := collectAll(t, src)
	// foods 1 条 + nutrients 备选 2 条 + metabolites 0 条
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Journal != "Foods" {
		t.Fatalf("first journal = %q, want Foods (capitalized slug)", got[0].Journal)
	}
	if got[1].Journal != "Nutrients" || got[1].Provider != "mdpi" {
		t.Fatalf("fallback record: %+v", got[1])
	}
}

func TestSourceFetchIsReExecutable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"hits":[{"title":"A"}]}`))
	}))
	defer srv.Close()

	src := NewElsevierSource(NewFetcher(0), noWarn(t))
	src.APIURL = srv.URL

	_ = collectAll(t, src)
	_ = collectAll(t, src)
	// 重新迭代会重新执行网络请求
	if calls != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls)
	}
}
