package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// 部分出版社的征稿页面由前端渲染，普通 HTTP 抓取拿不到卡片列表。
// 该服务维护一个常驻 headless 浏览器，按调用方给出的选择器提取
// 征稿卡片，供主采集进程在静态抓取失败时兜底调用。

type extractRequest struct {
	URL              string `json:"url"`
	ListSelector     string `json:"listSelector"`
	TitleSelector    string `json:"titleSelector"`
	JournalSelector  string `json:"journalSelector"`
	LinkSelector     string `json:"linkSelector"`
	DeadlineSelector string `json:"deadlineSelector"`
	MaxCards         int    `json:"maxCards"`
}

type cfpCard struct {
	Title       string `json:"title"`
	Journal     string `json:"journal"`
	Link        string `json:"link"`
	DeadlineRaw string `json:"deadlineRaw"`
}

type extractResponse struct {
	OK    bool      `json:"ok"`
	Cards []cfpCard `json:"cards,omitempty"`
	Error string    `json:"error,omitempty"`
}

func main() {
	// 创建浏览器执行器与顶层上下文，整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: warmup chromedp failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/extract", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, extractResponse{OK: false, Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, extractResponse{OK: false, Error: "url is required"})
			return
		}
		if req.ListSelector == "" {
			writeJSON(w, http.StatusBadRequest, extractResponse{OK: false, Error: "listSelector is required"})
			return
		}
		if req.MaxCards <= 0 || req.MaxCards > 200 {
			req.MaxCards = 50
		}

		// 每个请求用独立的超时上下文，复用同一个 browserCtx
		ctx, cancel := context.WithTimeout(browserCtx, 30*time.Second)
		defer cancel()

		var raw string
		err := chromedp.Run(ctx,
			chromedp.Navigate(req.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(extractJS(req), &raw),
		)
		if err != nil {
			log.Printf("extract error: %v (url=%s)", err, req.URL)
			writeJSON(w, http.StatusOK, extractResponse{OK: false, Error: err.Error()})
			return
		}

		var cards []cfpCard
		if err := json.Unmarshal([]byte(raw), &cards); err != nil {
			writeJSON(w, http.StatusOK, extractResponse{OK: false, Error: "bad page result: " + err.Error()})
			return
		}

		out := cards[:0]
		for _, c := range cards {
			c.Title = strings.TrimSpace(c.Title)
			c.Journal = strings.TrimSpace(c.Journal)
			if c.Title == "" && c.Link == "" {
				continue
			}
			out = append(out, c)
		}
		if len(out) == 0 {
			writeJSON(w, http.StatusOK, extractResponse{OK: false, Error: "no cards found"})
			return
		}

		writeJSON(w, http.StatusOK, extractResponse{OK: true, Cards: out})
	})

	addr := ":" + getEnv("PORT", "4000")
	log.Printf("browser-scraper listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// extractJS 返回一段 JS，在页面中按请求给出的选择器提取卡片，
// 结果序列化成 JSON 字符串带回。
func extractJS(req extractRequest) string {
	return fmt.Sprintf(`(function () {
  function pick(card, selector, attr) {
    if (!selector) return "";
    var el = card.querySelector(selector);
    if (!el) return "";
    if (attr) return el.getAttribute(attr) || "";
    return (el.innerText || "").trim();
  }

  var cards = [];
  var nodes = document.querySelectorAll(%q);
  for (var i = 0; i < nodes.length && cards.length < %d; i++) {
    var node = nodes[i];
    var link = pick(node, %q, "href");
    if (link && link.indexOf("/") === 0) {
      link = location.origin + link;
    }
    cards.push({
      title: pick(node, %q, ""),
      journal: pick(node, %q, ""),
      link: link,
      deadlineRaw: pick(node, %q, "")
    });
  }
  return JSON.stringify(cards);
})()`,
		req.ListSelector, req.MaxCards,
		req.LinkSelector,
		req.TitleSelector,
		req.JournalSelector,
		req.DeadlineSelector,
	)
}
