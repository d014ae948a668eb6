package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/cfphub/cfphub/internal/crawler"
)

// ProcessedCFP 是写入存储层前的统一结构
type ProcessedCFP struct {
	ID          string
	Provider    string
	Journal     string
	Title       string
	Description string
	Posted      *time.Time
	Deadline    *time.Time
	Link        string
	Rank        *float64
}

// SimpleProcessor 做最基础的数据清洗、可用性过滤与 ID 生成
type SimpleProcessor struct{}

func NewSimpleProcessor() *SimpleProcessor {
	return &SimpleProcessor{}
}

// Process 过滤不可用记录（provider 为空，或 title 与 link 同时为空），
// 按 ID 去重并生成入库结构；去重只在一批之内，跨批的幂等由存储层按 ID 保证
func (p *SimpleProcessor) Process(items []crawler.CFP) []ProcessedCFP {
	out := make([]ProcessedCFP, 0, len(items))
	seen := make(map[string]struct{})

	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if it.Provider == "" || (title == "" && it.Link == "") {
			continue
		}

		id := hashID(it.Provider, it.Link, title)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		out = append(out, ProcessedCFP{
			ID:          id,
			Provider:    it.Provider,
			Journal:     strings.TrimSpace(it.Journal),
			Title:       title,
			Description: strings.TrimSpace(it.Description),
			Posted:      it.Posted,
			Deadline:    it.Deadline,
			Link:        it.Link,
			Rank:        it.Rank,
		})
	}

	return out
}

// hashID 以链接为幂等键；个别来源不给链接时退化为 provider+标题
func hashID(provider, link, title string) string {
	key := link
	if key == "" {
		key = provider + "|" + title
	}
	h := sha1.New()
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}
