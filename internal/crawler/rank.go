package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// 带 %s 的查询模板，%s 为转义后的期刊名
const scimagoAPITemplate = "https://www.scimagojr.com/journalrank.php?out=json&search=%s"

// RankLookup 按期刊名查询质量评分，查不到返回 nil；
// 作为外部协作方它被视为不可靠，任何失败都不允许影响整体运行
type RankLookup func(ctx context.Context, journal string) *float64

// RankClient 查询 Scimago 的期刊排名（SJR 指标）
type RankClient struct {
	Fetcher *Fetcher

	APITemplate string
}

func NewRankClient(f *Fetcher) *RankClient {
	return &RankClient{Fetcher: f, APITemplate: scimagoAPITemplate}
}

func (r *RankClient) Lookup(ctx context.Context, journal string) *float64 {
	if journal == "" {
		return nil
	}

	body, err := r.Fetcher.Get(ctx, fmt.Sprintf(r.APITemplate, url.QueryEscape(journal)))
	if err != nil {
		return nil
	}

	var rows []struct {
		SJR string `json:"SJR"`
	}
	if err := json.Unmarshal(body, &rows); err != nil || len(rows) == 0 {
		return nil
	}

	// SJR 用逗号作小数点，例如 "1,234"
	v, err := strconv.ParseFloat(strings.ReplaceAll(rows[0].SJR, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}
