package crawler

import (
	"regexp"
	"strconv"
	"time"
)

// deadlinePattern 匹配 "15 March 2026" 形式的日期：1-2 位日 + 英文月份全称 + 4 位年
var deadlinePattern = regexp.MustCompile(
	`\b(\d{1,2})\s*(January|February|March|April|May|June|July|August|September|October|November|December)\s*(\d{4})\b`)

// monthOrdinal 固定的月份映射表
var monthOrdinal = map[string]time.Month{
	"January":   time.January,
	"February":  time.February,
	"March":     time.March,
	"April":     time.April,
	"May":       time.May,
	"June":      time.June,
	"July":      time.July,
	"August":    time.August,
	"September": time.September,
	"October":   time.October,
	"November":  time.November,
	"December":  time.December,
}

// ExtractDeadline 从自由文本中提取截稿日期，找不到或日期非法时返回 nil。
// 只取第一个匹配；当文本同时包含发布日期与截稿日期时可能取错，
// 这是已知限制，上游数据没有提供可靠的消歧依据。
func ExtractDeadline(text string) *time.Time {
	if text == "" {
		return nil
	}
	m := deadlinePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	day, _ := strconv.Atoi(m[1])
	month := monthOrdinal[m[2]]
	year, _ := strconv.Atoi(m[3])

	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date 会把 2 月 31 日之类的组合归一化到下个月，借此识别非法日期
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return nil
	}
	return &d
}
