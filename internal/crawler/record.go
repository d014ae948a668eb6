package crawler

import "time"

// descriptionMaxRunes 是 Description 字段在构造时的截断长度，
// 截断是有损且不可逆的，用于控制导出文件体积
const descriptionMaxRunes = 200

// dateLayout 是对外导出时日历日期的统一格式
const dateLayout = "2006-01-02"

// CFP 是归一化后的征稿（Call for Papers）记录。
// 构造后视为不可变值对象，唯一的例外是增强阶段对 Rank 的一次性赋值。
type CFP struct {
	Provider    string
	Journal     string
	Title       string
	Description string
	Posted      *time.Time // 当前没有数据源填充该字段，保留在模型中
	Deadline    *time.Time
	Link        string
	Rank        *float64
}

// truncateDescription 按 rune 截断介绍文案，超长时恰好保留前 descriptionMaxRunes 个字符
func truncateDescription(s string) string {
	rs := []rune(s)
	if len(rs) <= descriptionMaxRunes {
		return s
	}
	return string(rs[:descriptionMaxRunes])
}

// ToMap 生成规范的导出字段表：日期渲染为 YYYY-MM-DD 字符串，
// 缺失的可选字段统一输出 null（与导出产物的消费方约定一致）
func (c CFP) ToMap() map[string]any {
	m := map[string]any{
		"provider":    c.Provider,
		"journal":     c.Journal,
		"title":       c.Title,
		"description": c.Description,
		"posted":      nil,
		"deadline":    nil,
		"link":        c.Link,
		"rank":        nil,
	}
	if c.Posted != nil {
		m["posted"] = c.Posted.Format(dateLayout)
	}
	if c.Deadline != nil {
		m["deadline"] = c.Deadline.Format(dateLayout)
	}
	if c.Rank != nil {
		m["rank"] = *c.Rank
	}
	return m
}

// defaultString 在 s 为空时返回占位值
func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
