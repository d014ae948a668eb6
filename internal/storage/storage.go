package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cfphub/cfphub/internal/processor"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Provider 描述一个征稿来源，例如 elsevier / wiley / mdpi
type Provider struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:64;uniqueIndex" json:"code"`
	Name    string `gorm:"size:128" json:"name"`
	BaseURL string `gorm:"size:256" json:"baseUrl"`
	Status  string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CFP 是征稿记录的持久化形态，ID 为链接哈希，跨批次幂等
type CFP struct {
	ID       string `gorm:"primaryKey;size:40" json:"id"`
	Provider string `gorm:"size:64;index" json:"provider"`
	Journal  string `gorm:"size:256;index" json:"journal"`
	Title    string `gorm:"size:512" json:"title"`
	// 采集时已按 200 字符截断，列宽留出余量
	Description  string            `gorm:"size:600" json:"description"`
	Posted       *time.Time        `json:"posted"`
	Deadline     *time.Time        `gorm:"index" json:"deadline"`
	DeadlineDate string            `gorm:"size:10;index" json:"deadlineDate"` // YYYY-MM-DD，便于按日期筛选
	Link         string            `gorm:"size:1024;index" json:"link"`
	Rank         *float64          `json:"rank"`
	ExtraData    datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Provider{}, &CFP{}, &RankCache{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// EnsureProvider 确保某个来源存在
func (s *Store) EnsureProvider(code, name, baseURL string) (*Provider, error) {
	p := &Provider{}
	if err := s.DB.Where("code = ?", code).First(p).Error; err == nil {
		return p, nil
	}

	p = &Provider{
		Code:    code,
		Name:    name,
		BaseURL: baseURL,
		Status:  "active",
	}
	if err := s.DB.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListProviders 返回全部已注册来源
func (s *Store) ListProviders() ([]Provider, error) {
	var list []Provider
	err := s.DB.Order("code ASC").Find(&list).Error
	return list, err
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度。
// 这是对上游采集层截断的双保险，防止异常长文本导致入库失败。
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// SaveBatch 保存一批征稿记录，以 ID（链接哈希）作为幂等键；
// 已存在的记录更新标题/截稿日期/评分等字段
func (s *Store) SaveBatch(items []processor.ProcessedCFP) error {
	for _, it := range items {
		deadlineDate := ""
		if it.Deadline != nil {
			deadlineDate = it.Deadline.Format("2006-01-02")
		}

		title := truncateRunesDB(toValidUTF8(it.Title), 500)
		description := truncateRunesDB(toValidUTF8(it.Description), 600)

		n := &CFP{
			ID:           it.ID,
			Provider:     it.Provider,
			Journal:      truncateRunesDB(toValidUTF8(it.Journal), 250),
			Title:        title,
			Description:  description,
			Posted:       it.Posted,
			Deadline:     it.Deadline,
			DeadlineDate: deadlineDate,
			Link:         it.Link,
			Rank:         it.Rank,
		}

		if err := s.DB.Where("id = ?", it.ID).FirstOrCreate(n).Error; err != nil {
			return err
		}
		updates := map[string]any{
			"title":         title,
			"description":   description,
			"deadline":      it.Deadline,
			"deadline_date": deadlineDate,
		}
		// 评分为空时不覆盖已有值：增强是可选步骤，不应抹掉之前的结果
		if it.Rank != nil {
			updates["rank"] = *it.Rank
		}
		_ = s.DB.Model(n).Updates(updates).Error
	}

	// 列表缓存依赖短 TTL 自然过期，不做按 key 通配删除
	return nil
}

// ListCFPs 按来源、排序返回征稿列表，并使用 Redis 做简单缓存。
// provider: 来源 code，可为空
// sort: deadline(默认，按截稿日期升序) / latest
// upcoming: 只保留今天之后截稿的记录
func (s *Store) ListCFPs(provider, sort string, limit int, upcoming bool) ([]CFP, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if sort == "" {
		sort = "deadline"
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("cfp:list:%s:%s:%d:%t", provider, sort, limit, upcoming)

	// L2: Redis 缓存
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []CFP
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	// DB 兜底
	var list []CFP
	db := s.DB.Model(&CFP{})

	if provider != "" {
		db = db.Where("provider = ?", provider)
	}
	if upcoming {
		db = db.Where("deadline >= ?", time.Now().Format("2006-01-02"))
	}

	switch sort {
	case "latest":
		db = db.Order("created_at DESC")
	default:
		// 无截稿日期的排在最后
		db = db.Order("deadline IS NULL").Order("deadline ASC")
	}

	if err := db.Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	// 回写缓存（5 分钟）
	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// ExportAll 按导出契约生成规范字段表序列：日期为 YYYY-MM-DD，缺失字段为 null
func (s *Store) ExportAll() ([]map[string]any, error) {
	var list []CFP
	if err := s.DB.Order("provider ASC").Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(list))
	for _, c := range list {
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
			m["posted"] = c.Posted.Format("2006-01-02")
		}
		if c.Deadline != nil {
			m["deadline"] = c.Deadline.Format("2006-01-02")
		}
		if c.Rank != nil {
			m["rank"] = *c.Rank
		}
		out = append(out, m)
	}
	return out, nil
}
