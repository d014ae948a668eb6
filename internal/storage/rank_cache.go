package storage

import (
	"context"
	"time"

	"github.com/cfphub/cfphub/internal/crawler"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RankCache 期刊评分缓存表：按期刊名缓存 Scimago 的 SJR 指标。
// 评分更新很慢（年度），长 TTL 可以省掉绝大部分外部查询。
type RankCache struct {
	Journal   string    `gorm:"primaryKey;size:256" json:"journal"`
	SJR       float64   `json:"sjr"`
	FetchedAt time.Time `gorm:"index" json:"fetchedAt"`
}

const rankCacheTTL = 30 * 24 * time.Hour

// GetRankCache 获取指定期刊的评分缓存，过期视为未命中
func (s *Store) GetRankCache(journal string) (float64, bool) {
	var cache RankCache
	silent := s.DB.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
	if err := silent.Where("journal = ?", journal).First(&cache).Error; err != nil {
		return 0, false
	}
	if time.Since(cache.FetchedAt) > rankCacheTTL {
		return 0, false
	}
	return cache.SJR, true
}

// SaveRankCache 写入或更新指定期刊的评分缓存
func (s *Store) SaveRankCache(journal string, sjr float64) error {
	cache := RankCache{
		Journal:   journal,
		SJR:       sjr,
		FetchedAt: time.Now(),
	}
	return s.DB.Save(&cache).Error
}

// CachedRankLookup 包装一次实时评分查询：优先命中本地缓存，
// 未命中时查询外部接口并回写；任何失败都只是返回 nil
func (s *Store) CachedRankLookup(lookup crawler.RankLookup) crawler.RankLookup {
	return func(ctx context.Context, journal string) *float64 {
		if journal == "" {
			return nil
		}
		if v, ok := s.GetRankCache(journal); ok {
			return &v
		}
		v := lookup(ctx, journal)
		if v != nil {
			_ = s.SaveRankCache(journal, *v)
		}
		return v
	}
}
