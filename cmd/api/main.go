package main

import (
	"crypto/subtle"
	"log"
	"net/http"
	"path/filepath"

	"github.com/cfphub/cfphub/internal/api"
	"github.com/cfphub/cfphub/internal/config"
	"github.com/cfphub/cfphub/internal/crawler"
	"github.com/cfphub/cfphub/internal/processor"
	"github.com/cfphub/cfphub/internal/scheduler"
	"github.com/cfphub/cfphub/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	// 确保各个来源存在
	if _, err := store.EnsureProvider("elsevier", "Elsevier", "https://www.journals.elsevier.com"); err != nil {
		log.Fatalf("ensure provider elsevier failed: %v", err)
	}
	if _, err := store.EnsureProvider("wiley", "Wiley", "https://onlinelibrary.wiley.com"); err != nil {
		log.Fatalf("ensure provider wiley failed: %v", err)
	}
	if _, err := store.EnsureProvider("mdpi", "MDPI", "https://www.mdpi.com"); err != nil {
		log.Fatalf("ensure provider mdpi failed: %v", err)
	}
	if _, err := store.EnsureProvider("sciencedirect", "ScienceDirect", "https://www.sciencedirect.com/browse/calls-for-papers"); err != nil {
		log.Fatalf("ensure provider sciencedirect failed: %v", err)
	}

	// 采集告警统一走日志，运维通过日志面板观察各来源健康度
	warn := func(provider, msg string) {
		log.Printf("[WARN] %s: %s, skipped", provider, msg)
	}

	fetcher := crawler.NewFetcher(cfg.FetchDelay)
	sources := []crawler.Source{
		crawler.NewElsevierSource(fetcher, warn),
		crawler.NewWileySource(fetcher, warn),
		crawler.NewMDPISource(fetcher, warn),
		crawler.NewScienceDirectSource(fetcher, warn),
	}

	// 评分查询套一层本地缓存，避免每轮采集都打 Scimago
	rank := store.CachedRankLookup(crawler.NewRankClient(fetcher).Lookup)
	agg := crawler.NewAggregator(sources, rank, warn)

	// 按数据源更新频率配置独立的采集周期；上游 CFP 列表变化很慢
	jobs := []scheduler.SourceJob{
		{Provider: "elsevier", CronSpec: "0 */6 * * *"},
		{Provider: "wiley", CronSpec: "0 */6 * * *"},
		{Provider: "mdpi", CronSpec: "0 */6 * * *"},
		{Provider: "sciencedirect", CronSpec: "30 */12 * * *"},
	}

	p := processor.NewSimpleProcessor()
	s, err := scheduler.New(jobs, agg, p, store, cfg.EnrichRank)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	// API
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(store)
	apiServer.RegisterRoutes(r)

	// 若配置了前端目录，则托管 SPA 静态文件并做 fallback
	if cfg.WebRoot != "" {
		assetsDir := filepath.Join(cfg.WebRoot, "assets")
		indexFile := filepath.Join(cfg.WebRoot, "index.html")
		r.Static("/assets", assetsDir)
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet {
				c.Status(http.StatusNotFound)
				return
			}
			// SPA：未匹配 API 的 GET 均返回 index.html
			c.File(indexFile)
		})
	}

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// basicAuthMiddleware 为整个站点增加一个简单的 Basic Auth 访问密码。
// 仅当配置了 APP_BASIC_USER / APP_BASIC_PASS 时启用。
// /health 不做认证，便于健康检查。
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
