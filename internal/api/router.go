package api

import (
	"net/http"
	"strconv"

	"github.com/cfphub/cfphub/internal/storage"
	"github.com/gin-gonic/gin"
)

type Server struct {
	store *storage.Store
}

func NewServer(store *storage.Store) *Server {
	return &Server{store: store}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/cfps", s.listCFPs)
		v1.GET("/providers", s.listProviders)
		v1.GET("/export", s.export)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCFPs(c *gin.Context) {
	provider := c.Query("provider")
	sort := c.DefaultQuery("sort", "deadline")
	if sort != "deadline" && sort != "latest" {
		sort = "deadline"
	}
	upcoming := c.DefaultQuery("upcoming", "false") == "true"

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50
	}

	items, err := s.store.ListCFPs(provider, sort, limit, upcoming)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) listProviders(c *gin.Context) {
	items, err := s.store.ListProviders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

// export 输出规范导出产物：单个 JSON 数组，日期为 YYYY-MM-DD、缺失字段为 null，
// 与 cmd/export 写出的文件格式一致
func (s *Server) export(c *gin.Context) {
	items, err := s.store.ExportAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, items)
}
