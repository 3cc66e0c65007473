package middleware

import (
	"strings"
	"time"

	"docqa-go/pkg/log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultCORSOrigin 在未配置任何来源时使用。
const DefaultCORSOrigin = "http://localhost:5173"

// CORS 只对 /api/ 下的路径生效；origins 中包含 "*" 时允许任意来源。
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	allowAll := false
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
		if len(cfg.AllowOrigins) == 0 {
			log.Warnf("未配置 CORS 来源，使用默认值 %s", DefaultCORSOrigin)
			cfg.AllowOrigins = []string{DefaultCORSOrigin}
		}
		cfg.AllowCredentials = true
	}
	handler := cors.New(cfg)

	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}
		handler(c)
	}
}
