package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fatura/internal/config"
)

const (
	corsMethods       = "GET, POST, PUT, DELETE, OPTIONS"
	corsHeaders       = "Content-Type, Accept, Origin, X-Requested-With, X-Request-ID"
	corsExposeHeaders = "Content-Disposition, X-Request-ID"
)

// CORS echoes the request origin back only when cfg admits it. Preflights
// end here with 204 either way; a rejected origin just gets no allow headers.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	maxAge := ""
	if cfg.MaxAgeSecs > 0 {
		maxAge = strconv.Itoa(cfg.MaxAgeSecs)
	}

	return func(c *gin.Context) {
		c.Header("Vary", "Origin")

		if origin := c.GetHeader("Origin"); cfg.AllowsOrigin(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			if maxAge != "" {
				h.Set("Access-Control-Max-Age", maxAge)
			}
		}

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
