package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware lets any origin read the public API without credentials.
// The /admin routes accept cross-origin calls with the session cookie only
// from adminOrigins; with none configured they stay same-origin.
func CORSMiddleware(adminOrigins []string) gin.HandlerFunc {
	public := cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
		MaxAge:           12 * time.Hour,
	})

	var admin gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if len(adminOrigins) > 0 {
		admin = cors.New(cors.Config{
			AllowOrigins:     adminOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		})
	}

	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/admin") {
			admin(c)
			return
		}
		public(c)
	}
}
