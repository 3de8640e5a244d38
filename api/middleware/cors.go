package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS lets the dashboard call the API from another origin. The artifact
// download endpoint sets Content-Disposition, which browsers hide from
// scripts unless it is exposed here.
func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = []string{"*"}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type"}
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	return cors.New(cfg)
}
