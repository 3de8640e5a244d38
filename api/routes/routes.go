package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/vincentdare/auto-extractor/api/handlers"
	"github.com/vincentdare/auto-extractor/api/middleware"
)

// SetupRoutes wires the dashboard-facing API.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	docs := v1.Group("/documents")
	{
		docs.POST("/:class/upload", h.Pipeline.UploadDocument)
		docs.POST("/:class/batch", h.Pipeline.UploadBatch)
	}

	run := v1.Group("/pipeline")
	{
		run.POST("/run", h.Pipeline.StartRun)
		run.GET("/status/:taskId", h.Pipeline.GetStatus)
		run.DELETE("/task/:taskId", h.Pipeline.CancelTask)
	}

	artifacts := v1.Group("/artifacts")
	{
		artifacts.GET("", h.Pipeline.ListArtifacts)
		artifacts.GET("/download/*path", h.Pipeline.DownloadArtifact)
		artifacts.GET("/missing-names", h.Pipeline.MissingNames)
		artifacts.DELETE("", h.Pipeline.Purge)
	}

	cfg := v1.Group("/config")
	{
		cfg.GET("/templates", h.Config.GetTemplates)
		cfg.PUT("/templates", h.Config.UpdateTemplates)
		cfg.GET("/fields", h.Config.GetFields)
	}
}
