package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/internal/pipeline"
	"github.com/vincentdare/auto-extractor/internal/service/extraction"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

type PipelineHandler struct {
	service extraction.Service
	logger  logger.Logger
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewPipelineHandler(service extraction.Service, log logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		service: service,
		logger:  log,
	}
}

// UploadDocument receives one report PDF for the class in the URL.
func (h *PipelineHandler) UploadDocument(c *gin.Context) {
	class, err := models.ParseClass(c.Param("class"))
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Unknown document class", err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid file upload", err)
		return
	}
	defer file.Close()

	result, err := h.service.UploadDocument(c.Request.Context(), class, file, header)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to store upload", err)
		return
	}
	if !result.Validation.IsValid {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UploadBatch receives several PDFs for one class in a single form.
func (h *PipelineHandler) UploadBatch(c *gin.Context) {
	class, err := models.ParseClass(c.Param("class"))
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Unknown document class", err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	results, err := h.service.UploadBatch(c.Request.Context(), class, files)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Batch upload failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploaded": len(results),
		"results":  results,
	})
}

// StartRun queues a full pipeline run.
func (h *PipelineHandler) StartRun(c *gin.Context) {
	task, err := h.service.StartRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			h.handleError(c, http.StatusConflict, "A run is already in progress", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to start run", err)
		return
	}

	c.JSON(http.StatusAccepted, task)
}

// GetStatus reports the state of a queued or finished run.
func (h *PipelineHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	task, err := h.service.GetTaskStatus(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Task not found", err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// CancelTask removes a pending run from the queue.
func (h *PipelineHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	if err := h.service.CancelTask(c.Request.Context(), taskID); err != nil {
		h.handleError(c, http.StatusNotFound, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"taskId": taskID, "status": "cancelled"})
}

// ListArtifacts enumerates everything under the output tree.
func (h *PipelineHandler) ListArtifacts(c *gin.Context) {
	artifacts, err := h.service.ListArtifacts()
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list artifacts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"artifacts": artifacts})
}

// DownloadArtifact streams one output file by its relative path.
func (h *PipelineHandler) DownloadArtifact(c *gin.Context) {
	// Wildcard params keep their leading slash.
	rel := strings.TrimPrefix(c.Param("path"), "/")
	path, err := h.service.ArtifactPath(rel)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Artifact not found", err)
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

// MissingNames serves the audit log of records whose customer name every
// heuristic failed to read.
func (h *PipelineHandler) MissingNames(c *gin.Context) {
	path, err := h.service.ArtifactPath("missing_names.csv")
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) {
			c.JSON(http.StatusOK, gin.H{"message": "no missing names recorded"})
			return
		}
		h.handleError(c, http.StatusNotFound, "Audit log not found", err)
		return
	}

	c.FileAttachment(path, "missing_names.csv")
}

// Purge clears the dataset, image and output trees immediately.
func (h *PipelineHandler) Purge(c *gin.Context) {
	if err := h.service.Purge(); err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			h.handleError(c, http.StatusConflict, "A run is in progress, purge refused", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Purge failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "purged"})
}

func (h *PipelineHandler) handleError(c *gin.Context, status int, message string, err error) {
	resp := ErrorResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
		h.logger.Error(message, logger.Error(err))
	}
	c.JSON(status, resp)
}
