package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// ConfigHandler edits the message templates and exposes the field structure
// the parser projects records onto.
type ConfigHandler struct {
	configDir string
	logger    logger.Logger
}

func NewConfigHandler(configDir string, log logger.Logger) *ConfigHandler {
	return &ConfigHandler{
		configDir: configDir,
		logger:    log,
	}
}

func (h *ConfigHandler) GetTemplates(c *gin.Context) {
	templates, err := config.LoadTemplates(h.configDir)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to load templates", err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// UpdateTemplates replaces the stored message templates. Only known document
// classes are accepted; {COLUMN} placeholders are resolved at parse time, so
// their names are not validated here.
func (h *ConfigHandler) UpdateTemplates(c *gin.Context) {
	var templates config.Templates
	if err := c.ShouldBindJSON(&templates); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid template payload", err)
		return
	}

	for class := range templates {
		if _, err := models.ParseClass(class); err != nil {
			h.handleError(c, http.StatusBadRequest, "Unknown document class in payload", err)
			return
		}
	}

	if err := config.SaveTemplates(h.configDir, templates); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to save templates", err)
		return
	}

	c.JSON(http.StatusOK, templates)
}

func (h *ConfigHandler) GetFields(c *gin.Context) {
	fields, err := config.LoadFields(h.configDir)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to load field structures", err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (h *ConfigHandler) handleError(c *gin.Context, status int, message string, err error) {
	resp := ErrorResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
		h.logger.Error(message, logger.Error(err))
	}
	c.JSON(status, resp)
}
