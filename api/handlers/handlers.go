package handlers

import (
	"github.com/vincentdare/auto-extractor/internal/service/extraction"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

type Handlers struct {
	Pipeline *PipelineHandler
	Config   *ConfigHandler
}

func NewHandlers(
	service extraction.Service,
	configDir string,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Pipeline: NewPipelineHandler(service, log),
		Config:   NewConfigHandler(configDir, log),
	}
}
