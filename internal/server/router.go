package server

import (
	"github.com/gin-gonic/gin"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/config"
)

// NewRouter wires the dev server routes.
func NewRouter(cfg config.Config, logger application.Logger) (*gin.Engine, error) {
	store, err := NewLogStore(cfg.LogStorePath)
	if err != nil {
		return nil, err
	}

	ih := NewInferenceHandler(logger)
	lh := NewLogHandler(store, logger)
	sh := NewSignalingHandler(ih, logger)

	r := gin.Default()
	r.POST("/inference", ih.Infer)
	r.POST("/inference/log", lh.Append)
	r.GET("/inference/log", lh.List)
	r.GET("/signaling", sh.WS)
	return r, nil
}
