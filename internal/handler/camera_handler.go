package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type snapshotSource interface {
	Snapshot(ctx context.Context) (io.ReadCloser, string, error)
}

// CameraHandler proxies still frames from the house camera.
type CameraHandler struct {
	camera snapshotSource
	logger *zap.Logger
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(camera snapshotSource, logger *zap.Logger) *CameraHandler {
	return &CameraHandler{
		camera: camera,
		logger: logger,
	}
}

// Snapshot streams the current frame through to the caller
// GET /camera/snapshot
func (h *CameraHandler) Snapshot(c *gin.Context) {
	body, contentType, err := h.camera.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to fetch camera snapshot", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Camera unavailable"})
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
