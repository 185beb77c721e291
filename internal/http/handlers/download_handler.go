package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/jarvis4every1/subscription-backend/internal/services"
	"github.com/jarvis4every1/subscription-backend/pkg/logger"
	"github.com/jarvis4every1/subscription-backend/pkg/res"
)

// DownloadHandler выдает защищенный файл только подписчикам.
type DownloadHandler struct {
	subService services.SubscriptionService
	filePath   string
	log        *logger.Logger
}

// NewDownloadHandler создает новый экземпляр DownloadHandler.
func NewDownloadHandler(subService services.SubscriptionService, filePath string, log *logger.Logger) *DownloadHandler {
	return &DownloadHandler{
		subService: subService,
		filePath:   filePath,
		log:        log,
	}
}

// Download обрабатывает GET /api/download
// Право на файл перепроверяется на каждый запрос: кэшированный ответ
// о подписке здесь не годится, срок мог выйти.
func (h *DownloadHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := contextUserID(c, h.log)
	if !ok {
		return
	}

	active, err := h.subService.HasActiveSubscription(ctx, userID)
	if err != nil {
		h.log.Errorw("Failed to check subscription for download", "error", err, "userID", userID)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Failed to verify subscription"}, http.StatusInternalServerError)
		c.Abort()
		return
	}
	if !active {
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Active subscription required"}, http.StatusForbidden)
		c.Abort()
		return
	}

	if _, err := os.Stat(h.filePath); err != nil {
		h.log.Errorw("Download file is missing", "error", err, "path", h.filePath)
		res.JsonResponse(c.Writer, res.ErrorResponse{Error: "File is not available"}, http.StatusNotFound)
		c.Abort()
		return
	}

	h.log.Infow("Serving protected file", "userID", userID, "path", h.filePath)
	c.FileAttachment(h.filePath, filepath.Base(h.filePath))
}
