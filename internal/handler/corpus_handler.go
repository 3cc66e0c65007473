package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"docqa-go/internal/model"
	"docqa-go/internal/service"
	"docqa-go/pkg/log"
	"docqa-go/pkg/tasks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errMissingSessionID = errors.New("session_id is required")

// ReloadQueue 把重载任务投递到后台队列。
type ReloadQueue interface {
	EnqueueReload(ctx context.Context, task tasks.CorpusReloadTask) error
}

// CorpusHandler 处理语料重载与健康检查。
type CorpusHandler struct {
	chatService service.ChatService
	queue       ReloadQueue // Kafka 未启用时为 nil
}

// NewCorpusHandler 创建一个新的 CorpusHandler。
func NewCorpusHandler(chatService service.ChatService, queue ReloadQueue) *CorpusHandler {
	return &CorpusHandler{chatService: chatService, queue: queue}
}

type reloadRequest struct {
	Async bool `json:"async"`
}

// Reload 处理 POST /api/reload。同步模式完成后返回 200；async 模式投递任务后返回 202。
func (h *CorpusHandler) Reload(c *gin.Context) {
	var req reloadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, model.ValidationError("bind reload request", err))
		return
	}

	if req.Async {
		if h.queue == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "message": "async reload is not enabled", "data": nil})
			return
		}
		task := tasks.CorpusReloadTask{RequestID: uuid.NewString(), Reason: "api", RequestedAt: time.Now().UTC()}
		if err := h.queue.EnqueueReload(c.Request.Context(), task); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "Reload queued", "request_id": task.RequestID})
		return
	}

	if err := h.chatService.ReloadCorpus(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	n, err := h.chatService.CorpusSize(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Corpus reloaded", "chunks": n})
}

// Health 处理 GET /api/health。
func (h *CorpusHandler) Health(c *gin.Context) {
	n, err := h.chatService.CorpusSize(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"status": "ok", "chunks": n, "sessions": h.chatService.SessionCount()}
	// 登记表是可选的，读取失败不影响健康状态
	if rows, enabled, err := h.chatService.RegistrySize(c.Request.Context()); err != nil {
		log.Warnf("[CorpusHandler] 读取分块登记表失败: %v", err)
	} else if enabled {
		resp["registry_chunks"] = rows
	}
	c.JSON(http.StatusOK, resp)
}
