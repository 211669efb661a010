package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mandala/internal/api/middleware"
	"mandala/internal/cheer"
	"mandala/internal/database"
	"mandala/internal/mandala"
	"mandala/internal/session"
	"mandala/internal/storage"
	"mandala/internal/store"
	"mandala/internal/tasks"
)

// 导出支持的壁纸分辨率。
var exportResolutions = []struct{ W, H int }{
	{1024, 768},
	{1280, 720},
	{1920, 1080},
	{2560, 1440},
}

const presignedLinkTTL = 10 * time.Minute

// ExportHandler 负责看板图片导出：冻结快照、入队渲染任务、查询结果。
type ExportHandler struct {
	db          *gorm.DB
	store       store.Store
	sessions    *session.Manager
	asynqClient *asynq.Client
	storage     *storage.Client
}

// NewExportHandler 构造 ExportHandler。
func NewExportHandler(db *gorm.DB, st store.Store, sessions *session.Manager, asynqClient *asynq.Client, storageClient *storage.Client) *ExportHandler {
	return &ExportHandler{
		db:          db,
		store:       st,
		sessions:    sessions,
		asynqClient: asynqClient,
		storage:     storageClient,
	}
}

type createExportRequest struct {
	Width           int  `json:"width" binding:"required"`
	Height          int  `json:"height" binding:"required"`
	IncludeMessages bool `json:"includeMessages"`
}

// ExportSnapshot 是渲染时刻的看板全量状态。入队前冻结进导出记录，
// 之后的编辑不影响已请求的导出。
type ExportSnapshot struct {
	User            store.User      `json:"user"`
	Title           string          `json:"title"`
	Grid            mandala.Grid    `json:"grid"`
	Messages        []cheer.Message `json:"messages"`
	IncludeMessages bool            `json:"includeMessages"`
	Width           int             `json:"width"`
	Height          int             `json:"height"`
}

// CreateExport 冻结当前看板快照并入队一张壁纸渲染任务。
func (h *ExportHandler) CreateExport(c *gin.Context) {
	userID := c.Param("userId")

	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	supported := false
	for _, r := range exportResolutions {
		if r.W == req.Width && r.H == req.Height {
			supported = true
			break
		}
	}
	if !supported {
		BadRequest(c, "unsupported resolution")
		return
	}

	user, ok, err := findUser(c.Request.Context(), h.store, userID)
	if err != nil {
		Internal(c, "failed to load users")
		return
	}
	if !ok {
		NotFound(c, "user not found")
		return
	}

	s := h.sessions.Open(c.Request.Context(), user)
	snapshot := ExportSnapshot{
		User:            user,
		Title:           s.Title(),
		Grid:            s.Grid(),
		Messages:        s.Messages(),
		IncludeMessages: req.IncludeMessages,
		Width:           req.Width,
		Height:          req.Height,
	}
	if !req.IncludeMessages {
		snapshot.Messages = []cheer.Message{}
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		Internal(c, "failed to encode snapshot")
		return
	}

	export := database.Export{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          database.ExportStatusPending,
		Width:           req.Width,
		Height:          req.Height,
		IncludeMessages: req.IncludeMessages,
		Snapshot:        datatypes.JSON(snapshotJSON),
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&export).Error; err != nil {
		middleware.LoggerFromContext(c).Error("create export record failed", slog.Any("error", err))
		Internal(c, "failed to create export")
		return
	}

	task, err := tasks.NewExportRenderTask(export.ID, middleware.GetCorrelationID(c))
	if err != nil {
		Internal(c, "failed to build render task")
		return
	}
	if _, err := h.asynqClient.EnqueueContext(c.Request.Context(), task); err != nil {
		middleware.LoggerFromContext(c).Error("enqueue render task failed", slog.Any("error", err))
		Internal(c, "failed to enqueue render task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"exportId": export.ID,
		"status":   export.Status,
	})
}

// GetExport 返回导出任务的状态。
func (h *ExportHandler) GetExport(c *gin.Context) {
	var export database.Export
	if err := h.db.WithContext(c.Request.Context()).
		First(&export, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "export not found")
			return
		}
		Internal(c, "failed to load export")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exportId":  export.ID,
		"status":    export.Status,
		"width":     export.Width,
		"height":    export.Height,
		"createdAt": export.CreatedAt,
	})
}

// GetExportLink 为已完成的导出生成限时下载链接。
func (h *ExportHandler) GetExportLink(c *gin.Context) {
	var export database.Export
	if err := h.db.WithContext(c.Request.Context()).
		First(&export, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "export not found")
			return
		}
		Internal(c, "failed to load export")
		return
	}
	if export.Status != database.ExportStatusCompleted || export.ObjectKey == "" {
		Conflict(c, "export is not completed")
		return
	}

	url, err := h.storage.GeneratePresignedURL(c.Request.Context(), export.ObjectKey, presignedLinkTTL)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(presignedLinkTTL.Seconds())})
}

// GetExportData 返回渲染所需的冻结快照，仅供 worker 通过内部密钥调用。
func (h *ExportHandler) GetExportData(c *gin.Context) {
	var export database.Export
	if err := h.db.WithContext(c.Request.Context()).
		First(&export, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "export not found")
			return
		}
		Internal(c, "failed to load export")
		return
	}

	c.Data(http.StatusOK, "application/json", []byte(export.Snapshot))
}
