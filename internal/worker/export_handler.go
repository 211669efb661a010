package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mandala/internal/database"
	"mandala/internal/errcode"
	"mandala/internal/storage"
	"mandala/internal/tasks"
)

// ExportTaskHandler 负责消费看板壁纸渲染任务。
type ExportTaskHandler struct {
	db                 *gorm.DB
	storage            *storage.Client
	redisClient        *redis.Client
	logger             *slog.Logger
	internalSecret     string
	internalAPIBaseURL string
	frontendBaseURL    string
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
	internalSecret string,
	internalAPIBaseURL string,
	frontendBaseURL string,
) *ExportTaskHandler {
	return &ExportTaskHandler{
		db:                 db,
		storage:            storageClient,
		redisClient:        redisClient,
		logger:             logger,
		internalSecret:     internalSecret,
		internalAPIBaseURL: strings.TrimRight(strings.TrimSpace(internalAPIBaseURL), "/"),
		frontendBaseURL:    strings.TrimRight(strings.TrimSpace(frontendBaseURL), "/"),
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ExportRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("export_id", payload.ExportID),
	)
	log.Info("Starting wallpaper render task...")

	var export database.Export
	if err := h.db.WithContext(ctx).First(&export, "id = ?", payload.ExportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("export not found, skipping task")
			return nil
		}
		log.Error("query export failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.String("user_id", export.UserID))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		if err := h.db.WithContext(ctx).Model(&export).
			Update("status", database.ExportStatusFailed).Error; err != nil {
			log.Error("mark export failed", slog.Any("error", err))
		}
		notify := ExportNotifyMessage{
			Type:          "export",
			Status:        "error",
			ExportID:      export.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishExportNotify(ctx, export.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	pngBytes, err := h.renderWallpaper(ctx, &export, payload.CorrelationID)
	if err != nil {
		log.Error("render wallpaper via frontend failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("exports/%s/%s.png", export.UserID, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/png"); err != nil {
		log.Error("upload wallpaper to minio failed", slog.Any("error", err))
		return err
	}

	update := map[string]any{
		"object_key": objectName,
		"status":     database.ExportStatusCompleted,
	}
	if err := h.db.WithContext(ctx).Model(&export).Updates(update).Error; err != nil {
		log.Error("update export failed", slog.Any("error", err))
		return err
	}

	notify := ExportNotifyMessage{
		Type:          "export",
		Status:        "completed",
		ExportID:      export.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.publishExportNotify(ctx, export.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Wallpaper render task completed successfully.")
	return nil
}

func (h *ExportTaskHandler) renderWallpaper(ctx context.Context, export *database.Export, correlationID string) ([]byte, error) {
	snapshot, err := fetchExportSnapshot(ctx, h.internalAPIBaseURL, export.ID, h.internalSecret, correlationID)
	if err != nil {
		return nil, err
	}

	targetURL := fmt.Sprintf("%s/capture/%s", h.frontendBaseURL, export.UserID)
	injectionScript := buildSnapshotInjectionScript(snapshot)

	page, cleanup, err := renderCapturePage(h.logger, targetURL, injectionScript, export.Width, export.Height)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return captureWallpaper(page)
}

func (h *ExportTaskHandler) publishExportNotify(ctx context.Context, userID string, notify ExportNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := "board:" + userID
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
