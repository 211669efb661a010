package api

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mandala/internal/api/middleware"
	"mandala/internal/auth"
	"mandala/internal/session"
	"mandala/internal/storage"
	"mandala/internal/store"
)

// UserHandler 负责名册相关的 API 请求。成员的增删受 PIN 门禁保护。
type UserHandler struct {
	store    store.Store
	gate     *auth.PinGate
	sessions *session.Manager
	storage  *storage.Client
	logger   *slog.Logger
}

// NewUserHandler 构造 UserHandler。storageClient 可为 nil（本地开发时跳过导出清理）。
func NewUserHandler(st store.Store, gate *auth.PinGate, sessions *session.Manager, storageClient *storage.Client, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		store:    st,
		gate:     gate,
		sessions: sessions,
		storage:  storageClient,
		logger:   logger,
	}
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	MainGoal string `json:"mainGoal" binding:"required"`
	Token    string `json:"token" binding:"required"`
}

// ListUsers 返回全部成员。
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.store.GetUsers(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("list users failed", slog.Any("error", err))
		Internal(c, "failed to load users")
		return
	}
	if users == nil {
		users = []store.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUser 添加一名成员。需要携带 add-user 操作令牌。
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.MainGoal) == "" {
		BadRequest(c, "name and mainGoal must not be blank")
		return
	}
	if err := h.gate.Validate(req.Token, auth.ActionAddUser, ""); err != nil {
		Unauthorized(c)
		return
	}

	user := store.User{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		AvatarColor: store.AvatarColors[rand.Intn(len(store.AvatarColors))],
		MainGoal:    strings.TrimSpace(req.MainGoal),
	}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		middleware.LoggerFromContext(c).Error("create user failed", slog.Any("error", err))
		Internal(c, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// DeleteUser 删除一名成员及其九宫格、留言与导出图片。
// 需要携带绑定该成员 ID 的 delete-user 操作令牌。
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	token := c.GetHeader("X-Action-Token")
	if err := h.gate.Validate(token, auth.ActionDeleteUser, id); err != nil {
		Unauthorized(c)
		return
	}

	users, err := h.store.GetUsers(c.Request.Context())
	if err != nil {
		Internal(c, "failed to load users")
		return
	}
	found := false
	for _, u := range users {
		if u.ID == id {
			found = true
			break
		}
	}
	if !found {
		NotFound(c, "user not found")
		return
	}

	h.sessions.Close(id)

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		middleware.LoggerFromContext(c).Error("delete user failed", slog.Any("error", err))
		Internal(c, "failed to delete user")
		return
	}

	// 导出图片清理是尽力而为，失败不影响删除结果。
	if h.storage != nil {
		go func(userID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.storage.DeletePrefix(ctx, "exports/"+userID+"/"); err != nil {
				h.logger.Warn("cleanup exported images failed",
					slog.String("user_id", userID),
					slog.Any("error", err),
				)
			}
		}(id)
	}

	c.Status(http.StatusNoContent)
}
