package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"mandala/internal/api/middleware"
	"mandala/internal/auth"
	"mandala/internal/cheer"
	"mandala/internal/metrics"
	"mandala/internal/session"
	"mandala/internal/store"
)

// MessageHandler 负责应援留言的增删与拖拽。
type MessageHandler struct {
	store       store.Store
	sessions    *session.Manager
	gate        *auth.PinGate
	redisClient *redis.Client
}

// NewMessageHandler 构造 MessageHandler。
func NewMessageHandler(st store.Store, sessions *session.Manager, gate *auth.PinGate, redisClient *redis.Client) *MessageHandler {
	return &MessageHandler{store: st, sessions: sessions, gate: gate, redisClient: redisClient}
}

// cheerNotify 是推送给看板观众的新留言通知。
type cheerNotify struct {
	Type    string        `json:"type"`
	Message cheer.Message `json:"message"`
}

// publishCheer 把新留言广播到看板频道。通知是尽力而为，失败只记日志。
func (h *MessageHandler) publishCheer(ctx context.Context, log *slog.Logger, userID string, msg cheer.Message) {
	data, err := json.Marshal(cheerNotify{Type: "cheer", Message: msg})
	if err != nil {
		log.Error("encode cheer notification failed", slog.Any("error", err))
		return
	}
	if err := h.redisClient.Publish(ctx, BoardChannel(userID), data).Err(); err != nil {
		log.Warn("publish cheer notification failed", slog.Any("error", err))
	}
}

// ListMessages 返回某成员看板上的全部留言。会话未打开时直接读存储。
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID := c.Param("userId")
	if s, ok := h.sessions.Get(userID); ok {
		c.JSON(http.StatusOK, gin.H{"messages": s.Messages()})
		return
	}

	messages, err := h.store.GetMessages(c.Request.Context(), userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list messages failed", slog.Any("error", err))
		Internal(c, "failed to load messages")
		return
	}
	if messages == nil {
		messages = []cheer.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type createMessageRequest struct {
	Text   string `json:"text" binding:"required"`
	Author string `json:"author" binding:"required"`
}

// CreateMessage 在某成员的看板上留下一条应援。留言者无需任何凭证。
func (h *MessageHandler) CreateMessage(c *gin.Context) {
	userID := c.Param("userId")

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.Author) == "" {
		BadRequest(c, "text and author must not be blank")
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

	// 留言落在看板会话上，避撞落位需要当前留言集合。
	s := h.sessions.Open(c.Request.Context(), user)
	msg := s.AddMessage(c.Request.Context(), strings.TrimSpace(req.Text), strings.TrimSpace(req.Author))
	metrics.CheerMessageTotal.Inc()
	h.publishCheer(c.Request.Context(), middleware.LoggerFromContext(c), userID, msg)

	c.JSON(http.StatusCreated, msg)
}

type moveMessageRequest struct {
	Left string `json:"left" binding:"required"`
	Top  string `json:"top" binding:"required"`
}

// MoveMessage 更新留言位置。仅改会话内状态，不落盘。
func (h *MessageHandler) MoveMessage(c *gin.Context) {
	id := c.Param("id")

	var req moveMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	s, ok := h.sessions.FindByMessage(id)
	if !ok {
		NotFound(c, "message not found on any open chart")
		return
	}
	if !s.MoveMessage(id, req.Left, req.Top) {
		NotFound(c, "message not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteMessage 删除一条留言。需要绑定该留言 ID 的 delete-message 操作令牌。
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	id := c.Param("id")
	token := c.GetHeader("X-Action-Token")
	if err := h.gate.Validate(token, auth.ActionDeleteMessage, id); err != nil {
		Unauthorized(c)
		return
	}

	if s, ok := h.sessions.FindByMessage(id); ok {
		if err := s.DeleteMessage(c.Request.Context(), id); err != nil {
			middleware.LoggerFromContext(c).Error("delete message failed", slog.Any("error", err))
			Internal(c, "failed to delete message")
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.store.DeleteMessage(c.Request.Context(), id); err != nil {
		middleware.LoggerFromContext(c).Error("delete message failed", slog.Any("error", err))
		Internal(c, "failed to delete message")
		return
	}
	c.Status(http.StatusNoContent)
}
