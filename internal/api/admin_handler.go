package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"mandala/internal/api/middleware"
	"mandala/internal/auth"
)

// PIN 尝试限流：同一来源一分钟内最多 5 次。
const (
	pinAttemptLimit  = 5
	pinAttemptWindow = time.Minute
)

// AdminHandler 负责 PIN 校验与操作令牌签发。
type AdminHandler struct {
	gate        *auth.PinGate
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewAdminHandler 构造 AdminHandler。
func NewAdminHandler(gate *auth.PinGate, redisClient *redis.Client, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{gate: gate, redisClient: redisClient, logger: logger}
}

type verifyPinRequest struct {
	Pin      string `json:"pin" binding:"required"`
	Action   string `json:"action" binding:"required"`
	TargetID string `json:"targetId"`
}

// VerifyPin 校验管理员 PIN，成功则为请求的操作签发短时效令牌。
func (h *AdminHandler) VerifyPin(c *gin.Context) {
	var req verifyPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	action := auth.Action(req.Action)
	switch action {
	case auth.ActionAddUser, auth.ActionDeleteUser, auth.ActionDeleteMessage:
	default:
		BadRequest(c, fmt.Sprintf("unknown action %q", req.Action))
		return
	}

	ctx := c.Request.Context()
	key := "pin:attempts:" + c.ClientIP()
	count, err := countAttempt(ctx, h.redisClient, key, pinAttemptWindow)
	if err != nil {
		// Redis 不可用时放行校验本身，限流是防爆破的加层而非门禁。
		middleware.LoggerFromContext(c).Warn("pin rate counter unavailable", slog.Any("error", err))
	} else if count > pinAttemptLimit {
		Error(c, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	token, err := h.gate.Verify(req.Pin, action, req.TargetID)
	if err != nil {
		if errors.Is(err, auth.ErrPinMismatch) {
			middleware.LoggerFromContext(c).Info("pin mismatch",
				slog.String("action", req.Action),
				slog.String("client_ip", c.ClientIP()),
			)
			Unauthorized(c)
			return
		}
		Internal(c, "failed to issue action token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
