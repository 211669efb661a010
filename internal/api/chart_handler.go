package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mandala/internal/api/middleware"
	"mandala/internal/generate"
	"mandala/internal/mandala"
	"mandala/internal/metrics"
	"mandala/internal/session"
	"mandala/internal/store"
)

// ChartHandler 负责九宫格看板的读写与 AI 生成。
type ChartHandler struct {
	store    store.Store
	sessions *session.Manager
}

// NewChartHandler 构造 ChartHandler。
func NewChartHandler(st store.Store, sessions *session.Manager) *ChartHandler {
	return &ChartHandler{store: st, sessions: sessions}
}

// findUser 按 ID 在名册上检索成员。
func findUser(ctx context.Context, st store.Store, id string) (store.User, bool, error) {
	users, err := st.GetUsers(ctx)
	if err != nil {
		return store.User{}, false, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, true, nil
		}
	}
	return store.User{}, false, nil
}

type chartResponse struct {
	User         store.User   `json:"user"`
	Title        string       `json:"title"`
	Grid         mandala.Grid `json:"grid"`
	LoadingBlock int          `json:"loadingBlock"`
}

// OpenChart 打开（或复用）某成员的看板会话并返回完整状态。
func (h *ChartHandler) OpenChart(c *gin.Context) {
	userID := c.Param("userId")
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
	c.JSON(http.StatusOK, chartResponse{
		User:         user,
		Title:        s.Title(),
		Grid:         s.Grid(),
		LoadingBlock: s.LoadingBlock(),
	})
}

type updateCellRequest struct {
	Block int              `json:"block"`
	Cell  int              `json:"cell"`
	Item  mandala.GoalItem `json:"item"`
}

// UpdateCell 写入一个格子。镜像规则与防抖落盘由会话层处理。
func (h *ChartHandler) UpdateCell(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("userId"))
	if !ok {
		NotFound(c, "chart is not open")
		return
	}

	var req updateCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Block < 0 || req.Block > 8 || req.Cell < 0 || req.Cell > 8 {
		BadRequest(c, "block and cell must be in [0,8]")
		return
	}

	grid := s.UpdateCell(req.Block, req.Cell, req.Item)
	metrics.CellUpdateTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"grid": grid})
}

type setTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

// SetTitle 更新看板标题。
func (h *ChartHandler) SetTitle(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("userId"))
	if !ok {
		NotFound(c, "chart is not open")
		return
	}

	var req setTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	s.SetTitle(c.Request.Context(), req.Title)
	c.JSON(http.StatusOK, gin.H{"title": req.Title})
}

type generateRequest struct {
	Block *int `json:"block" binding:"required"`
}

// Generate 为目标块请求 AI 建议并合并进网格。
// 在途请求冲突返回 409，种子目标为空返回 422，协作方失败返回 502。
func (h *ChartHandler) Generate(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("userId"))
	if !ok {
		NotFound(c, "chart is not open")
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	block := *req.Block
	if block < 0 || block > 8 {
		BadRequest(c, "block must be in [0,8]")
		return
	}

	mode := generate.ModeActionPlan
	if block == mandala.CenterBlock {
		mode = generate.ModeSubGoal
	}

	grid, err := s.Generate(c.Request.Context(), block)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrBusy):
			metrics.GenerationTotal.WithLabelValues(string(mode), "busy").Inc()
			Conflict(c, "a generation request is already in flight")
		case errors.Is(err, session.ErrEmptySeed):
			metrics.GenerationTotal.WithLabelValues(string(mode), "empty_seed").Inc()
			Unprocessable(c, "seed goal is empty")
		default:
			metrics.GenerationTotal.WithLabelValues(string(mode), "error").Inc()
			middleware.LoggerFromContext(c).Error("generation failed",
				slog.Int("block", block),
				slog.Any("error", err),
			)
			BadGateway(c, "suggestion service unavailable")
		}
		return
	}

	metrics.GenerationTotal.WithLabelValues(string(mode), "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"grid": grid})
}

// CloseChart 冲刷未保存的编辑并关闭会话。
func (h *ChartHandler) CloseChart(c *gin.Context) {
	h.sessions.Close(c.Param("userId"))
	c.Status(http.StatusNoContent)
}
