// Package session 持有当前打开看板的内存状态，并决定它何时写回外部存储。
//
// 每个成员的看板对应一个 Session：九宫格、标题与应援留言由它独占，
// 所有网格变更（直接编辑与 AI 合并）都串行通过同一条更新路径，
// 编辑后的落盘由防抖提交策略收敛（见 scheduleCommit）。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mandala/internal/cheer"
	"mandala/internal/generate"
	"mandala/internal/mandala"
	"mandala/internal/store"
)

// 会话层的哨兵错误。
var (
	// ErrBusy 表示已有一个生成请求在途（单值 loading 标记，一次只放行一个 block）。
	ErrBusy = errors.New("a generation request is already in flight")
	// ErrEmptySeed 表示目标 block 的种子目标为空，请求在调用协作方之前就被拒绝。
	ErrEmptySeed = errors.New("seed goal is empty")
)

const commitTimeout = 10 * time.Second

// Session 是某个成员打开的看板。
type Session struct {
	userID string
	store  store.Store
	gen    generate.Generator
	logger *slog.Logger

	debounce time.Duration

	mu           sync.Mutex
	grid         mandala.Grid
	title        string
	messages     []cheer.Message
	loaded       bool
	loadingBlock int // -1 表示当前没有生成请求在途
	timer        *time.Timer
}

func newSession(userID string, st store.Store, gen generate.Generator, logger *slog.Logger, debounce time.Duration) *Session {
	return &Session{
		userID:       userID,
		store:        st,
		gen:          gen,
		logger:       logger.With(slog.String("user_id", userID)),
		debounce:     debounce,
		loadingBlock: -1,
	}
}

// load 执行打开看板时的装载协议：
//  1. loaded 置 false，抑制自动保存；
//  2. 读取持久化的九宫格，存在则采用；
//  3. 不存在则以 mainGoal 播种绝对中心并立即写回（保证打开过的成员在存储里有记录）；
//  4. 装载留言，失败降级为空集合（非致命）；
//  5. 经过 settle 静默期后再放开保存路径。
func (s *Session) load(ctx context.Context, user store.User, settle time.Duration) {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()

	grid, ok, err := s.store.GetGrid(ctx, user.ID)
	if err != nil {
		s.logger.Warn("load grid failed, starting from seeded grid", slog.Any("error", err))
		grid = mandala.SeededGrid(user.MainGoal)
	} else if !ok {
		grid = mandala.SeededGrid(user.MainGoal)
		if err := s.store.SaveGrid(ctx, user.ID, grid); err != nil {
			s.logger.Warn("initialize grid on store failed", slog.Any("error", err))
		}
	}

	title, err := s.store.GetTitle(ctx, user.ID)
	if err != nil {
		s.logger.Warn("load title failed", slog.Any("error", err))
		title = ""
	}
	if title == "" {
		title = fmt.Sprintf("%s님의 2026년 성장 계획", user.Name)
	}

	messages, err := s.store.GetMessages(ctx, user.ID)
	if err != nil {
		s.logger.Warn("load messages failed, starting empty", slog.Any("error", err))
		messages = nil
	}

	s.mu.Lock()
	s.grid = grid
	s.title = title
	s.messages = messages
	s.mu.Unlock()

	time.AfterFunc(settle, func() {
		s.mu.Lock()
		s.loaded = true
		s.mu.Unlock()
	})
}

// UpdateCell 应用一次格子写入（镜像规则由 mandala.UpdateCell 保证），
// 并在 settle 期结束后调度防抖提交。返回更新后的网格。
func (s *Session) UpdateCell(block, cell int, item mandala.GoalItem) mandala.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grid = mandala.UpdateCell(s.grid, block, cell, item)
	s.scheduleCommitLocked()
	return s.grid
}

// Generate 为目标 block 请求生成并合并建议。
//
// 单值在途标记：任一 block 的请求在途时，其余请求立即得到 ErrBusy。
// 种子目标为空时在调用协作方之前返回 ErrEmptySeed。协作方失败
// （超时/配额/畸形输出）时网格不发生任何变更。
func (s *Session) Generate(ctx context.Context, block int) (mandala.Grid, error) {
	s.mu.Lock()
	if s.loadingBlock != -1 {
		defer s.mu.Unlock()
		return s.grid, ErrBusy
	}

	var seed string
	mode := generate.ModeActionPlan
	if block == mandala.CenterBlock {
		seed = s.grid[mandala.CenterBlock][mandala.CenterCell].Text
		mode = generate.ModeSubGoal
	} else {
		seed = s.grid[block][mandala.CenterCell].Text
	}
	contextGoal := s.grid[mandala.CenterBlock][mandala.CenterCell].Text

	if seed == "" {
		defer s.mu.Unlock()
		return s.grid, ErrEmptySeed
	}

	s.loadingBlock = block
	s.mu.Unlock()

	// 外部调用期间不持锁，其他格子的编辑可以继续。
	suggestions, err := s.gen.Generate(ctx, seed, mode, contextGoal)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingBlock = -1

	if err != nil {
		return s.grid, fmt.Errorf("generate for block %d: %w", block, err)
	}

	s.grid = mandala.MergeSuggestions(s.grid, block, suggestions)
	s.scheduleCommitLocked()
	return s.grid, nil
}

// LoadingBlock 返回在途生成的 block 下标，-1 表示空闲。
func (s *Session) LoadingBlock() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingBlock
}

// Grid 返回当前网格的副本。
func (s *Session) Grid() mandala.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid
}

// Title 返回看板标题。
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// SetTitle 更新看板标题并立即持久化（标题变更频率低，不走防抖）。
// 写失败仅记录日志，本地状态保留。
func (s *Session) SetTitle(ctx context.Context, title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()

	if err := s.store.SaveTitle(ctx, s.userID, title); err != nil {
		s.logger.Warn("save title failed", slog.Any("error", err))
	}
}

// Messages 返回留言集合的副本。
func (s *Session) Messages() []cheer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cheer.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// AddMessage 为新留言避撞落位并持久化。写失败仅记录日志，
// 留言仍保留在看板上（下一次创建不会受影响）。
func (s *Session) AddMessage(ctx context.Context, text, author string) cheer.Message {
	s.mu.Lock()
	msg := cheer.Place(s.messages, text, author)
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if err := s.store.AddMessage(ctx, s.userID, msg); err != nil {
		s.logger.Warn("persist message failed", slog.Any("error", err))
	}
	return msg
}

// DeleteMessage 删除留言。与其他写入不同，删除失败要暴露给调用方：
// 看板上可见的条目不允许悄悄删不掉。
func (s *Session) DeleteMessage(ctx context.Context, id string) error {
	if err := s.store.DeleteMessage(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.messages {
		if msg.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	return nil
}

// MoveMessage 更新留言位置。拖拽只改本地状态、不落盘（控制写入量），
// 也不做避撞复查。返回是否找到该留言。
func (s *Session) MoveMessage(id, left, top string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Style.Left = left
			s.messages[i].Style.Top = top
			return true
		}
	}
	return false
}

// HasMessage 报告该留言是否属于本会话。
func (s *Session) HasMessage(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == id {
			return true
		}
	}
	return false
}

// scheduleCommitLocked 启动或重置防抖提交定时器。连续编辑收敛为
// 静默窗口后的一次提交；settle 期内（loaded 为 false）不调度。
// 调用方必须已持有 s.mu。
func (s *Session) scheduleCommitLocked() {
	if !s.loaded {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.commit)
}

// commit 把当前网格写入外部存储。失败仅记录日志；本地编辑永不回滚，
// 后续编辑触发的下一个防抖周期会自然重试。
func (s *Session) commit() {
	s.mu.Lock()
	s.timer = nil
	grid := s.grid
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	if err := s.store.SaveGrid(ctx, s.userID, grid); err != nil {
		s.logger.Warn("auto-save failed, local state retained", slog.Any("error", err))
		return
	}
	s.logger.Debug("grid committed")
}

// Flush 立即提交处于防抖等待中的变更。关闭看板时调用。
func (s *Session) Flush() {
	s.mu.Lock()
	pending := s.timer != nil
	if pending {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if pending {
		s.commit()
	}
}
