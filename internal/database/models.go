package database

import (
	"time"

	"gorm.io/datatypes"
)

// User 表示看板上的一名成员。ID 为外部不透明字符串（uuid 或历史数据的数字串）。
type User struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:64"`
	AvatarColor string `gorm:"size:32"`
	MainGoal    string `gorm:"size:255"`
	CreatedAt   time.Time
}

// Chart 保存某个成员的九宫格文档，一人一份，按 UserID 作主键 upsert。
// Data 为整个 9x9 网格的 JSONB 快照。
type Chart struct {
	UserID    string         `gorm:"primaryKey;size:64"`
	Title     string         `gorm:"size:255"`
	Data      datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

// Message 表示一条应援留言。Style 存放百分比坐标与动画参数。
type Message struct {
	ID        string         `gorm:"primaryKey;size:64"`
	UserID    string         `gorm:"index;size:64"`
	Text      string         `gorm:"size:255"`
	Author    string         `gorm:"size:64"`
	Style     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

// Export 记录一次看板导出请求。Snapshot 是请求瞬间冻结的
// 网格+标题+留言快照，渲染只读取这份数据。
type Export struct {
	ID              string         `gorm:"primaryKey;size:64"`
	UserID          string         `gorm:"index;size:64"`
	Status          string         `gorm:"size:32"`
	Width           int
	Height          int
	IncludeMessages bool
	Snapshot        datatypes.JSON `gorm:"type:jsonb"`
	ObjectKey       string         `gorm:"size:512"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Export 状态机：pending -> completed | failed。
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)
