// Package store 是对外部文档存储的薄客户端：用户名册、九宫格文档、
// 应援留言，全部按不透明的用户 ID 键入。所有写入均为可合并的独立
// 文档写（last-write-wins），不使用跨文档事务。
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mandala/internal/cheer"
	"mandala/internal/database"
	"mandala/internal/mandala"
)

// User 是名册上的一名成员。
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarColor string `json:"avatarColor"`
	MainGoal    string `json:"mainGoal"`
}

// Store 是核心消费的持久化接口。读失败由调用方降级为空值，
// 写失败仅记录日志（见 session 包的提交策略）。
type Store interface {
	GetUsers(ctx context.Context) ([]User, error)
	// CreateUser 按 ID 幂等 upsert。
	CreateUser(ctx context.Context, user User) error
	// DeleteUser 同时删除该成员的九宫格与全部留言。
	DeleteUser(ctx context.Context, id string) error

	// GetGrid 返回持久化的九宫格；不存在时 ok 为 false 且无错误。
	GetGrid(ctx context.Context, userID string) (g mandala.Grid, ok bool, err error)
	// SaveGrid 合并式 upsert：只覆盖网格数据，不触碰标题等无关字段。
	SaveGrid(ctx context.Context, userID string, g mandala.Grid) error
	GetTitle(ctx context.Context, userID string) (string, error)
	SaveTitle(ctx context.Context, userID string, title string) error

	GetMessages(ctx context.Context, userID string) ([]cheer.Message, error)
	AddMessage(ctx context.Context, userID string, msg cheer.Message) error
	DeleteMessage(ctx context.Context, id string) error
}

// GormStore 基于 GORM/PostgreSQL 实现 Store，网格与留言样式存为 JSONB。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 构造 GormStore。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetUsers(ctx context.Context) ([]User, error) {
	var rows []database.User
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]User, 0, len(rows))
	for _, row := range rows {
		users = append(users, User{
			ID:          row.ID,
			Name:        row.Name,
			AvatarColor: row.AvatarColor,
			MainGoal:    row.MainGoal,
		})
	}
	return users, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user User) error {
	row := database.User{
		ID:          user.ID,
		Name:        user.Name,
		AvatarColor: user.AvatarColor,
		MainGoal:    user.MainGoal,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "avatar_color", "main_goal"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&database.User{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&database.Chart{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&database.Message{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&database.Export{}, "user_id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

func (s *GormStore) GetGrid(ctx context.Context, userID string) (mandala.Grid, bool, error) {
	var row database.Chart
	err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return mandala.Grid{}, false, nil
	}
	if err != nil {
		return mandala.Grid{}, false, fmt.Errorf("load chart %s: %w", userID, err)
	}
	if len(row.Data) == 0 {
		return mandala.Grid{}, false, nil
	}

	var g mandala.Grid
	if err := json.Unmarshal(row.Data, &g); err != nil {
		return mandala.Grid{}, false, fmt.Errorf("decode chart %s: %w", userID, err)
	}
	return g, true, nil
}

func (s *GormStore) SaveGrid(ctx context.Context, userID string, g mandala.Grid) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode chart %s: %w", userID, err)
	}

	row := database.Chart{UserID: userID, Data: data}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save chart %s: %w", userID, err)
	}
	return nil
}

func (s *GormStore) GetTitle(ctx context.Context, userID string) (string, error) {
	var row database.Chart
	err := s.db.WithContext(ctx).Select("user_id", "title").First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load chart title %s: %w", userID, err)
	}
	return row.Title, nil
}

func (s *GormStore) SaveTitle(ctx context.Context, userID string, title string) error {
	row := database.Chart{UserID: userID, Title: title}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save chart title %s: %w", userID, err)
	}
	return nil
}

func (s *GormStore) GetMessages(ctx context.Context, userID string) ([]cheer.Message, error) {
	var rows []database.Message
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", userID, err)
	}

	msgs := make([]cheer.Message, 0, len(rows))
	for _, row := range rows {
		var style cheer.Style
		if len(row.Style) > 0 {
			if err := json.Unmarshal(row.Style, &style); err != nil {
				return nil, fmt.Errorf("decode message style %s: %w", row.ID, err)
			}
		}
		msgs = append(msgs, cheer.Message{
			ID:     row.ID,
			Text:   row.Text,
			Author: row.Author,
			Style:  style,
		})
	}
	return msgs, nil
}

func (s *GormStore) AddMessage(ctx context.Context, userID string, msg cheer.Message) error {
	style, err := json.Marshal(msg.Style)
	if err != nil {
		return fmt.Errorf("encode message style: %w", err)
	}

	row := database.Message{
		ID:     msg.ID,
		UserID: userID,
		Text:   msg.Text,
		Author: msg.Author,
		Style:  style,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "author", "style"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save message %s: %w", msg.ID, err)
	}
	return nil
}

func (s *GormStore) DeleteMessage(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&database.Message{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return nil
}
