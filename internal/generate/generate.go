// Package generate 封装对外部生成协作方的调用：给定一个种子目标，
// 返回至多 8 条简短建议文本。核心只依赖 Generator 接口，Gemini
// 实现见 gemini.go。
package generate

import "context"

// Mode 是生成模式。
type Mode string

const (
	// ModeSubGoal 由年度主目标展开 8 个子领域。
	ModeSubGoal Mode = "sub-goal"
	// ModeActionPlan 由某个子目标展开 8 条具体行动计划。
	ModeActionPlan Mode = "action-plan"
)

// Generator 为种子目标生成建议。contextGoal 仅在 ModeActionPlan
// 下有意义，携带该子目标所支撑的年度主目标。
type Generator interface {
	Generate(ctx context.Context, seed string, mode Mode, contextGoal string) ([]string, error)
}
