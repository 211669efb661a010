// Package mandala 实现 9x9 曼陀罗九宫格的纯函数核心：
// 格子写入的镜像规则与 AI 建议的合并策略。
//
// 网格是 9 个 block（3x3 布局），每个 block 含 9 个 cell。
// block 4 是中央块，其 cell 4 为绝对中心（年度主目标）；
// 中央块的外围格与对应外围块的中心格互为镜像。
package mandala

// GoalItem 是一个格子的内容与状态。
// isDraft 表示 AI 草稿（未确认），isAccepted 表示已确认锁定。
type GoalItem struct {
	Text       string `json:"text"`
	IsDraft    bool   `json:"isDraft"`
	IsAccepted bool   `json:"isAccepted"`
}

// Grid 是完整的九宫格。值类型，更新函数返回新网格。
type Grid [9][9]GoalItem

// 中央块与块内中心格的下标。
const (
	CenterBlock = 4
	CenterCell  = 4
)

// NewGrid 返回全空网格。
func NewGrid() Grid {
	return Grid{}
}

// SeededGrid 返回以 mainGoal 播种绝对中心的网格。
func SeededGrid(mainGoal string) Grid {
	var g Grid
	g[CenterBlock][CenterCell] = GoalItem{Text: mainGoal, IsAccepted: true}
	return g
}

// UpdateCell 写入一个格子并维护镜像不变式：
//   - 写中央块的外围格 (4, j) 时，同步写外围块 j 的中心格 (j, 4)；
//   - 写外围块的中心格 (i, 4) 时，同步写中央块的对应格 (4, i)；
//   - 绝对中心 (4, 4) 无镜像。
//
// 两侧写入的是同一份内容（文本与两个状态位）。
func UpdateCell(g Grid, block, cell int, item GoalItem) Grid {
	g[block][cell] = item
	switch {
	case block == CenterBlock && cell != CenterCell:
		g[cell][CenterCell] = item
	case block != CenterBlock && cell == CenterCell:
		g[CenterBlock][block] = item
	}
	return g
}
