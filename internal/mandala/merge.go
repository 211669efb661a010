package mandala

// 建议的填充顺序：跳过块内中心格（下标 4）。
var fillOrder = [8]int{0, 1, 2, 3, 5, 6, 7, 8}

// MergeSuggestions 把 AI 建议合并进目标 block。
//
// 格子可接收的条件：未确认（!isAccepted）且文本为空。合并用两个
// 独立游标：跳过不可接收的格子时不消耗建议，下一条建议落到下一个
// 可接收的格子上。写入的格子为草稿态。
//
// 目标是中央块时，合并后再做一轮扇出：每个有内容的中央格把主题
// 播种到对应外围块的中心格，但只覆盖空白或草稿态的外围中心，
// 已确认的内容不回退。
func MergeSuggestions(g Grid, block int, suggestions []string) Grid {
	next := 0
	for _, cell := range fillOrder {
		if next >= len(suggestions) {
			break
		}
		target := g[block][cell]
		if target.IsAccepted || target.Text != "" {
			continue
		}

		g[block][cell] = GoalItem{Text: suggestions[next], IsDraft: true}
		next++
	}

	if block == CenterBlock {
		for _, cell := range fillOrder {
			theme := g[CenterBlock][cell].Text
			if theme == "" {
				continue
			}
			center := g[cell][CenterCell]
			if center.Text == "" || center.IsDraft {
				g[cell][CenterCell] = GoalItem{Text: theme, IsDraft: true}
			}
		}
	}
	return g
}
