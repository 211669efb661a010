// Package cheer 实现看板上漂浮的应援留言：数据模型与避撞落位。
//
// 留言以百分比坐标挂在看板两侧的竖向条带上（避开中间的九宫格），
// 新留言随机选带随机落点，与已有留言重叠时重试，重试耗尽则接受
// 最后一个位置：落位永远成功，重叠只是视觉上的退化。
package cheer

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Style 是留言的呈现位置，百分比字符串由前端直接用作 CSS。
type Style struct {
	Left           string `json:"left"`
	Top            string `json:"top"`
	AnimationDelay string `json:"animationDelay"`
}

// Message 是一条应援留言。
type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Author string `json:"author"`
	Style  Style  `json:"style"`
}

// 落位参数：左右条带的起点与宽度、纵向范围、碰撞间距、重试上限。
const (
	placementAttempts = 20

	leftBandStart = 1.0
	leftBandWidth = 7.0

	rightBandStart = 88.0
	rightBandWidth = 6.0

	topStart = 15.0
	topRange = 65.0

	collisionGapLeft = 15.0
	collisionGapTop  = 10.0
)

// Place 为一条新留言生成 ID 与避撞位置。existing 是看板上已有的留言。
func Place(existing []Message, text, author string) Message {
	var left, top float64
	for attempt := 0; attempt < placementAttempts; attempt++ {
		if rand.Float64() > 0.5 {
			left = leftBandStart + rand.Float64()*leftBandWidth
		} else {
			left = rightBandStart + rand.Float64()*rightBandWidth
		}
		top = topStart + rand.Float64()*topRange

		if !collides(existing, left, top) {
			break
		}
	}

	return Message{
		ID:     uuid.NewString(),
		Text:   text,
		Author: author,
		Style: Style{
			Left:           formatPercent(left),
			Top:            formatPercent(top),
			AnimationDelay: "0s",
		},
	}
}

// collides 报告候选点是否与任一已有留言过近。位置解析失败的留言
// 不参与碰撞判定。
func collides(existing []Message, left, top float64) bool {
	for _, msg := range existing {
		existingLeft, okL := parsePercent(msg.Style.Left)
		existingTop, okT := parsePercent(msg.Style.Top)
		if !okL || !okT {
			continue
		}
		if abs(existingLeft-left) < collisionGapLeft && abs(existingTop-top) < collisionGapTop {
			return true
		}
	}
	return false
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64) + "%"
}

func parsePercent(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
