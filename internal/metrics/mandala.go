package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 领域指标：生成协作方调用与看板编辑量。
var (
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mandala",
			Subsystem: "chart",
			Name:      "generation_requests_total",
			Help:      "AI 生成请求总数，按模式与结果分类。",
		},
		[]string{"mode", "outcome"},
	)

	CellUpdateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mandala",
			Subsystem: "chart",
			Name:      "cell_updates_total",
			Help:      "九宫格格子写入总数。",
		},
	)

	CheerMessageTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mandala",
			Subsystem: "cheer",
			Name:      "messages_created_total",
			Help:      "应援留言创建总数。",
		},
	)
)
