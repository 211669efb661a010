package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeExportRender = "export:render"
)

// ExportRenderPayload 描述渲染一张看板图片所需的最小信息。
// 快照本身已冻结在导出记录里，队列只传 ID。
type ExportRenderPayload struct {
	ExportID      string `json:"export_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewExportRenderTask 构造一个新的看板图片渲染任务。
func NewExportRenderTask(exportID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportRenderPayload{
		ExportID:      exportID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExportRender, payload), nil
}
