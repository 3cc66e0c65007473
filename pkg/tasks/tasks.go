// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"
)

// CorpusReloadTask 请求后台重新加载整个语料。
type CorpusReloadTask struct {
	RequestID   string    `json:"request_id"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Encode 序列化任务。
func (t CorpusReloadTask) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeReloadTask 解析 Kafka 消息体，request_id 为必填字段。
func DecodeReloadTask(value []byte) (CorpusReloadTask, error) {
	var task CorpusReloadTask
	if err := json.Unmarshal(value, &task); err != nil {
		return task, fmt.Errorf("invalid reload task: %w", err)
	}
	if task.RequestID == "" {
		return task, fmt.Errorf("invalid reload task: missing request_id")
	}
	return task, nil
}
