package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"newsfactor/pkg/model"
	"newsfactor/pkg/stockname"
)

// ErrEmptyFile 输入文件为空
var ErrEmptyFile = errors.New("文件为空")

// rawTask 兼容 _id 与 id 两种主键写法的输入记录
type rawTask struct {
	model.ScoringTask
	AltID string `json:"id"`
}

// LoadTasks 从单个股票 JSON 文件加载待评分任务，并补齐股票名称。
// 空文件与格式错误按文件粒度失败，由调用方决定跳过。
func LoadTasks(path string) ([]model.ScoringTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	var raw []rawTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("不是有效的 JSON 格式: %w", err)
	}

	tasks := make([]model.ScoringTask, 0, len(raw))
	for _, r := range raw {
		task := r.ScoringTask
		if task.ID == "" {
			task.ID = r.AltID
		}
		if task.StockName == "" {
			task.StockName = stockname.Lookup(task.StockCode)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
