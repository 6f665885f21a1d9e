package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
)

// FailureDocument 一次运行的失败记录文档，每次运行整体覆盖写入
type FailureDocument struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Count       int                `json:"count"`
	Failures    []model.FailedTask `json:"failures"`
}

// FailureSink 失败日志存储。
// 失败任务在内存中随运行累积，仅在运行结束时一次性落盘；
// 落盘前崩溃只丢失失败清单，不影响已持久化的成功结果。
type FailureSink struct {
	path string
	log  *logrus.Entry
}

// NewFailureSink 创建失败日志存储
func NewFailureSink(path string) *FailureSink {
	return &FailureSink{
		path: path,
		log:  logger.WithComponent("FailureSink"),
	}
}

// Flush 将完整的失败集合写入失败日志，覆盖上一次运行的内容
func (s *FailureSink) Flush(runID string, failures []model.FailedTask) error {
	if len(failures) == 0 {
		s.log.Info("本次运行没有记录失败")
		return nil
	}

	doc := FailureDocument{
		RunID:       runID,
		GeneratedAt: time.Now(),
		Count:       len(failures),
		Failures:    failures,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化失败日志失败: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("写入失败日志失败: %w", err)
	}

	s.log.Warnf("总计 %d 条记录处理失败，详情请查看 %s", len(failures), s.path)
	return nil
}
