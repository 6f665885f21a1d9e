package scorer

import (
	"errors"
	"strings"

	"github.com/sony/gobreaker"

	"newsfactor/pkg/llm"
)

// FailureKind 定义任务失败的类别
type FailureKind string

const (
	KindTransient      FailureKind = "transient"           // 限流/超时等瞬时错误，可重试
	KindFatal          FailureKind = "fatal"               // 协作方非网络异常，立即失败
	KindParse          FailureKind = "parse_error"         // 回复无法解析为因子 JSON，保留原文，不重试
	KindRetryExhausted FailureKind = "max_retries_exceeded" // 重试预算耗尽
)

// Classifier 根据协作方调用返回的错误内容进行分类。
// 只有瞬时错误消耗重试预算，解析失败按尝试即终止处理（可确定性复现的
// 坏回复重试意义不大）。
type Classifier struct{}

// NewClassifier 创建错误分类器
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify 判断一次调用错误属于瞬时还是致命
func (c *Classifier) Classify(err error) FailureKind {
	if err == nil {
		return KindFatal
	}

	// 熔断器打开时快速失败，不再烧重试预算
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return KindFatal
	}

	if errors.Is(err, llm.ErrRateLimited) {
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return KindTransient
	case strings.Contains(msg, "temporary failure"):
		return KindTransient
	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"):
		return KindTransient
	case strings.Contains(msg, "服务端错误"):
		// 5xx 视为服务端抖动
		return KindTransient
	}

	return KindFatal
}
