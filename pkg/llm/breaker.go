package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
)

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"`  // 半开状态下的最大探测请求数
	Interval    time.Duration `mapstructure:"interval"`      // 统计窗口
	Timeout     time.Duration `mapstructure:"timeout"`       // 熔断打开后的冷却时间
	ReadyToTrip uint32        `mapstructure:"ready_to_trip"` // 触发熔断的连续失败阈值
}

// DefaultBreakerConfig 默认熔断器配置
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:     true,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: 5,
	}
}

// BreakerScorer 为评分协作方套上熔断器。
// 协作方连续失败达到阈值后快速失败，避免在服务故障期间烧掉重试预算。
type BreakerScorer struct {
	inner  Scorer
	cb     *gobreaker.CircuitBreaker
	config BreakerConfig
}

// NewBreakerScorer 创建熔断器装饰的评分器
func NewBreakerScorer(inner Scorer, config BreakerConfig) *BreakerScorer {
	log := logger.WithComponent("LLMBreaker")
	settings := gobreaker.Settings{
		Name:        "LLMScorer",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ReadyToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("熔断器 %s 状态从 %v 变更为 %v", name, from, to)
		},
	}

	return &BreakerScorer{
		inner:  inner,
		cb:     gobreaker.NewCircuitBreaker(settings),
		config: config,
	}
}

// Score 通过熔断器调用底层评分器
func (b *BreakerScorer) Score(ctx context.Context, task model.ScoringTask) (string, error) {
	if !b.config.Enabled {
		return b.inner.Score(ctx, task)
	}

	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Score(ctx, task)
	})
	if err != nil {
		return "", err
	}

	text, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("熔断器返回数据类型错误")
	}
	return text, nil
}

// State 返回熔断器当前状态
func (b *BreakerScorer) State() gobreaker.State {
	return b.cb.State()
}
