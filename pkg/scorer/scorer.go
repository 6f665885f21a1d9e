// Package scorer 实现有界并发的批量评分：工作槽受限的并发执行、
// 瞬时错误的可取消退避重试、空内容短路与因子范围校验。
package scorer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"newsfactor/pkg/llm"
	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
)

// Status 单条任务的评分结果状态
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result 一条任务的评分结果
type Result struct {
	Task       model.ScoringTask
	Status     Status
	Score      model.FactorScore
	Kind       FailureKind
	Err        string
	RawContent string // 解析失败时保留的原始回复，供离线排查
	Attempts   int
	FromCache  bool
}

// ScoreCache 评分缓存接口：命中则跳过协作方调用
type ScoreCache interface {
	Get(ctx context.Context, id string) (model.FactorScore, bool)
	Set(ctx context.Context, id string, score model.FactorScore)
}

// Config 并发评分配置
type Config struct {
	Concurrency int           `mapstructure:"concurrency"` // 工作槽数量
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// ConcurrentScorer 有界并发评分器
type ConcurrentScorer struct {
	client     llm.Scorer
	classifier *Classifier
	cache      ScoreCache // 可为 nil
	config     Config
	log        *logrus.Entry
}

// New 创建并发评分器。cache 传 nil 表示不启用缓存。
func New(client llm.Scorer, cache ScoreCache, config Config) *ConcurrentScorer {
	if config.Concurrency <= 0 {
		config.Concurrency = 5
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	return &ConcurrentScorer{
		client:     client,
		classifier: NewClassifier(),
		cache:      cache,
		config:     config,
		log:        logger.WithComponent("ConcurrentScorer"),
	}
}

// ScoreAll 并发评分一批任务，结果顺序与输入一致。
// 任务之间互不阻塞，唯一的共享约束是工作槽数量。
func (s *ConcurrentScorer) ScoreAll(ctx context.Context, tasks []model.ScoringTask) []Result {
	results := make([]Result, len(tasks))
	sem := make(chan struct{}, s.config.Concurrency)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task model.ScoringTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.scoreOne(ctx, task)
		}(i, task)
	}

	wg.Wait()
	return results
}

// scoreOne 评分单条任务，在同一工作槽内完成全部重试
func (s *ConcurrentScorer) scoreOne(ctx context.Context, task model.ScoringTask) Result {
	if task.FullText() == "" {
		s.log.Warnf("ID %s 的文本内容为空，跳过处理", task.ID)
		return Result{Task: task, Status: StatusSkipped, Err: "empty content"}
	}

	if s.cache != nil {
		if score, ok := s.cache.Get(ctx, task.ID); ok {
			s.log.Debugf("ID %s 命中评分缓存", task.ID)
			return Result{Task: task, Status: StatusSuccess, Score: score, FromCache: true}
		}
	}

	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{
				Task: task, Status: StatusFailed, Kind: KindFatal,
				Err: "运行被取消: " + err.Error(), Attempts: attempt,
			}
		}

		raw, err := s.client.Score(ctx, task)
		if err != nil {
			kind := s.classifier.Classify(err)
			if kind != KindTransient {
				s.log.Errorf("ID %s 调用协作方失败（不可重试）: %v", task.ID, err)
				return Result{
					Task: task, Status: StatusFailed, Kind: KindFatal,
					Err: err.Error(), Attempts: attempt + 1,
				}
			}

			s.log.Warnf("ID %s 触发瞬时错误，第 %d/%d 次尝试，%v 后重试: %v",
				task.ID, attempt+1, s.config.MaxRetries, s.config.RetryDelay, err)
			if !sleepCtx(ctx, s.config.RetryDelay) {
				return Result{
					Task: task, Status: StatusFailed, Kind: KindFatal,
					Err: "重试等待期间运行被取消", Attempts: attempt + 1,
				}
			}
			continue
		}

		// 解析失败按尝试即终止，保留原文供排查
		score, perr := model.ParseFactorScore(raw)
		if perr != nil {
			s.log.Errorf("ID %s 的回复解析失败: %v", task.ID, perr)
			return Result{
				Task: task, Status: StatusFailed, Kind: KindParse,
				Err: perr.Error(), RawContent: raw, Attempts: attempt + 1,
			}
		}

		if s.cache != nil {
			s.cache.Set(ctx, task.ID, score)
		}
		return Result{Task: task, Status: StatusSuccess, Score: score, Attempts: attempt + 1}
	}

	s.log.Errorf("ID %s 超过最大重试次数", task.ID)
	return Result{
		Task: task, Status: StatusFailed, Kind: KindRetryExhausted,
		Err: "max retries exceeded", Attempts: s.config.MaxRetries,
	}
}

// sleepCtx 可取消的等待，返回 false 表示等待被上下文中断
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
