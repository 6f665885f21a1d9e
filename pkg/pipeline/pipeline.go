// Package pipeline 实现评分流水线的编排：发现输入文件、过滤目标与
// 已处理代码、逐文件评分并即时持久化、按检查点暂停等待操作员确认。
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
	"newsfactor/pkg/scorer"
	"newsfactor/pkg/store"
)

// Prompter 操作员确认接口，检查点处决定继续或终止运行
type Prompter interface {
	// Confirm 返回 false 表示操作员要求终止
	Confirm(latestFile string) (bool, error)
}

// StdinPrompter 从标准输入读取操作员指令
type StdinPrompter struct{}

// Confirm 按回车继续，输入 q 终止
func (StdinPrompter) Confirm(latestFile string) (bool, error) {
	fmt.Printf("--- [暂停] 最近处理的文件: %s ---\n", latestFile)
	fmt.Print("[操作] 按 Enter 继续, 或输入 'q' (然后按 Enter) 退出: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(line)) != "q", nil
}

// Config 评分流水线配置
type Config struct {
	SourceDir   string   `mapstructure:"source_dir"`   // 输入 JSON 目录
	ResultCSV   string   `mapstructure:"result_csv"`   // 结果存储路径
	FailedJSON  string   `mapstructure:"failed_json"`  // 失败日志路径
	TargetCodes []string `mapstructure:"target_codes"` // 目标股票代码白名单，空表示全部
	PauseEvery  int      `mapstructure:"pause_every"`  // 每处理 N 个文件暂停一次，0 关闭
}

// Summary 一次运行的结果统计
type Summary struct {
	FilesProcessed int
	FilesSkipped   int
	Succeeded      int
	Failed         int
	Skipped        int
	QuitEarly      bool
}

// Pipeline 评分流水线
type Pipeline struct {
	config   Config
	scorer   *scorer.ConcurrentScorer
	results  *store.ResultSink
	failures *store.FailureSink
	prompter Prompter
	runID    string
	log      *logrus.Entry
}

// New 创建评分流水线。prompter 传 nil 表示关闭暂停检查点（非交互模式）。
func New(config Config, sc *scorer.ConcurrentScorer, results *store.ResultSink, failures *store.FailureSink, prompter Prompter, runID string) *Pipeline {
	return &Pipeline{
		config:   config,
		scorer:   sc,
		results:  results,
		failures: failures,
		prompter: prompter,
		runID:    runID,
		log:      logger.WithComponent("ScoringPipeline").WithField("runID", runID),
	}
}

// Run 执行一次完整的评分运行。
// 单个文件的加载失败只跳过该文件；中断信号（ctx 取消）或操作员退出
// 会停止后续文件的处理，已追加的结果保持持久。
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	processed, err := p.results.LoadProcessedCodes()
	if err != nil {
		p.log.Warnf("无法读取已存在的结果文件: %v，将作为新文件处理", err)
		processed = map[string]struct{}{}
	}
	if len(processed) > 0 {
		p.log.Infof("检测到已存在的结果文件，已加载 %d 个处理过的股票代码", len(processed))
	}

	discovered, err := DiscoverFiles(p.config.SourceDir)
	if err != nil {
		return summary, err
	}

	targets := discovered
	if len(p.config.TargetCodes) > 0 {
		targetSet := make(map[string]struct{}, len(p.config.TargetCodes))
		for _, code := range p.config.TargetCodes {
			targetSet[code] = struct{}{}
		}
		targets = targets[:0:0]
		for _, path := range discovered {
			if _, ok := targetSet[stemOf(path)]; ok {
				targets = append(targets, path)
			}
		}
		p.log.Infof("在目录中找到了 %d 个与目标列表 %d 匹配的文件", len(targets), len(targetSet))
	}

	var files []string
	for _, path := range targets {
		if _, done := processed[stemOf(path)]; done {
			p.log.Infof("(跳过已处理) %s", filepath.Base(path))
			summary.FilesSkipped++
			continue
		}
		files = append(files, path)
	}

	if len(files) == 0 {
		p.log.Info("所有目标股票文件均已处理")
		return summary, nil
	}
	p.log.Infof("总计 %d 个目标文件，已处理 %d 个，剩余 %d 个待处理",
		len(targets), summary.FilesSkipped, len(files))

	var allFailed []model.FailedTask
	defer func() {
		if err := p.failures.Flush(p.runID, allFailed); err != nil {
			p.log.Errorf("保存失败日志失败: %v", err)
		}
	}()

	for i, path := range files {
		if ctx.Err() != nil {
			p.log.Info("检测到中断信号，终止后续文件处理")
			summary.QuitEarly = true
			break
		}

		p.log.Infof("--- 正在处理目标文件 %d/%d: %s ---", i+1, len(files), path)

		tasks, err := LoadTasks(path)
		if err != nil {
			p.log.Warnf("文件 %s 加载失败或为空，跳过: %v", path, err)
			continue
		}
		p.log.Infof("成功从 %s 加载了 %d 条记录", path, len(tasks))

		fileSummary, failed := p.processFile(ctx, tasks)
		summary.Succeeded += fileSummary.Succeeded
		summary.Failed += fileSummary.Failed
		summary.Skipped += fileSummary.Skipped
		summary.FilesProcessed++
		allFailed = append(allFailed, failed...)

		if p.shouldPause(i, len(files)) {
			keepGoing, err := p.prompter.Confirm(filepath.Base(path))
			if err != nil || !keepGoing {
				p.log.Info("用户请求退出，程序终止")
				summary.QuitEarly = true
				break
			}
		}
	}

	p.log.Infof("--- 批量处理全部完成：%d 个文件，成功 %d 条，失败 %d 条，跳过 %d 条 ---",
		summary.FilesProcessed, summary.Succeeded, summary.Failed, summary.Skipped)
	return summary, nil
}

// processFile 评分单个文件的全部任务并即时持久化成功结果
func (p *Pipeline) processFile(ctx context.Context, tasks []model.ScoringTask) (Summary, []model.FailedTask) {
	var summary Summary
	var failed []model.FailedTask

	results := p.scorer.ScoreAll(ctx, tasks)

	var succeeded []model.ScoredRecord
	for _, r := range results {
		switch r.Status {
		case scorer.StatusSuccess:
			succeeded = append(succeeded, model.ScoredRecord{
				ID:        r.Task.ID,
				StockCode: r.Task.StockCode,
				PubTime:   r.Task.PubTime,
				Score:     r.Score,
			})
		case scorer.StatusFailed:
			failed = append(failed, model.FailedTask{
				ID:         r.Task.ID,
				StockCode:  r.Task.StockCode,
				ErrorKind:  string(r.Kind),
				Error:      r.Err,
				RawContent: r.RawContent,
				Attempts:   r.Attempts,
			})
		case scorer.StatusSkipped:
			summary.Skipped++
		}
	}
	summary.Succeeded = len(succeeded)
	summary.Failed = len(failed)

	// 每个文件的成功结果评分完立即追加，崩溃最多丢失一个在途文件
	if len(succeeded) > 0 {
		if err := p.results.Append(succeeded); err != nil {
			p.log.Errorf("追加结果失败: %v", err)
			for _, rec := range succeeded {
				failed = append(failed, model.FailedTask{
					ID:        rec.ID,
					StockCode: rec.StockCode,
					ErrorKind: "persist_error",
					Error:     err.Error(),
				})
			}
			summary.Succeeded = 0
			summary.Failed = len(failed)
		}
	}

	if len(failed) > 0 {
		p.log.Warnf("本文件产生 %d 条失败记录", len(failed))
	}
	return summary, failed
}

// shouldPause 检查是否到达暂停检查点（最后一个文件不暂停）
func (p *Pipeline) shouldPause(index, total int) bool {
	if p.prompter == nil || p.config.PauseEvery <= 0 {
		return false
	}
	isLast := index == total-1
	return (index+1)%p.config.PauseEvery == 0 && !isLast
}

// DiscoverFiles 枚举目录下以数字股票代码命名的 JSON 文件
func DiscoverFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("找不到目录 %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if isDigits(stemOf(e.Name())) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
