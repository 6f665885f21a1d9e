// scorer 批量调用大模型为抓取的个股新闻打因子分。
// 支持断点续跑：已出现在结果文件中的股票代码自动跳过。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	appconfig "newsfactor/pkg/config"
	"newsfactor/pkg/llm"
	"newsfactor/pkg/logger"
	"newsfactor/pkg/pipeline"
	"newsfactor/pkg/scorer"
	"newsfactor/pkg/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径 (YAML)，为空时使用默认值与环境变量")
		logLevel   = flag.String("log-level", "", "覆盖日志级别 (debug/info/warn/error)")
		logFormat  = flag.String("log-format", "", "覆盖日志格式 (text/json)")
		schedule   = flag.String("schedule", "", "cron 表达式，设置后按计划周期运行且不再交互暂停")
	)
	flag.Parse()

	// .env 缺失不算错误，仅便于本地开发注入 API key
	_ = godotenv.Load()

	config, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		config.Logger.Level = *logLevel
	}
	if *logFormat != "" {
		config.Logger.Format = *logFormat
	}
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}

	logger.Init(logger.Config{Level: config.Logger.Level, Format: config.Logger.Format})
	log := logger.WithComponent("Scorer")

	if config.LLM.APIKey == "" {
		log.Error("未配置 LLM API key，请设置 NEWSFACTOR_LLM_API_KEY 或 DEEPSEEK_API_KEY")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warnf("收到信号 %v，正在停止...", sig)
		cancel()
	}()

	if *schedule != "" {
		runScheduled(ctx, config, *schedule)
		return
	}

	if err := runOnce(ctx, config, pipeline.StdinPrompter{}); err != nil {
		log.Errorf("评分运行失败: %v", err)
		os.Exit(1)
	}
}

// runOnce 执行一次完整的评分流程
func runOnce(ctx context.Context, config *appconfig.Config, prompter pipeline.Prompter) error {
	log := logger.WithComponent("Scorer")
	runID := uuid.New().String()
	log.Infof("评分运行开始，run_id=%s", runID)

	var client llm.Scorer = llm.NewClient(config.LLM)
	if config.Breaker.Enabled {
		client = llm.NewBreakerScorer(client, config.Breaker)
	}

	var cache scorer.ScoreCache
	if config.Redis.Enabled {
		redisCache, err := store.NewScoreCache(config.Redis)
		if err != nil {
			log.Warnf("Redis 缓存不可用，降级为无缓存运行: %v", err)
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	p := pipeline.New(
		config.Pipeline,
		scorer.New(client, cache, config.Scorer),
		store.NewResultSink(config.Pipeline.ResultCSV),
		store.NewFailureSink(config.Pipeline.FailedJSON),
		prompter,
		runID,
	)

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	log.Infof("评分运行结束: 处理文件 %d 个，跳过文件 %d 个，成功 %d 条，失败 %d 条，跳过 %d 条",
		summary.FilesProcessed, summary.FilesSkipped,
		summary.Succeeded, summary.Failed, summary.Skipped)
	if summary.QuitEarly {
		log.Info("运行由操作员提前终止")
	}
	return nil
}

// runScheduled 按 cron 表达式周期性运行，计划模式下不做交互暂停
func runScheduled(ctx context.Context, config *appconfig.Config, spec string) {
	log := logger.WithComponent("Scheduler")

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := runOnce(ctx, config, nil); err != nil {
			log.Errorf("计划运行失败: %v", err)
		}
	})
	if err != nil {
		log.Errorf("cron 表达式无效 %q: %v", spec, err)
		os.Exit(1)
	}

	log.Infof("计划模式已启动: %s", spec)
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	log.Info("计划模式已退出")
}
