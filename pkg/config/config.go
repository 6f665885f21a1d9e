// Package config 基于 viper 的集中配置：默认值、YAML 文件与环境变量三层叠加。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"newsfactor/pkg/backtest"
	"newsfactor/pkg/llm"
	"newsfactor/pkg/pipeline"
	"newsfactor/pkg/scorer"
	"newsfactor/pkg/store"
)

// envPrefix 环境变量前缀，如 NEWSFACTOR_LLM_API_KEY
const envPrefix = "NEWSFACTOR"

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BacktestConfig 回测输入输出与策略配置
type BacktestConfig struct {
	PriceCSV      string            `mapstructure:"price_csv"`
	PriceEncoding string            `mapstructure:"price_encoding"` // utf-8 | gbk
	SignalCSV     string            `mapstructure:"signal_csv"`
	TimeLayouts   []string          `mapstructure:"time_layouts"`
	TradesCSV     string            `mapstructure:"trades_csv"`
	Strategy      backtest.Strategy `mapstructure:"strategy"`
}

// Config 全量应用配置
type Config struct {
	Logger   LoggerConfig      `mapstructure:"logger"`
	LLM      llm.Config        `mapstructure:"llm"`
	Breaker  llm.BreakerConfig `mapstructure:"breaker"`
	Scorer   scorer.Config     `mapstructure:"scorer"`
	Pipeline pipeline.Config   `mapstructure:"pipeline"`
	Redis    store.RedisConfig `mapstructure:"redis"`
	Backtest BacktestConfig    `mapstructure:"backtest"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")

	v.SetDefault("llm.base_url", "https://api.deepseek.com/v1")
	// api_key 的空默认值让 AutomaticEnv 能把 NEWSFACTOR_LLM_API_KEY 映射进来
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", 120*time.Second)

	breaker := llm.DefaultBreakerConfig()
	v.SetDefault("breaker.enabled", breaker.Enabled)
	v.SetDefault("breaker.max_requests", breaker.MaxRequests)
	v.SetDefault("breaker.interval", breaker.Interval)
	v.SetDefault("breaker.timeout", breaker.Timeout)
	v.SetDefault("breaker.ready_to_trip", breaker.ReadyToTrip)

	v.SetDefault("scorer.concurrency", 5)
	v.SetDefault("scorer.max_retries", 3)
	v.SetDefault("scorer.retry_delay", 15*time.Second)

	v.SetDefault("pipeline.source_dir", "output")
	v.SetDefault("pipeline.result_csv", "scored_data.csv")
	v.SetDefault("pipeline.failed_json", "failed_tasks.json")
	v.SetDefault("pipeline.target_codes", []string{})
	v.SetDefault("pipeline.pause_every", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 7*24*time.Hour)

	v.SetDefault("backtest.price_csv", "stock_price.csv")
	v.SetDefault("backtest.price_encoding", "utf-8")
	v.SetDefault("backtest.signal_csv", "scored_data.csv")
	v.SetDefault("backtest.time_layouts", backtest.DefaultTimeLayouts)
	v.SetDefault("backtest.trades_csv", "backtest_trades.csv")

	strategy := backtest.DefaultStrategy()
	v.SetDefault("backtest.strategy.name", strategy.Name)
	v.SetDefault("backtest.strategy.version", strategy.Version)
	v.SetDefault("backtest.strategy.min_certainty", strategy.MinCertainty)
	v.SetDefault("backtest.strategy.min_relevance", strategy.MinRelevance)
	v.SetDefault("backtest.strategy.max_timeliness", strategy.MaxTimeliness)
	v.SetDefault("backtest.strategy.long_min_impact", strategy.LongMinImpact)
	v.SetDefault("backtest.strategy.short_max_impact", strategy.ShortMaxImpact)
	v.SetDefault("backtest.strategy.allow_short", strategy.AllowShort)
	v.SetDefault("backtest.strategy.holding.mode", strategy.Holding.Mode)
	v.SetDefault("backtest.strategy.holding.fixed_bars", strategy.Holding.FixedBars)
	v.SetDefault("backtest.strategy.holding.short_max", strategy.Holding.ShortMax)
	v.SetDefault("backtest.strategy.holding.medium_max", strategy.Holding.MediumMax)
	v.SetDefault("backtest.strategy.holding.short_bars", strategy.Holding.ShortBars)
	v.SetDefault("backtest.strategy.holding.medium_bars", strategy.Holding.MediumBars)
	v.SetDefault("backtest.strategy.holding.long_bars", strategy.Holding.LongBars)
}

// Load 加载配置。path 为空时仅使用默认值与环境变量；
// 环境变量用下划线展开嵌套键，如 NEWSFACTOR_SCORER_CONCURRENCY=20。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Scorer.Concurrency < 1 {
		return fmt.Errorf("scorer.concurrency 必须为正，当前为 %d", c.Scorer.Concurrency)
	}
	if c.Scorer.MaxRetries < 0 {
		return fmt.Errorf("scorer.max_retries 不能为负")
	}
	if c.Pipeline.SourceDir == "" {
		return fmt.Errorf("pipeline.source_dir 不能为空")
	}
	if c.Pipeline.ResultCSV == "" || c.Pipeline.FailedJSON == "" {
		return fmt.Errorf("pipeline 输出路径不能为空")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url 不能为空")
	}
	if err := c.Backtest.Strategy.Validate(); err != nil {
		return fmt.Errorf("回测策略配置无效: %w", err)
	}
	return nil
}
