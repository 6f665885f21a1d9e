// backtest 用因子评分结果驱动入场/出场回测并输出汇总报告。
package main

import (
	"flag"
	"fmt"
	"os"

	"newsfactor/pkg/backtest"
	appconfig "newsfactor/pkg/config"
	"newsfactor/pkg/logger"
	"newsfactor/pkg/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径 (YAML)")
		priceCSV   = flag.String("price", "", "覆盖行情文件路径")
		signalCSV  = flag.String("signals", "", "覆盖因子信号文件路径")
		tradesCSV  = flag.String("out", "", "覆盖交易明细输出路径")
		logLevel   = flag.String("log-level", "", "覆盖日志级别")
	)
	flag.Parse()

	config, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		config.Logger.Level = *logLevel
	}
	if *priceCSV != "" {
		config.Backtest.PriceCSV = *priceCSV
	}
	if *signalCSV != "" {
		config.Backtest.SignalCSV = *signalCSV
	}
	if *tradesCSV != "" {
		config.Backtest.TradesCSV = *tradesCSV
	}

	logger.Init(logger.Config{Level: config.Logger.Level, Format: config.Logger.Format})
	log := logger.WithComponent("Backtest")

	strategy := config.Backtest.Strategy
	log.Infof("策略: %s %s (持仓模式 %s)", strategy.Name, strategy.Version, strategy.Holding.Mode)

	bars, err := backtest.LoadPriceBars(config.Backtest.PriceCSV, config.Backtest.PriceEncoding)
	if err != nil {
		log.Errorf("加载行情失败: %v", err)
		os.Exit(1)
	}
	index := backtest.BuildIndex(bars)

	signals, err := backtest.LoadSignals(
		store.NewResultSink(config.Backtest.SignalCSV),
		config.Backtest.TimeLayouts,
	)
	if err != nil {
		log.Errorf("加载信号失败: %v", err)
		os.Exit(1)
	}

	trades := backtest.NewEngine(index, strategy).Run(signals)

	if config.Backtest.TradesCSV != "" {
		if err := backtest.WriteTrades(config.Backtest.TradesCSV, trades); err != nil {
			log.Errorf("写入交易明细失败: %v", err)
			os.Exit(1)
		}
		log.Infof("交易明细已写入 %s", config.Backtest.TradesCSV)
	}

	fmt.Println(backtest.Aggregate(trades).String())
}
