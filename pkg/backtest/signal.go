package backtest

import (
	"fmt"
	"time"

	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
	"newsfactor/pkg/store"
)

// Signal 一条因子评分记录在回测中的解读：潜在的交易触发
type Signal struct {
	ID        string
	StockCode string
	PubTime   time.Time
	Score     model.FactorScore
}

// DefaultTimeLayouts 信号发布时间的候选格式。
// 上游评分输出的时间格式在不同批次间变过，按顺序尝试。
var DefaultTimeLayouts = []string{
	"2006/01/02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadSignals 从结果存储读取信号。
// 重复 id 由存储层按最后写入去重；发布时间无法解析的行跳过。
func LoadSignals(sink *store.ResultSink, layouts []string) ([]Signal, error) {
	if len(layouts) == 0 {
		layouts = DefaultTimeLayouts
	}

	records, err := sink.LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("加载因子信号失败: %w", err)
	}

	log := logger.WithComponent("SignalLoader")
	signals := make([]Signal, 0, len(records))
	dropped := 0
	for _, rec := range records {
		pubTime, ok := parseTime(rec.PubTime, layouts)
		if !ok {
			dropped++
			continue
		}
		signals = append(signals, Signal{
			ID:        rec.ID,
			StockCode: rec.StockCode,
			PubTime:   pubTime,
			Score:     rec.Score,
		})
	}

	if dropped > 0 {
		log.Warnf("%d 条信号的发布时间无法解析，已跳过", dropped)
	}
	log.Infof("因子数据已加载，包含 %d 条信号", len(signals))
	return signals, nil
}

func parseTime(value string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
