package backtest

import (
	"time"

	"github.com/sirupsen/logrus"

	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
)

// Trade 一条信号产生的已完结交易
type Trade struct {
	SignalID    string
	StockCode   string
	PubTime     time.Time
	Horizon     string
	HoldingBars int
	Type        TradeType
	EntryDate   time.Time
	EntryPrice  float64
	ExitDate    time.Time
	ExitPrice   float64
	PctReturn   float64
	IsWin       bool
	Score       model.FactorScore
}

// Fixing 入场定价点：选中的K线、其序号与价格字段
type Fixing struct {
	Bar     PriceBar
	Ordinal int
	Price   float64
	Field   string // open | close
}

// 入场决策的时段边界（当地交易所时间）
const (
	entryMorningSec = 9 * 3600  // 09:00
	entryCloseSec   = 15 * 3600 // 15:00
)

// ResolveEntry 将信号发布时间映射为入场定价点。
//
// 决策表：
//   - 09:00 前（盘前）：T日（>= 信号日）开盘价；
//   - 09:00–15:00（含两端）且信号日为交易日（盘中）：T日收盘价；
//   - 09:00–15:00 且信号日为非交易日：下一根K线开盘价；
//   - 15:00 后（盘后）：下一根K线开盘价。
//
// 信号晚于全部可用行情时不产生入场。
func ResolveEntry(series *Series, pubTime time.Time) (Fixing, bool) {
	day := time.Date(pubTime.Year(), pubTime.Month(), pubTime.Day(), 0, 0, 0, 0, pubTime.Location())
	secs := pubTime.Hour()*3600 + pubTime.Minute()*60 + pubTime.Second()

	switch {
	case secs < entryMorningSec:
		if bar, i, ok := series.FirstOnOrAfter(day); ok {
			return Fixing{Bar: bar, Ordinal: i, Price: bar.Open, Field: "open"}, true
		}
	case secs <= entryCloseSec:
		if series.IsTradingDay(day) {
			if bar, i, ok := series.FirstOnOrAfter(day); ok {
				return Fixing{Bar: bar, Ordinal: i, Price: bar.Close, Field: "close"}, true
			}
		} else {
			if bar, i, ok := series.FirstAfter(day); ok {
				return Fixing{Bar: bar, Ordinal: i, Price: bar.Open, Field: "open"}, true
			}
		}
	default:
		if bar, i, ok := series.FirstAfter(day); ok {
			return Fixing{Bar: bar, Ordinal: i, Price: bar.Open, Field: "open"}, true
		}
	}
	return Fixing{}, false
}

// ResolveExit 返回入场序号之后第 holdingBars 根K线作为出场K线，
// 统一按收盘价出场；前向数据不足时不产生交易。
func ResolveExit(series *Series, entryOrdinal, holdingBars int) (PriceBar, bool) {
	return series.At(entryOrdinal + holdingBars)
}

// Engine 回测引擎：逐条信号顺序解算，结果确定
type Engine struct {
	index    Index
	strategy Strategy
	log      *logrus.Entry
}

// NewEngine 创建回测引擎
func NewEngine(index Index, strategy Strategy) *Engine {
	return &Engine{
		index:    index,
		strategy: strategy,
		log:      logger.WithComponent("BacktestEngine"),
	}
}

// Run 对全部信号执行回测。
// 无行情、未触发、无入场点、前向数据不足的信号静默丢弃，
// 这些都是预期的边界情形而非错误。
func (e *Engine) Run(signals []Signal) []Trade {
	trades := make([]Trade, 0, len(signals))

	for _, signal := range signals {
		series, ok := e.index[signal.StockCode]
		if !ok {
			continue
		}

		tradeType, triggered := e.strategy.Evaluate(signal.Score)
		if !triggered {
			continue
		}

		entry, ok := ResolveEntry(series, signal.PubTime)
		if !ok {
			continue
		}

		holdingBars, horizon := e.strategy.HoldingPeriod(signal.Score)
		exitBar, ok := ResolveExit(series, entry.Ordinal, holdingBars)
		if !ok {
			continue
		}

		var pctReturn float64
		switch tradeType {
		case TradeLong:
			pctReturn = (exitBar.Close - entry.Price) / entry.Price
		case TradeShort:
			pctReturn = (entry.Price - exitBar.Close) / entry.Price
		}

		trades = append(trades, Trade{
			SignalID:    signal.ID,
			StockCode:   signal.StockCode,
			PubTime:     signal.PubTime,
			Horizon:     horizon,
			HoldingBars: holdingBars,
			Type:        tradeType,
			EntryDate:   entry.Bar.Date,
			EntryPrice:  entry.Price,
			ExitDate:    exitBar.Date,
			ExitPrice:   exitBar.Close,
			PctReturn:   pctReturn,
			IsWin:       pctReturn > 0,
			Score:       signal.Score,
		})
	}

	e.log.Infof("回测执行完毕，%d 条信号产生 %d 笔交易", len(signals), len(trades))
	return trades
}
