package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfactor/pkg/model"
)

func day(value string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		panic(err)
	}
	return d
}

func at(value string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

// testSeries 2024-01-02（周二）至 01-04 连续交易，01-06/07 为周末
func testSeries() *Series {
	bars := []PriceBar{
		{Code: "600519", Date: day("2024-01-02"), Open: 10.0, Close: 10.5},
		{Code: "600519", Date: day("2024-01-03"), Open: 10.6, Close: 11.0},
		{Code: "600519", Date: day("2024-01-04"), Open: 11.1, Close: 11.5},
		{Code: "600519", Date: day("2024-01-05"), Open: 11.6, Close: 12.0},
		{Code: "600519", Date: day("2024-01-08"), Open: 12.1, Close: 12.5},
	}
	return BuildIndex(bars)["600519"]
}

// TestResolveEntry 入场决策表
func TestResolveEntry(t *testing.T) {
	series := testSeries()

	tests := []struct {
		name        string
		pubTime     time.Time
		wantDate    string
		wantPrice   float64
		wantField   string
		wantOrdinal int
	}{
		{"盘前信号取当日开盘", at("2024-01-03 08:30:00"), "2024-01-03", 10.6, "open", 1},
		{"09:00 整点按盘中处理", at("2024-01-03 09:00:00"), "2024-01-03", 11.0, "close", 1},
		{"盘中信号取当日收盘", at("2024-01-03 11:30:00"), "2024-01-03", 11.0, "close", 1},
		{"15:00 整点仍按盘中处理", at("2024-01-03 15:00:00"), "2024-01-03", 11.0, "close", 1},
		{"盘后信号取次日开盘", at("2024-01-03 15:00:01"), "2024-01-04", 11.1, "open", 2},
		{"非交易日盘中取下一交易日开盘", at("2024-01-06 10:00:00"), "2024-01-08", 12.1, "open", 4},
		{"非交易日盘前同样取后续开盘", at("2024-01-06 08:00:00"), "2024-01-08", 12.1, "open", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixing, ok := ResolveEntry(series, tt.pubTime)
			require.True(t, ok)
			assert.Equal(t, tt.wantDate, fixing.Bar.Date.Format("2006-01-02"))
			assert.Equal(t, tt.wantPrice, fixing.Price)
			assert.Equal(t, tt.wantField, fixing.Field)
			assert.Equal(t, tt.wantOrdinal, fixing.Ordinal)
		})
	}
}

// TestResolveEntryBeyondData 信号晚于全部行情时无入场
func TestResolveEntryBeyondData(t *testing.T) {
	series := testSeries()
	_, ok := ResolveEntry(series, at("2024-01-08 16:00:00"))
	assert.False(t, ok, "最后一根K线之后的盘后信号不应产生入场")
}

// TestResolveExit 出场按序号偏移
func TestResolveExit(t *testing.T) {
	series := testSeries()

	bar, ok := ResolveExit(series, 0, 2)
	require.True(t, ok)
	assert.Equal(t, "2024-01-04", bar.Date.Format("2006-01-02"))

	_, ok = ResolveExit(series, 3, 5)
	assert.False(t, ok, "前向数据不足时不应产生出场")
}

func confidentScore(impact, cycle float64) model.FactorScore {
	return model.FactorScore{
		FundamentalImpact:    impact,
		ImpactCycleLength:    cycle,
		TimelinessWeight:     0.2,
		InformationCertainty: 0.9,
		InformationRelevance: 0.9,
	}
}

func fixedStrategy(bars int) Strategy {
	s := DefaultStrategy()
	s.Holding.Mode = "fixed"
	s.Holding.FixedBars = bars
	return s
}

// TestEngineRunLong 多头交易的完整解算
func TestEngineRunLong(t *testing.T) {
	index := Index{"600519": testSeries()}
	engine := NewEngine(index, fixedStrategy(2))

	signals := []Signal{{
		ID:        "n1",
		StockCode: "600519",
		PubTime:   at("2024-01-02 08:30:00"),
		Score:     confidentScore(0.9, 0.2),
	}}
	trades := engine.Run(signals)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.Equal(t, TradeLong, trade.Type)
	assert.Equal(t, 10.0, trade.EntryPrice, "盘前信号按当日开盘入场")
	assert.Equal(t, "2024-01-04", trade.ExitDate.Format("2006-01-02"), "入场行之后第 2 根K线出场")
	assert.Equal(t, 11.5, trade.ExitPrice)
	assert.InDelta(t, 0.15, trade.PctReturn, 1e-9)
	assert.True(t, trade.IsWin)
}

// TestEngineRunShort 空头收益方向相反
func TestEngineRunShort(t *testing.T) {
	index := Index{"600519": testSeries()}
	engine := NewEngine(index, fixedStrategy(2))

	signals := []Signal{{
		ID:        "n2",
		StockCode: "600519",
		PubTime:   at("2024-01-02 08:30:00"),
		Score:     confidentScore(0.1, 0.2),
	}}
	trades := engine.Run(signals)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.Equal(t, TradeShort, trade.Type)
	assert.InDelta(t, -0.15, trade.PctReturn, 1e-9, "上涨行情中的空头应亏损")
	assert.False(t, trade.IsWin)
}

// TestEngineDropsUntradeableSignals 不可成交的信号静默丢弃
func TestEngineDropsUntradeableSignals(t *testing.T) {
	index := Index{"600519": testSeries()}
	engine := NewEngine(index, fixedStrategy(2))

	lowConfidence := confidentScore(0.9, 0.2)
	lowConfidence.InformationCertainty = 0.1

	signals := []Signal{
		{ID: "unknown", StockCode: "999999", PubTime: at("2024-01-02 08:30:00"), Score: confidentScore(0.9, 0.2)},
		{ID: "gate", StockCode: "600519", PubTime: at("2024-01-02 08:30:00"), Score: lowConfidence},
		{ID: "neutral", StockCode: "600519", PubTime: at("2024-01-02 08:30:00"), Score: confidentScore(0.5, 0.2)},
		{ID: "no-exit", StockCode: "600519", PubTime: at("2024-01-08 08:30:00"), Score: confidentScore(0.9, 0.2)},
	}
	trades := engine.Run(signals)
	assert.Empty(t, trades, "无行情、未过门槛、中性信号与数据不足均不产生交易")
}

// TestEngineCycleHorizon 按影响周期因子分桶持仓
func TestEngineCycleHorizon(t *testing.T) {
	// 70 根连续K线保证长期持仓有出场数据
	bars := make([]PriceBar, 70)
	start := day("2024-01-01")
	for i := range bars {
		bars[i] = PriceBar{
			Code:  "600519",
			Date:  start.AddDate(0, 0, i),
			Open:  10.0 + float64(i)*0.1,
			Close: 10.0 + float64(i)*0.1 + 0.05,
		}
	}
	index := BuildIndex(bars)
	engine := NewEngine(index, DefaultStrategy())

	tests := []struct {
		name        string
		cycle       float64
		wantBars    int
		wantHorizon string
	}{
		{"短周期", 0.2, 5, HorizonShort},
		{"中周期", 0.5, 20, HorizonMedium},
		{"长周期", 0.9, 60, HorizonLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades := engine.Run([]Signal{{
				ID:        "n",
				StockCode: "600519",
				PubTime:   at("2024-01-02 08:30:00"),
				Score:     confidentScore(0.9, tt.cycle),
			}})
			require.Len(t, trades, 1)
			assert.Equal(t, tt.wantBars, trades[0].HoldingBars)
			assert.Equal(t, tt.wantHorizon, trades[0].Horizon)
		})
	}
}
