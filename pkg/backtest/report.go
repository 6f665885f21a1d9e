package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"newsfactor/pkg/model"
)

// Bucket 一组交易的汇总指标
type Bucket struct {
	Trades     int
	Wins       int
	MeanReturn float64
}

// WinRate 胜率，空桶返回 0
func (b Bucket) WinRate() float64 {
	if b.Trades == 0 {
		return 0
	}
	return float64(b.Wins) / float64(b.Trades)
}

// Report 回测汇总报告：总体及按方向、周期、方向×周期的分组指标
type Report struct {
	Total     Bucket
	ByType    map[TradeType]Bucket
	ByHorizon map[string]Bucket
	ByCross   map[string]Bucket // key: type/horizon
}

// Aggregate 汇总全部交易
func Aggregate(trades []Trade) Report {
	report := Report{
		ByType:    make(map[TradeType]Bucket),
		ByHorizon: make(map[string]Bucket),
		ByCross:   make(map[string]Bucket),
	}

	totalSum := 0.0
	typeSum := make(map[TradeType]float64)
	horizonSum := make(map[string]float64)
	crossSum := make(map[string]float64)

	for _, t := range trades {
		cross := string(t.Type) + "/" + t.Horizon

		report.Total.Trades++
		totalSum += t.PctReturn

		bt := report.ByType[t.Type]
		bt.Trades++
		typeSum[t.Type] += t.PctReturn

		bh := report.ByHorizon[t.Horizon]
		bh.Trades++
		horizonSum[t.Horizon] += t.PctReturn

		bc := report.ByCross[cross]
		bc.Trades++
		crossSum[cross] += t.PctReturn

		if t.IsWin {
			report.Total.Wins++
			bt.Wins++
			bh.Wins++
			bc.Wins++
		}

		report.ByType[t.Type] = bt
		report.ByHorizon[t.Horizon] = bh
		report.ByCross[cross] = bc
	}

	if report.Total.Trades > 0 {
		report.Total.MeanReturn = totalSum / float64(report.Total.Trades)
	}
	for k, b := range report.ByType {
		b.MeanReturn = typeSum[k] / float64(b.Trades)
		report.ByType[k] = b
	}
	for k, b := range report.ByHorizon {
		b.MeanReturn = horizonSum[k] / float64(b.Trades)
		report.ByHorizon[k] = b
	}
	for k, b := range report.ByCross {
		b.MeanReturn = crossSum[k] / float64(b.Trades)
		report.ByCross[k] = b
	}
	return report
}

// String 渲染可读的中文汇总
func (r Report) String() string {
	var sb strings.Builder
	sb.WriteString("========== 回测汇总 ==========\n")
	fmt.Fprintf(&sb, "总交易数: %d  胜率: %.2f%%  平均收益: %.4f%%\n",
		r.Total.Trades, r.Total.WinRate()*100, r.Total.MeanReturn*100)

	for _, tt := range []TradeType{TradeLong, TradeShort} {
		if b, ok := r.ByType[tt]; ok {
			fmt.Fprintf(&sb, "[%s] 交易数: %d  胜率: %.2f%%  平均收益: %.4f%%\n",
				tt, b.Trades, b.WinRate()*100, b.MeanReturn*100)
		}
	}

	for _, h := range HorizonOrder {
		if b, ok := r.ByHorizon[h]; ok {
			fmt.Fprintf(&sb, "[%s] 交易数: %d  胜率: %.2f%%  平均收益: %.4f%%\n",
				h, b.Trades, b.WinRate()*100, b.MeanReturn*100)
		}
	}

	crossKeys := make([]string, 0, len(r.ByCross))
	for k := range r.ByCross {
		crossKeys = append(crossKeys, k)
	}
	sort.Slice(crossKeys, func(i, j int) bool {
		return crossOrder(crossKeys[i]) < crossOrder(crossKeys[j])
	})
	for _, k := range crossKeys {
		b := r.ByCross[k]
		fmt.Fprintf(&sb, "[%s] 交易数: %d  胜率: %.2f%%  平均收益: %.4f%%\n",
			k, b.Trades, b.WinRate()*100, b.MeanReturn*100)
	}
	sb.WriteString("==============================")
	return sb.String()
}

func crossOrder(key string) int {
	order := 0
	if strings.HasPrefix(key, string(TradeShort)) {
		order += 10
	}
	for i, h := range HorizonOrder {
		if strings.HasSuffix(key, h) {
			order += i
			break
		}
	}
	return order
}

var tradeHeader = append([]string{
	"signal_id", "stock_code", "pub_time",
	"time_horizon", "holding_period_days", "trade_type",
	"entry_date", "entry_price", "exit_date", "exit_price",
	"pct_return", "is_win",
}, model.FactorNames...)

// WriteTrades 将交易明细写为带 BOM 的 UTF-8 CSV，便于 Excel 直接打开
func WriteTrades(path string, trades []Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建交易明细文件失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(transform.NewWriter(f, unicode.UTF8BOM.NewEncoder()))
	if err := w.Write(tradeHeader); err != nil {
		return fmt.Errorf("写入交易明细表头失败: %w", err)
	}

	for _, t := range trades {
		row := []string{
			t.SignalID,
			t.StockCode,
			t.PubTime.Format("2006-01-02 15:04:05"),
			t.Horizon,
			strconv.Itoa(t.HoldingBars),
			string(t.Type),
			t.EntryDate.Format("2006-01-02"),
			strconv.FormatFloat(t.EntryPrice, 'g', -1, 64),
			t.ExitDate.Format("2006-01-02"),
			strconv.FormatFloat(t.ExitPrice, 'g', -1, 64),
			strconv.FormatFloat(t.PctReturn, 'g', -1, 64),
			strconv.FormatBool(t.IsWin),
		}
		for _, v := range t.Score.Values() {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("写入交易明细失败: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("写入交易明细失败: %w", err)
	}
	return nil
}
