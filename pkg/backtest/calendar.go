package backtest

import (
	"sort"
	"time"
)

// Series 单只股票按日期升序排列的行情序列，附带交易日集合。
// 出场按"入场行之后第 N 根K线"的序号偏移计算，节假日与停牌
// 由按K线计数天然处理，不做日历日算术。
type Series struct {
	Code string
	Bars []PriceBar

	days map[string]struct{}
}

const dayKeyLayout = "2006-01-02"

// Len 序列长度
func (s *Series) Len() int {
	return len(s.Bars)
}

// At 返回指定序号的K线，越界时 ok 为 false
func (s *Series) At(i int) (PriceBar, bool) {
	if i < 0 || i >= len(s.Bars) {
		return PriceBar{}, false
	}
	return s.Bars[i], true
}

// IsTradingDay 判断某天是否为该股票的交易日，O(1)
func (s *Series) IsTradingDay(day time.Time) bool {
	_, ok := s.days[day.Format(dayKeyLayout)]
	return ok
}

// FirstOnOrAfter 返回日期不早于 day 的第一根K线及其序号
func (s *Series) FirstOnOrAfter(day time.Time) (PriceBar, int, bool) {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Date.Before(day)
	})
	if i >= len(s.Bars) {
		return PriceBar{}, -1, false
	}
	return s.Bars[i], i, true
}

// FirstAfter 返回日期晚于 day 的第一根K线及其序号
func (s *Series) FirstAfter(day time.Time) (PriceBar, int, bool) {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return s.Bars[i].Date.After(day)
	})
	if i >= len(s.Bars) {
		return PriceBar{}, -1, false
	}
	return s.Bars[i], i, true
}

// Index 股票代码到行情序列的索引
type Index map[string]*Series

// BuildIndex 从全量行情构建按股票分组的日历索引
func BuildIndex(bars []PriceBar) Index {
	index := make(Index)
	for _, bar := range bars {
		series, ok := index[bar.Code]
		if !ok {
			series = &Series{Code: bar.Code, days: make(map[string]struct{})}
			index[bar.Code] = series
		}
		series.Bars = append(series.Bars, bar)
		series.days[bar.Date.Format(dayKeyLayout)] = struct{}{}
	}

	for _, series := range index {
		sort.Slice(series.Bars, func(i, j int) bool {
			return series.Bars[i].Date.Before(series.Bars[j].Date)
		})
	}
	return index
}
