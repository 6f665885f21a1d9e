// Package backtest 实现基于因子信号与日线行情的入场/出场回测：
// 按股票构建交易日历索引，将信号发布时间映射到正确的定价点，
// 并按持仓周期的交易日偏移确定出场。
package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"newsfactor/pkg/logger"
)

// PriceBar 单只股票单个交易日的行情
type PriceBar struct {
	Code  string
	Date  time.Time // 交易日（当地时区零点）
	Open  float64
	Close float64
}

// tradeDateLayout 行情文件中的交易日格式
const tradeDateLayout = "20060102"

// LoadPriceBars 从 CSV 加载日线行情。
// ts_code 为带交易所后缀的复合代码（如 600519.SH），取点号前的裸代码；
// encoding 支持 "gbk"（部分行情导出为 GBK 编码），默认按 UTF-8 处理并剥离 BOM。
// 数值缺失的行（停牌日等）直接跳过。
func LoadPriceBars(path string, encoding string) ([]PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开行情文件失败: %w", err)
	}
	defer f.Close()

	var reader io.Reader
	switch strings.ToLower(encoding) {
	case "gbk":
		reader = transform.NewReader(f, simplifiedchinese.GBK.NewDecoder())
	default:
		reader = transform.NewReader(f, unicode.UTF8BOM.NewDecoder())
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析行情文件失败: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("行情文件 %s 没有数据行", path)
	}

	header := rows[0]
	codeCol := findColumn(header, "ts_code", "stock_code")
	dateCol := findColumn(header, "trade_date")
	openCol := findColumn(header, "open")
	closeCol := findColumn(header, "close")
	if codeCol < 0 || dateCol < 0 || openCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("行情文件缺少必需列 (ts_code/trade_date/open/close)")
	}

	log := logger.WithComponent("PriceLoader")
	bars := make([]PriceBar, 0, len(rows)-1)
	dropped := 0
	for _, row := range rows[1:] {
		maxCol := codeCol
		for _, c := range []int{dateCol, openCol, closeCol} {
			if c > maxCol {
				maxCol = c
			}
		}
		if maxCol >= len(row) {
			dropped++
			continue
		}

		date, err := time.ParseInLocation(tradeDateLayout, row[dateCol], time.Local)
		if err != nil {
			dropped++
			continue
		}
		open, err1 := strconv.ParseFloat(row[openCol], 64)
		closeP, err2 := strconv.ParseFloat(row[closeCol], 64)
		if err1 != nil || err2 != nil {
			dropped++
			continue
		}

		bars = append(bars, PriceBar{
			Code:  bareCode(row[codeCol]),
			Date:  date,
			Open:  open,
			Close: closeP,
		})
	}

	if dropped > 0 {
		log.Warnf("行情文件 %s 有 %d 行无法解析，已跳过", path, dropped)
	}
	log.Infof("已加载 %d 条行情记录", len(bars))
	return bars, nil
}

// bareCode 去掉复合代码中的交易所后缀
func bareCode(tsCode string) string {
	if i := strings.IndexByte(tsCode, '.'); i >= 0 {
		return tsCode[:i]
	}
	return tsCode
}

func findColumn(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}
