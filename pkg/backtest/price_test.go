package backtest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// TestLoadPriceBars UTF-8 行情文件加载
func TestLoadPriceBars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price.csv")
	content := "ts_code,trade_date,open,high,low,close\n" +
		"600519.SH,20240102,10.0,10.8,9.9,10.5\n" +
		"600519.SH,20240103,10.6,11.2,10.4,11.0\n" +
		"000001.SZ,20240102,8.0,8.3,7.9,8.1\n" +
		"600519.SH,20240104,,,,\n" // 停牌日数值缺失
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	bars, err := LoadPriceBars(path, "utf-8")
	require.NoError(t, err)
	require.Len(t, bars, 3, "数值缺失的行应跳过")

	assert.Equal(t, "600519", bars[0].Code, "应剥离交易所后缀")
	assert.Equal(t, "2024-01-02", bars[0].Date.Format("2006-01-02"))
	assert.Equal(t, 10.0, bars[0].Open)
	assert.Equal(t, 10.5, bars[0].Close)
}

// TestLoadPriceBarsBOM 带 BOM 的文件正常剥离
func TestLoadPriceBarsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price.csv")
	content := "\xef\xbb\xbfts_code,trade_date,open,close\n600519.SH,20240102,10.0,10.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	bars, err := LoadPriceBars(path, "")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "600519", bars[0].Code)
}

// TestLoadPriceBarsGBK GBK 编码的行情导出
func TestLoadPriceBarsGBK(t *testing.T) {
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, simplifiedchinese.GBK.NewEncoder())
	_, err := w.Write([]byte("stock_code,trade_date,open,close,名称\n600519,20240102,10.0,10.5,贵州茅台\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "price_gbk.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	bars, err := LoadPriceBars(path, "gbk")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "600519", bars[0].Code)
}

// TestLoadPriceBarsMissingColumn 缺少必需列时报错
func TestLoadPriceBarsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("ts_code,open,close\n600519.SH,10.0,10.5\n"), 0644))

	_, err := LoadPriceBars(path, "")
	assert.Error(t, err)
}

// TestBuildIndex 行情索引按股票分组并排序
func TestBuildIndex(t *testing.T) {
	bars := []PriceBar{
		{Code: "600519", Date: day("2024-01-04"), Open: 11.1, Close: 11.5},
		{Code: "000001", Date: day("2024-01-02"), Open: 8.0, Close: 8.1},
		{Code: "600519", Date: day("2024-01-02"), Open: 10.0, Close: 10.5},
	}
	index := BuildIndex(bars)
	require.Len(t, index, 2)

	series := index["600519"]
	require.Equal(t, 2, series.Len())
	first, ok := series.At(0)
	require.True(t, ok)
	assert.Equal(t, "2024-01-02", first.Date.Format("2006-01-02"), "乱序输入应按日期排序")

	assert.True(t, series.IsTradingDay(day("2024-01-02")))
	assert.False(t, series.IsTradingDay(day("2024-01-03")))

	_, ok = series.At(5)
	assert.False(t, ok)
}
