// Package store 提供评分结果的持久化：追加式 CSV 结果存储、
// 整体落盘的失败日志，以及可选的 Redis 评分缓存。
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
)

// resultHeader 结果 CSV 表头：任务身份字段加五个因子列
var resultHeader = append([]string{"id", "stock_code", "pub_time"}, model.FactorNames...)

// ResultSink 追加式 CSV 结果存储。
// 文件不存在时先写入 UTF-8 BOM 与表头（便于 Excel 正确识别中文），
// 之后的追加只串行写数据行；每个输入文件评分完成后追加一次。
type ResultSink struct {
	path string
	mu   sync.Mutex
	log  *logrus.Entry
}

// NewResultSink 创建结果存储
func NewResultSink(path string) *ResultSink {
	return &ResultSink{
		path: path,
		log:  logger.WithComponent("ResultSink"),
	}
}

// Path 返回结果文件路径
func (s *ResultSink) Path() string {
	return s.path
}

// Append 将一批成功记录追加到结果文件
func (s *ResultSink) Append(records []model.ScoredRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("打开结果文件失败: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("读取结果文件状态失败: %w", err)
	}
	newFile := stat.Size() == 0

	var out io.Writer = f
	var tw *transform.Writer
	if newFile {
		// 新文件经 UTF8BOM 编码器写出，文件开头带 BOM
		tw = transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
		out = tw
	}

	w := csv.NewWriter(out)
	if newFile {
		if err := w.Write(resultHeader); err != nil {
			return fmt.Errorf("写入表头失败: %w", err)
		}
	}

	for _, r := range records {
		row := []string{r.ID, r.StockCode, r.PubTime}
		for _, v := range r.Score.Values() {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("写入记录失败: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("刷新结果文件失败: %w", err)
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return fmt.Errorf("关闭编码器失败: %w", err)
		}
	}

	s.log.Infof("%d 条结果已追加至 %s", len(records), s.path)
	return nil
}

// LoadProcessedCodes 从结果文件推导已处理的股票代码集合，
// 用于文件粒度的断点续传。文件不存在视为空集。
func (s *ResultSink) LoadProcessedCodes() (map[string]struct{}, error) {
	codes := make(map[string]struct{})

	rows, header, err := s.readAll()
	if err != nil {
		if os.IsNotExist(err) {
			return codes, nil
		}
		return nil, err
	}

	col := indexOf(header, "stock_code")
	if col < 0 {
		return nil, fmt.Errorf("结果文件缺少 stock_code 列")
	}

	for _, row := range rows {
		if col < len(row) && row[col] != "" {
			codes[row[col]] = struct{}{}
		}
	}
	return codes, nil
}

// LoadRecords 读回全部评分记录，同一 id 以最后写入为准
func (s *ResultSink) LoadRecords() ([]model.ScoredRecord, error) {
	rows, header, err := s.readAll()
	if err != nil {
		return nil, err
	}

	idx := map[string]int{}
	for _, name := range append([]string{"id", "stock_code", "pub_time"}, model.FactorNames...) {
		idx[name] = indexOf(header, name)
	}
	// 兼容历史表头 Fundamental_Positive
	if idx["Fundamental_Impact"] < 0 {
		idx["Fundamental_Impact"] = indexOf(header, "Fundamental_Positive")
	}
	for name, i := range idx {
		if i < 0 {
			return nil, fmt.Errorf("结果文件缺少 %s 列", name)
		}
	}

	cell := func(row []string, name string) string {
		i := idx[name]
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	byID := make(map[string]int)
	records := make([]model.ScoredRecord, 0, len(rows))
	for _, row := range rows {
		rec := model.ScoredRecord{
			ID:        cell(row, "id"),
			StockCode: cell(row, "stock_code"),
			PubTime:   cell(row, "pub_time"),
		}
		values := make([]float64, len(model.FactorNames))
		ok := true
		for i, name := range model.FactorNames {
			v, err := strconv.ParseFloat(cell(row, name), 64)
			if err != nil {
				ok = false
				break
			}
			values[i] = v
		}
		if !ok || rec.ID == "" {
			continue
		}
		rec.Score = model.FactorScore{
			FundamentalImpact:    values[0],
			ImpactCycleLength:    values[1],
			TimelinessWeight:     values[2],
			InformationCertainty: values[3],
			InformationRelevance: values[4],
		}

		// 续传运行可能产生重复行，后写入覆盖先写入
		if pos, dup := byID[rec.ID]; dup {
			records[pos] = rec
			continue
		}
		byID[rec.ID] = len(records)
		records = append(records, rec)
	}
	return records, nil
}

// readAll 读出表头与全部数据行，自动剥离 BOM
func (s *ResultSink) readAll() (rows [][]string, header []string, err error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, unicode.UTF8BOM.NewDecoder()))
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("解析结果文件失败: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("结果文件为空")
	}
	return all[1:], all[0], nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
