// Package analysis 对比两次因子评分运行的输出，度量评分漂移。
// 用于升级提示词或更换模型后评估打分的稳定性。
package analysis

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
	"newsfactor/pkg/store"
)

// Pair 同一条新闻在两次运行中的评分与因子距离
type Pair struct {
	ID        string
	StockCode string
	Base      model.FactorScore
	Other     model.FactorScore
	Distance  float64 // 五因子曼哈顿距离
}

// Stats 距离分布的描述统计
type Stats struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Comparison 两次运行的完整对比结果
type Comparison struct {
	BaseOnly  int // 仅基准运行包含的记录数
	OtherOnly int // 仅对比运行包含的记录数
	Pairs     []Pair
	Stats     Stats
}

// Distance 两组因子得分的曼哈顿距离
func Distance(a, b model.FactorScore) float64 {
	sum := 0.0
	av, bv := a.Values(), b.Values()
	for i := range av {
		sum += math.Abs(av[i] - bv[i])
	}
	return sum
}

// Compare 读取两份评分结果并按 id 配对计算因子距离。
// 仅出现在单侧的记录不参与统计，只记入计数；
// 配对结果按距离从大到小排列，漂移最大的记录排在最前。
func Compare(basePath, otherPath string) (*Comparison, error) {
	base, err := store.NewResultSink(basePath).LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("加载基准评分失败: %w", err)
	}
	other, err := store.NewResultSink(otherPath).LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("加载对比评分失败: %w", err)
	}

	otherByID := make(map[string]model.ScoredRecord, len(other))
	for _, rec := range other {
		otherByID[rec.ID] = rec
	}

	cmp := &Comparison{}
	matched := make(map[string]struct{})
	for _, rec := range base {
		o, ok := otherByID[rec.ID]
		if !ok {
			cmp.BaseOnly++
			continue
		}
		matched[rec.ID] = struct{}{}
		cmp.Pairs = append(cmp.Pairs, Pair{
			ID:        rec.ID,
			StockCode: rec.StockCode,
			Base:      rec.Score,
			Other:     o.Score,
			Distance:  Distance(rec.Score, o.Score),
		})
	}
	for id := range otherByID {
		if _, ok := matched[id]; !ok {
			cmp.OtherOnly++
		}
	}

	sort.Slice(cmp.Pairs, func(i, j int) bool {
		return cmp.Pairs[i].Distance > cmp.Pairs[j].Distance
	})
	cmp.Stats = describe(cmp.Pairs)

	logger.WithComponent("ScoreCompare").Infof(
		"评分对比完成：配对 %d 条，仅基准 %d 条，仅对比 %d 条",
		len(cmp.Pairs), cmp.BaseOnly, cmp.OtherOnly)
	return cmp, nil
}

func describe(pairs []Pair) Stats {
	stats := Stats{Count: len(pairs)}
	if len(pairs) == 0 {
		return stats
	}

	values := make([]float64, len(pairs))
	sum := 0.0
	for i, p := range pairs {
		values[i] = p.Distance
		sum += p.Distance
	}
	sort.Float64s(values)

	stats.Mean = sum / float64(len(values))
	stats.Min = values[0]
	stats.Max = values[len(values)-1]
	stats.Q25 = quantile(values, 0.25)
	stats.Median = quantile(values, 0.5)
	stats.Q75 = quantile(values, 0.75)

	varSum := 0.0
	for _, v := range values {
		d := v - stats.Mean
		varSum += d * d
	}
	stats.Std = math.Sqrt(varSum / float64(len(values)))
	return stats
}

// quantile 对升序序列做线性插值分位数
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// String 渲染可读的统计摘要
func (s Stats) String() string {
	if s.Count == 0 {
		return "无可配对的评分记录"
	}
	return fmt.Sprintf(
		"配对数: %d\n均值: %.4f  标准差: %.4f\n最小: %.4f  P25: %.4f  中位: %.4f  P75: %.4f  最大: %.4f",
		s.Count, s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max)
}

var detailHeader = []string{
	"id", "stock_code", "distance",
	"base_" + model.FactorNames[0], "other_" + model.FactorNames[0],
	"base_" + model.FactorNames[1], "other_" + model.FactorNames[1],
	"base_" + model.FactorNames[2], "other_" + model.FactorNames[2],
	"base_" + model.FactorNames[3], "other_" + model.FactorNames[3],
	"base_" + model.FactorNames[4], "other_" + model.FactorNames[4],
}

// WriteDetail 将配对明细写为带 BOM 的 UTF-8 CSV
func (c *Comparison) WriteDetail(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建对比明细文件失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(transform.NewWriter(f, unicode.UTF8BOM.NewEncoder()))
	if err := w.Write(detailHeader); err != nil {
		return fmt.Errorf("写入对比明细表头失败: %w", err)
	}

	for _, p := range c.Pairs {
		row := []string{p.ID, p.StockCode, strconv.FormatFloat(p.Distance, 'g', -1, 64)}
		bv, ov := p.Base.Values(), p.Other.Values()
		for i := range bv {
			row = append(row,
				strconv.FormatFloat(bv[i], 'g', -1, 64),
				strconv.FormatFloat(ov[i], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("写入对比明细失败: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("写入对比明细失败: %w", err)
	}
	return nil
}
