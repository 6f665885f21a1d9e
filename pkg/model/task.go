// Package model 定义评分流水线与回测流水线共享的数据契约。
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ScoringTask 一条待评分的文本记录，由爬虫抓取的 JSON 文件解析而来。
// 创建后不可变，被评分器消费一次。
type ScoringTask struct {
	ID        string `json:"_id"`
	StockCode string `json:"stock_code"`
	StockName string `json:"stock_name,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Source    string `json:"source,omitempty"`
	PubTime   string `json:"pub_time"`
}

// FullText 返回标题与正文拼接后的文本，用于空内容判断与提示词构造
func (t ScoringTask) FullText() string {
	return strings.TrimSpace(t.Title + " " + t.Content)
}

// FactorNames 五个因子字段的规范顺序，与结果 CSV 表头保持一致
var FactorNames = []string{
	"Fundamental_Impact",
	"Impact_Cycle_Length",
	"Timeliness_Weight",
	"Information_Certainty",
	"Information_Relevance",
}

// FactorScore 评分协作方针对一条任务输出的五维因子，取值范围 [0,1]。
type FactorScore struct {
	FundamentalImpact    float64 `json:"Fundamental_Impact"`
	ImpactCycleLength    float64 `json:"Impact_Cycle_Length"`
	TimelinessWeight     float64 `json:"Timeliness_Weight"`
	InformationCertainty float64 `json:"Information_Certainty"`
	InformationRelevance float64 `json:"Information_Relevance"`
}

// Values 按 FactorNames 顺序返回因子值
func (s FactorScore) Values() []float64 {
	return []float64{
		s.FundamentalImpact,
		s.ImpactCycleLength,
		s.TimelinessWeight,
		s.InformationCertainty,
		s.InformationRelevance,
	}
}

// Validate 校验所有因子均落在 [0,1]，越界视为失败而不是截断
func (s FactorScore) Validate() error {
	for i, v := range s.Values() {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("因子 %s 取值 %v 超出 [0,1] 范围", FactorNames[i], v)
		}
	}
	return nil
}

// ParseFactorScore 将协作方的原始回复文本解析为 FactorScore。
// 要求回复是一个包含全部五个因子键的 JSON 对象；历史上第一个因子
// 存在 Fundamental_Positive 与 Fundamental_Impact 两种写法，二者均接受。
func ParseFactorScore(raw string) (FactorScore, error) {
	var score FactorScore

	var fields map[string]json.Number
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return score, fmt.Errorf("回复不是合法的 JSON 对象: %w", err)
	}

	get := func(names ...string) (float64, error) {
		for _, name := range names {
			if n, ok := fields[name]; ok {
				v, err := n.Float64()
				if err != nil {
					return 0, fmt.Errorf("因子 %s 不是数值: %w", name, err)
				}
				return v, nil
			}
		}
		return 0, fmt.Errorf("回复缺少因子 %s", names[0])
	}

	var err error
	if score.FundamentalImpact, err = get("Fundamental_Impact", "Fundamental_Positive"); err != nil {
		return score, err
	}
	if score.ImpactCycleLength, err = get("Impact_Cycle_Length"); err != nil {
		return score, err
	}
	if score.TimelinessWeight, err = get("Timeliness_Weight"); err != nil {
		return score, err
	}
	if score.InformationCertainty, err = get("Information_Certainty"); err != nil {
		return score, err
	}
	if score.InformationRelevance, err = get("Information_Relevance"); err != nil {
		return score, err
	}

	if err := score.Validate(); err != nil {
		return score, err
	}
	return score, nil
}

// ScoredRecord 追加到结果存储的持久化单元：任务身份字段加五维因子。
// 同一 id 以最后写入的记录为准。
type ScoredRecord struct {
	ID        string      `json:"id"`
	StockCode string      `json:"stock_code"`
	PubTime   string      `json:"pub_time"`
	Score     FactorScore `json:"score"`
}

// FailedTask 单条任务的失败记录，随运行累积并在结束时整体落盘
type FailedTask struct {
	ID         string `json:"id"`
	StockCode  string `json:"stock_code,omitempty"`
	ErrorKind  string `json:"error_kind"`
	Error      string `json:"error"`
	RawContent string `json:"raw_content,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
}
