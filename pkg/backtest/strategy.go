package backtest

import (
	"fmt"

	"newsfactor/pkg/model"
)

// TradeType 交易方向
type TradeType string

const (
	TradeLong  TradeType = "long"
	TradeShort TradeType = "short"
)

// 持仓周期标签
const (
	HorizonShort  = "短期"
	HorizonMedium = "中期"
	HorizonLong   = "长期"
)

// HorizonOrder 报表中周期的展示顺序
var HorizonOrder = []string{HorizonShort, HorizonMedium, HorizonLong}

// HoldingConfig 持仓周期规则：固定K线数，或按影响周期因子分桶
type HoldingConfig struct {
	Mode       string  `mapstructure:"mode"`       // fixed | cycle
	FixedBars  int     `mapstructure:"fixed_bars"` // mode=fixed 时的持仓K线数
	ShortMax   float64 `mapstructure:"short_max"`  // Impact_Cycle_Length < ShortMax 视为短期
	MediumMax  float64 `mapstructure:"medium_max"` // Impact_Cycle_Length < MediumMax 视为中期
	ShortBars  int     `mapstructure:"short_bars"`
	MediumBars int     `mapstructure:"medium_bars"`
	LongBars   int     `mapstructure:"long_bars"`
}

// Strategy 显式的版本化策略配置：信号门槛、多空资格与持仓规则。
// 不同策略变体通过配置切换，而不是复制回测内核。
type Strategy struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`

	// 置信门槛：三项同时满足才触发交易
	MinCertainty  float64 `mapstructure:"min_certainty"`  // Information_Certainty 下限（不含）
	MinRelevance  float64 `mapstructure:"min_relevance"`  // Information_Relevance 下限（不含）
	MaxTimeliness float64 `mapstructure:"max_timeliness"` // Timeliness_Weight 上限（不含）

	// 方向门槛：基本面正向强度接近 1 看多，接近 0 看空
	LongMinImpact  float64 `mapstructure:"long_min_impact"`
	ShortMaxImpact float64 `mapstructure:"short_max_impact"`
	AllowShort     bool    `mapstructure:"allow_short"`

	Holding HoldingConfig `mapstructure:"holding"`
}

// DefaultStrategy 默认策略
func DefaultStrategy() Strategy {
	return Strategy{
		Name:           "factor-gate",
		Version:        "v2",
		MinCertainty:   0.5,
		MinRelevance:   0.5,
		MaxTimeliness:  0.7,
		LongMinImpact:  0.7,
		ShortMaxImpact: 0.3,
		AllowShort:     true,
		Holding: HoldingConfig{
			Mode:       "cycle",
			FixedBars:  5,
			ShortMax:   1.0 / 3.0,
			MediumMax:  2.0 / 3.0,
			ShortBars:  5,
			MediumBars: 20,
			LongBars:   60,
		},
	}
}

// Validate 校验策略配置
func (s Strategy) Validate() error {
	for name, v := range map[string]float64{
		"min_certainty":    s.MinCertainty,
		"min_relevance":    s.MinRelevance,
		"max_timeliness":   s.MaxTimeliness,
		"long_min_impact":  s.LongMinImpact,
		"short_max_impact": s.ShortMaxImpact,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("策略阈值 %s 必须落在 [0,1]", name)
		}
	}
	if s.AllowShort && s.ShortMaxImpact >= s.LongMinImpact {
		return fmt.Errorf("short_max_impact 必须小于 long_min_impact")
	}
	switch s.Holding.Mode {
	case "fixed":
		if s.Holding.FixedBars <= 0 {
			return fmt.Errorf("fixed 模式下 fixed_bars 必须为正")
		}
	case "cycle":
		if s.Holding.ShortBars <= 0 || s.Holding.MediumBars <= 0 || s.Holding.LongBars <= 0 {
			return fmt.Errorf("cycle 模式下各持仓K线数必须为正")
		}
		if !(s.Holding.ShortMax < s.Holding.MediumMax) {
			return fmt.Errorf("short_max 必须小于 medium_max")
		}
	default:
		return fmt.Errorf("未知的持仓模式: %s", s.Holding.Mode)
	}
	return nil
}

// Evaluate 判断一条信号是否触发交易及其方向
func (s Strategy) Evaluate(score model.FactorScore) (TradeType, bool) {
	confident := score.InformationCertainty > s.MinCertainty &&
		score.InformationRelevance > s.MinRelevance &&
		score.TimelinessWeight < s.MaxTimeliness
	if !confident {
		return "", false
	}

	if score.FundamentalImpact > s.LongMinImpact {
		return TradeLong, true
	}
	if s.AllowShort && score.FundamentalImpact < s.ShortMaxImpact {
		return TradeShort, true
	}
	return "", false
}

// HoldingPeriod 根据信号因子返回持仓K线数与周期标签
func (s Strategy) HoldingPeriod(score model.FactorScore) (bars int, horizon string) {
	if s.Holding.Mode == "fixed" {
		return s.Holding.FixedBars, horizonLabelForBars(s.Holding.FixedBars)
	}

	switch {
	case score.ImpactCycleLength < s.Holding.ShortMax:
		return s.Holding.ShortBars, HorizonShort
	case score.ImpactCycleLength < s.Holding.MediumMax:
		return s.Holding.MediumBars, HorizonMedium
	default:
		return s.Holding.LongBars, HorizonLong
	}
}

func horizonLabelForBars(bars int) string {
	switch {
	case bars <= 5:
		return HorizonShort
	case bars <= 20:
		return HorizonMedium
	default:
		return HorizonLong
	}
}
