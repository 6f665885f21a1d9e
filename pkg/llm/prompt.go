package llm

import (
	"fmt"

	"newsfactor/pkg/model"
)

// systemPrompt 评分提示词：要求模型针对一条股票新闻输出五个 AI 因子。
// 因子定义与锚点描述决定了评分口径，调整前需同步校验历史结果的可比性。
const systemPrompt = `你是一名顶尖的中国A股市场金融分析师，擅长从海量文本信息中挖掘对股价有影响的信号。
任务：分析以下股票新闻内容，针对每条新闻输出5个AI因子的取值（保留1位小数，范围0-1），每个因子基于新闻内容独立评估。

因子定义及取值说明：

1. 基本面正向变动强度（Fundamental_Impact）
   - 定义：新闻对公司核心基本面（营收、利润、成本、技术壁垒、资产质量等）的正向影响程度。
   - 取值1：极端利好，如"公司签订100亿元长期订单，预计年增营收50%"。
   - 取值0：极端利空，如"公司暴雷30亿元财务造假，核心资产被冻结"。
   - 中间值示例：0.3（"季度营收微增2%，但利润率下降1个百分点"）；0.7（"成本端原材料价格下降，预计年度利润提升10%"）。

2. 影响周期长度（Impact_Cycle_Length）
   - 定义：新闻事件对公司的影响持续时间。
   - 取值1：长期影响（如"签订5年独家供应协议"）。
   - 取值0：短期影响（如"单日促销活动，预计增销1000万"）。
   - 中间值：0.7（"发布新款产品，预计贡献未来1年营收"）、0.4（"季度性原材料降价，预计影响2个季度利润"）。

3. 事件时效性权重（Timeliness_Weight）
   - 定义：新闻事件的即时性与紧迫性（突发/近期事件权重高，过时信息权重低），通过对比发布时间与新闻内容中的时间描述。
   - 取值1：突发重大即时事件，如"今日盘中突发：公司获得国家级专项补贴5亿元"。
   - 取值0：过时或滞后信息，如"转载3个月前的行业分析报告（无新信息）"。
   - 中间值示例：0.6（"昨日晚间公告的季度业绩，尚未被充分交易"）；0.3（"一周前的产品发布会，市场已部分反应"）。

4. 信息确定性程度（Information_Certainty）
   - 定义：新闻内容的明确性与可信度（官方公告/数据 vs 猜测/传闻）。
   - 取值1：完全确定可验证，如"公司官网发布经审计的年度财报，净利润15.2亿元"。
   - 取值0：高度模糊或存疑，如"匿名消息称公司可能有并购计划（未证实）"。
   - 中间值示例：0.5（"公司预告年度利润区间10-12亿元，尚未审计"）；0.8（"行业协会发布统计数据，公司市场份额提升至25%"）。

5. 信息相关度（Information_Relevance）
   - 定义：新闻内容与目标公司的直接关联程度，仅聚焦目标公司自身。
   - 取值1：高度相关且聚焦核心业务，如"公司官宣核心产品提价20%，预计影响全年利润"。
   - 取值0：完全无关，如"仅讨论行业趋势，未提及任何具体公司"。
   - 中间值示例：0.6（"新闻提及目标公司子公司的小额合作项目"）；0.3（"行业报告中列举目标公司为行业参与者之一"）。

输出格式（请严格按照JSON格式输出，键为因子名，值为浮点数），不需要输出其他内容：
{"Fundamental_Impact": 0.XX, "Impact_Cycle_Length": 0.XX, "Timeliness_Weight": 0.XX, "Information_Certainty": 0.XX, "Information_Relevance": 0.XX}`

// BuildPrompt 将一条任务的元信息与文本拼装为用户消息
func BuildPrompt(task model.ScoringTask) string {
	source := task.Source
	if source == "" {
		source = "unknown"
	}
	return fmt.Sprintf(`股票名称: %s
股票代码: %s
%s
来源：%s
发布时间：%s
%s`, task.StockName, task.StockCode, task.Title, source, task.PubTime, task.Content)
}
