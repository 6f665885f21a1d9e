// Package stockname 提供股票代码到名称的静态映射。
package stockname

// codeToName 目标股票池的代码-名称对照表
var codeToName = map[string]string{
	"000001": "平安银行",
	"000002": "万科A",
	"000063": "中兴通讯",
	"000100": "TCL科技",
	"000333": "美的集团",
	"000408": "藏格矿业",
	"000568": "泸州老窖",
	"000651": "格力电器",
	"600000": "浦发银行",
	"600015": "华夏银行",
	"600016": "民生银行",
	"600028": "中国石化",
	"600029": "南方航空",
	"600030": "中信证券",
	"600031": "三一重工",
	"600048": "保利发展",
	"600050": "中国联通",
	"600111": "北方稀土",
	"600115": "中国东航",
	"600150": "中国船舶",
	"600196": "复星医药",
	"600415": "小商品城",
	"600438": "通威股份",
	"600519": "贵州茅台",
	"600690": "海尔智家",
	"600809": "山西汾酒",
	"600887": "伊利股份",
	"600919": "江苏银行",
	"600926": "杭州银行",
	"600938": "中国海油",
	"600941": "中国移动",
	"601138": "工业富联",
	"601166": "兴业银行",
	"601211": "国泰君安",
	"601229": "上海银行",
	"601319": "中国人保",
	"601328": "交通银行",
	"601336": "新华保险",
	"601360": "三六零",
}

// Lookup 返回股票代码对应的名称，未收录时返回空字符串
func Lookup(code string) string {
	return codeToName[code]
}
