// scoredist 对比两次评分运行，输出因子距离的分布统计与逐条明细。
package main

import (
	"flag"
	"fmt"
	"os"

	"newsfactor/pkg/analysis"
	"newsfactor/pkg/logger"
)

func main() {
	var (
		basePath  = flag.String("base", "", "基准评分结果 CSV")
		otherPath = flag.String("other", "", "对比评分结果 CSV")
		outPath   = flag.String("out", "", "配对明细输出 CSV，为空则不写")
		logLevel  = flag.String("log-level", "info", "日志级别")
	)
	flag.Parse()

	logger.Init(logger.Config{Level: *logLevel, Format: "text"})
	log := logger.WithComponent("ScoreDist")

	if *basePath == "" || *otherPath == "" {
		fmt.Fprintln(os.Stderr, "用法: scoredist -base <csv> -other <csv> [-out <csv>]")
		os.Exit(2)
	}

	cmp, err := analysis.Compare(*basePath, *otherPath)
	if err != nil {
		log.Errorf("评分对比失败: %v", err)
		os.Exit(1)
	}

	fmt.Println("========== 评分漂移统计 ==========")
	fmt.Println(cmp.Stats.String())
	if cmp.BaseOnly > 0 || cmp.OtherOnly > 0 {
		fmt.Printf("仅基准: %d 条  仅对比: %d 条\n", cmp.BaseOnly, cmp.OtherOnly)
	}

	if *outPath != "" {
		if err := cmp.WriteDetail(*outPath); err != nil {
			log.Errorf("写入对比明细失败: %v", err)
			os.Exit(1)
		}
		log.Infof("对比明细已写入 %s", *outPath)
	}
}
