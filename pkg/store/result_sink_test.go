package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfactor/pkg/model"
)

func sampleRecord(id, code string) model.ScoredRecord {
	return model.ScoredRecord{
		ID:        id,
		StockCode: code,
		PubTime:   "2024/01/02 09:30",
		Score: model.FactorScore{
			FundamentalImpact:    0.8,
			ImpactCycleLength:    0.5,
			TimelinessWeight:     0.3,
			InformationCertainty: 0.9,
			InformationRelevance: 1.0,
		},
	}
}

// TestAppendWritesBOMAndHeader 新文件带 BOM 与表头，追加不重复写
func TestAppendWritesBOMAndHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scored.csv")
	sink := NewResultSink(path)

	require.NoError(t, sink.Append([]model.ScoredRecord{sampleRecord("n1", "600519")}))
	require.NoError(t, sink.Append([]model.ScoredRecord{sampleRecord("n2", "000001")}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(raw), "\xef\xbb\xbf"), "文件开头应有 UTF-8 BOM")
	assert.Equal(t, 1, strings.Count(string(raw), "\xef\xbb\xbf"), "BOM 只应出现一次")

	content := string(raw)
	assert.Equal(t, 1, strings.Count(content, "id,stock_code,pub_time"), "表头只应写一次")
	assert.Contains(t, content, "Fundamental_Impact")
	assert.Contains(t, content, "n1,600519")
	assert.Contains(t, content, "n2,000001")
}

// TestAppendEmptyBatch 空批次不创建文件
func TestAppendEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scored.csv")
	sink := NewResultSink(path)

	require.NoError(t, sink.Append(nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "空批次不应创建结果文件")
}

// TestLoadProcessedCodes 从结果文件推导已处理股票集合
func TestLoadProcessedCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scored.csv")
	sink := NewResultSink(path)

	// 文件不存在时为空集
	codes, err := sink.LoadProcessedCodes()
	require.NoError(t, err)
	assert.Empty(t, codes)

	require.NoError(t, sink.Append([]model.ScoredRecord{
		sampleRecord("n1", "600519"),
		sampleRecord("n2", "600519"),
		sampleRecord("n3", "000001"),
	}))

	codes, err = sink.LoadProcessedCodes()
	require.NoError(t, err)
	assert.Len(t, codes, 2)
	assert.Contains(t, codes, "600519")
	assert.Contains(t, codes, "000001")
}

// TestLoadRecordsDedup 同一 id 以最后写入为准
func TestLoadRecordsDedup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scored.csv")
	sink := NewResultSink(path)

	first := sampleRecord("n1", "600519")
	second := sampleRecord("n1", "600519")
	second.Score.FundamentalImpact = 0.1

	require.NoError(t, sink.Append([]model.ScoredRecord{first, sampleRecord("n2", "000001")}))
	require.NoError(t, sink.Append([]model.ScoredRecord{second}))

	records, err := sink.LoadRecords()
	require.NoError(t, err)
	require.Len(t, records, 2)

	var n1 model.ScoredRecord
	for _, rec := range records {
		if rec.ID == "n1" {
			n1 = rec
		}
	}
	assert.Equal(t, 0.1, n1.Score.FundamentalImpact, "重复 id 应保留最后写入的评分")
}

// TestLoadRecordsLegacyHeader 兼容历史表头 Fundamental_Positive
func TestLoadRecordsLegacyHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	content := "id,stock_code,pub_time,Fundamental_Positive,Impact_Cycle_Length,Timeliness_Weight,Information_Certainty,Information_Relevance\n" +
		"n1,600519,2024/01/02 09:30,0.6,0.5,0.3,0.9,0.7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	records, err := NewResultSink(path).LoadRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.6, records[0].Score.FundamentalImpact)
}

// TestLoadRecordsSkipsBadRows 数值损坏的行跳过而不中断
func TestLoadRecordsSkipsBadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scored.csv")
	sink := NewResultSink(path)
	require.NoError(t, sink.Append([]model.ScoredRecord{sampleRecord("n1", "600519")}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("n2,000001,2024/01/02 09:30,not_a_number,0.5,0.3,0.9,0.7\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := sink.LoadRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "n1", records[0].ID)
}
