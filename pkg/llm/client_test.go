package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfactor/pkg/model"
)

func sampleTask() model.ScoringTask {
	return model.ScoringTask{
		ID:        "news-1",
		StockCode: "600519",
		StockName: "贵州茅台",
		Title:     "茅台发布年报",
		Content:   "净利润同比增长",
		PubTime:   "2024/01/02 09:30",
	}
}

// TestBuildPrompt 测试用户提示词包含任务关键字段
func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleTask())
	assert.Contains(t, prompt, "600519")
	assert.Contains(t, prompt, "贵州茅台")
	assert.Contains(t, prompt, "茅台发布年报")
	assert.Contains(t, prompt, "净利润同比增长")
}

// TestScoreSuccess 测试正常评分调用
func TestScoreSuccess(t *testing.T) {
	scoreJSON := `{"Fundamental_Impact": 0.8, "Impact_Cycle_Length": 0.5, "Timeliness_Weight": 0.3, "Information_Certainty": 0.9, "Information_Relevance": 1.0}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": scoreJSON}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})

	raw, err := client.Score(context.Background(), sampleTask())
	require.NoError(t, err)
	assert.Equal(t, scoreJSON, raw)
}

// TestScoreRateLimited 测试 429 映射为限流哨兵错误
func TestScoreRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limit exceeded"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second})
	_, err := client.Score(context.Background(), sampleTask())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
}

// TestScoreServerError 测试 5xx 的错误文案可被瞬时分类器识别
func TestScoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second})
	_, err := client.Score(context.Background(), sampleTask())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "服务端错误")
}

// TestScoreRejected 测试 4xx 非限流错误直接拒绝
func TestScoreRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second})
	_, err := client.Score(context.Background(), sampleTask())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "请求被拒绝")
	assert.NotErrorIs(t, err, ErrRateLimited)
}

// TestScoreEmptyReply 测试空 choices 与空文本
func TestScoreEmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second})
	_, err := client.Score(context.Background(), sampleTask())
	assert.ErrorIs(t, err, ErrEmptyReply)
}

// TestCoerceContent 测试不同服务端 content 形态的归一化
func TestCoerceContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"字符串形态", `"  {\"a\": 1}  "`, `{"a": 1}`},
		{"分片数组形态", `[{"type": "text", "text": "hello"}, {"type": "text", "text": "world"}]`, "hello world"},
		{"空分片被忽略", `[{"type": "text", "text": ""}, {"type": "text", "text": "only"}]`, "only"},
		{"空输入", ``, ""},
		{"无法识别时原样返回", `12345`, "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceContent(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestSystemPromptMentionsFactors 系统提示词必须点名全部五个因子
func TestSystemPromptMentionsFactors(t *testing.T) {
	for _, name := range model.FactorNames {
		assert.True(t, strings.Contains(systemPrompt, name), "系统提示词缺少因子 %s", name)
	}
}
