// Package llm 封装评分协作方（OpenAI 兼容接口）的调用。
// 核心流水线只接触 Scorer 接口与纯文本回复，重试与结果解析在上层完成。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"newsfactor/pkg/logger"
	"newsfactor/pkg/model"
)

var (
	// ErrRateLimited API 限流，属于可重试的瞬时错误
	ErrRateLimited = errors.New("API 请求被限流")
	// ErrEmptyReply 协作方返回了空回复
	ErrEmptyReply = errors.New("协作方返回空回复")
)

// Scorer 评分协作方接口：输入一条任务，返回原始回复文本
type Scorer interface {
	Score(ctx context.Context, task model.ScoringTask) (string, error)
}

// Config 客户端配置
type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Client OpenAI 兼容的 chat completions 客户端
type Client struct {
	config     Config
	httpClient *http.Client
	log        *logrus.Entry
}

// NewClient 创建评分客户端
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: config.Timeout,
		},
		log: logger.WithComponent("LLMClient"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Score 调用协作方对一条任务评分，返回原始回复文本。
// 单次调用，不在客户端内重试；限流与超时以错误形式抛给上层分类。
func (c *Client) Score(ctx context.Context, task model.ScoringTask) (string, error) {
	reqBody := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(task)},
		},
		Temperature: c.config.Temperature,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("构造请求失败: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	c.log.Debugf("请求耗时 %v, 状态码 %d, ID=%s", time.Since(start), resp.StatusCode, task.ID)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(string(body)))
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("服务端错误 (状态码 %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("请求被拒绝 (状态码 %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("响应不是合法 JSON: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("协作方返回错误: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyReply
	}

	text := CoerceContent(parsed.Choices[0].Message.Content)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// CoerceContent 把协作方回复的 content 字段统一归一化为纯文本。
// 不同服务端实现会返回字符串或内容分片数组两种形态。
func CoerceContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		return strings.TrimSpace(strings.Join(texts, " "))
	}

	return strings.TrimSpace(string(raw))
}
