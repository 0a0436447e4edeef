package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutrition-engine/internal/core/ai/provider"
	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const maxLoggedBody = 300

// chatRequest OpenRouter chat completions 請求
type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

// chatResponse OpenRouter 響應結構
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// apiError OpenRouter 錯誤格式
type apiError struct {
	Error struct {
		Message string      `json:"message"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// Client OpenRouter API 客戶端，實作 provider.Provider
type Client struct {
	client      *resty.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg config.OpenRouterConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://nutrition-engine.local").
		SetHeader("X-Title", "Nutrition Engine")

	return &Client{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.Temperature = req.Temperature
	}

	start := time.Now()
	var result chatResponse
	var apiErr apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		err = common.ErrAIServiceError.Wrap(fmt.Errorf("failed to send request to OpenRouter: %w", err))
		common.LogAICall(c.model, time.Since(start), err)
		return nil, err
	}

	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = truncate(resp.String(), maxLoggedBody)
		}
		err = common.ErrAIServiceError.Wrap(fmt.Errorf("OpenRouter returned status %d: %s", resp.StatusCode(), msg))
		common.LogAICall(c.model, time.Since(start), err)
		return nil, err
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		err = common.ErrAIServiceError.Wrap(fmt.Errorf("empty choices in OpenRouter response"))
		common.LogAICall(c.model, time.Since(start), err)
		return nil, err
	}

	common.LogAICall(c.model, time.Since(start), nil)
	common.LogDebug("OpenRouter usage",
		zap.String("id", result.ID),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)

	model := result.Model
	if model == "" {
		model = c.model
	}
	return &provider.Response{
		Content: result.Choices[0].Message.Content,
		Model:   model,
		Usage:   result.Usage,
	}, nil
}

// GetModel 模型名稱
func (c *Client) GetModel() string {
	return c.model
}

// GetTimeout 請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
