package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"tender-agent-backend/apperr"
	"tender-agent-backend/config"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultMaxRetries = 3
	retryBaseDelay    = time.Second

	// 简化的成本估算：每千字符费用（元）
	costPerKiloChars = 0.002
)

// Options 单次调用参数
type Options struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	JSONMode     bool
	MaxRetries   int

	// 调用用途标签，仅用于日志与计量
	Purpose string
}

// Client 模型调用封装，维护 (calls, cost) 计数器
// 每次调用相互独立，可并发使用
type Client struct {
	llm       llms.Model
	modelName string

	mu    sync.Mutex
	calls int64
	cost  float64
}

// New 创建指定模型的客户端，走统一的兼容接口
func New(modelName string) (*Client, error) {
	llm, err := openai.New(
		openai.WithModel(modelName),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(config.Cfg.Model.BaseURL),
		openai.WithHTTPClient(&http.Client{
			Timeout: 300 * time.Second,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %v", err)
	}
	return &Client{llm: llm, modelName: modelName}, nil
}

// NewWithModel 注入现成的模型实现，测试用
func NewWithModel(llm llms.Model, modelName string) *Client {
	return &Client{llm: llm, modelName: modelName}
}

func (c *Client) ModelName() string {
	return c.modelName
}

// Stats 返回累计调用次数和成本估算
func (c *Client) Stats() (int64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.cost
}

func (c *Client) record(promptLen, respLen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.cost += float64(promptLen+respLen) / 1000 * costPerKiloChars
}

// Call 单次模型调用。限流错误按指数退避重试，其余传输错误重试一次。
func (c *Client) Call(ctx context.Context, prompt string, opts Options) (string, error) {
	attempts := uint(opts.MaxRetries)
	if attempts == 0 {
		attempts = defaultMaxRetries
	}

	var result string
	err := retry.Do(
		func() error {
			var err error
			result, err = c.callOnce(ctx, prompt, opts, nil)
			return err
		},
		retry.Attempts(attempts),
		retry.Delay(retryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return apperr.IsRateLimit(err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil && !apperr.IsRateLimit(err) {
		// 非限流错误重试一次
		result, err = c.callOnce(ctx, prompt, opts, nil)
	}
	if err != nil {
		return "", err
	}
	return result, nil
}

// CallStream 流式调用，chunk 依次回调；返回完整输出
func (c *Client) CallStream(ctx context.Context, prompt string, opts Options, fn func(chunk string)) (string, error) {
	return c.callOnce(ctx, prompt, opts, fn)
}

func (c *Client) callOnce(ctx context.Context, prompt string, opts Options, streamFn func(chunk string)) (string, error) {
	var messages []llms.MessageContent
	if opts.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, opts.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	callOpts := []llms.CallOption{
		llms.WithTemperature(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}
	if streamFn != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) > 0 {
				streamFn(string(chunk))
			}
			return nil
		}))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.LLM(apperr.LLMServer, "empty response from model", nil)
	}

	content := resp.Choices[0].Content
	c.record(len(prompt)+len(opts.SystemPrompt), len(content))
	return content, nil
}

// classifyError 将传输层错误归入细分原因
func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return apperr.LLM(apperr.LLMRateLimit, "model rate limited", err)
	case strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "timeout"):
		return apperr.LLM(apperr.LLMTimeout, "model call timed out", err)
	case strings.Contains(msg, "connection") || strings.Contains(msg, "no such host") || strings.Contains(msg, "eof"):
		return apperr.LLM(apperr.LLMNetwork, "network error calling model", err)
	default:
		return apperr.LLM(apperr.LLMServer, "model call failed", err)
	}
}
