package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/zhouzirui/z-shop/backend/internal/logging"
)

// ErrEmptyReply marks a well-formed provider response that carries no
// choices[0].message.content.
var ErrEmptyReply = errors.New("provider response has no reply content")

const errorBodyLimit = 4096

// OpenAIConfig configures OpenAIChatModel.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	// Client is optional; a fresh resty client is used when nil.
	Client *resty.Client
	Logger *zap.Logger
}

// OpenAIChatModel is an eino chat model speaking the OpenAI chat
// completions wire format. It issues exactly one request per Generate call:
// no retries and no client-side timeout.
type OpenAIChatModel struct {
	client    *resty.Client
	apiKey    string
	endpoint  string
	model     string
	maxTokens int
}

// NewOpenAIChatModel builds the model. An empty API key is accepted; the
// provider then rejects the call and the caller sees a transport error.
func NewOpenAIChatModel(cfg OpenAIConfig) (*OpenAIChatModel, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openai model must be provided")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("openai base url must be provided")
	}
	client := cfg.Client
	if client == nil {
		client = newRestyClient(logging.OrNop(cfg.Logger).Named("openai"))
	}
	return &OpenAIChatModel{
		client:    client,
		apiKey:    cfg.APIKey,
		endpoint:  base + "/chat/completions",
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func newRestyClient(logger *zap.Logger) *resty.Client {
	client := resty.New()
	client.AddResponseMiddleware(func(_ *resty.Client, r *resty.Response) error {
		if r.Request == nil || r.Request.RawRequest == nil {
			return nil
		}
		logger.Debug("provider request",
			zap.String("method", r.Request.RawRequest.Method),
			zap.String("path", r.Request.RawRequest.URL.Path),
			zap.Int("status", r.StatusCode()))
		return nil
	})
	return client
}

// Generate sends input as a single chat completion request.
func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if len(input) == 0 {
		return nil, errors.New("at least one message must be provided")
	}

	options := model.GetCommonOptions(&model.Options{
		Model:     &m.model,
		MaxTokens: &m.maxTokens,
	}, opts...)

	request := openai.ChatCompletionRequest{
		Model:    *options.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(input)),
	}
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		request.MaxTokens = *options.MaxTokens
	}
	for _, msg := range input {
		request.Messages = append(request.Messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := m.prepareRequest(ctx).
		SetBody(request).
		SetDoNotParseResponse(true).
		Post(m.endpoint)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, errors.New("provider returned no response body")
	}
	defer resp.RawResponse.Body.Close()

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.RawResponse.Body, errorBodyLimit))
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode(), strings.TrimSpace(string(body)))
	}

	var decoded openai.ChatCompletionResponse
	if err := json.NewDecoder(resp.RawResponse.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return nil, ErrEmptyReply
	}

	return schema.AssistantMessage(decoded.Choices[0].Message.Content, nil), nil
}

func (m *OpenAIChatModel) prepareRequest(ctx context.Context) *resty.Request {
	req := m.client.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	req.SetHeader("Authorization", "Bearer "+m.apiKey)
	return req
}

// Stream satisfies model.BaseChatModel. The provider is called without
// streaming and the full reply is delivered as a single chunk.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

var _ model.BaseChatModel = (*OpenAIChatModel)(nil)
