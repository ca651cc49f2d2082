package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-shop/backend/internal/config"
	"github.com/zhouzirui/z-shop/backend/internal/logging"
	"github.com/zhouzirui/z-shop/backend/internal/model/persona"
)

// Fallback replies substituted when no usable completion is available.
const (
	FallbackProviderError  = "Sorry, I couldn't process that. Can you try again?"
	FallbackTransportError = "Oops, something went wrong. Please try again!"
)

// Outcome classifies how a completion call settled.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeProviderError: the provider answered but without a reply field.
	OutcomeProviderError
	// OutcomeTransportError: network failure, bad status, undecodable body.
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeProviderError:
		return "provider_error"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Reply is the settled result of Complete. Text is always usable as an
// assistant message; Err is kept for diagnostics only.
type Reply struct {
	Text    string
	Outcome Outcome
	Err     error
}

// Service turns a user utterance into exactly one assistant reply.
type Service struct {
	chatModel model.BaseChatModel
	template  prompt.ChatTemplate
	maxTokens int
	logger    *zap.Logger
}

// NewService wraps chatModel. maxTokens caps the reply length; zero leaves
// the provider default in place.
func NewService(chatModel model.BaseChatModel, maxTokens int, logger *zap.Logger) *Service {
	// Each request carries only the system instruction and the latest
	// utterance; earlier turns are never forwarded.
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	return &Service{
		chatModel: chatModel,
		template:  template,
		maxTokens: maxTokens,
		logger:    logging.OrNop(logger).Named("ai"),
	}
}

// NewServiceFromConfig selects the provider named in cfg.
func NewServiceFromConfig(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)

	switch cfg.Provider {
	case config.ProviderArk:
		chatModel, err = cfg.NewArkChatModel(ctx)
	default:
		chatModel, err = NewOpenAIChatModel(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Logger:    logger,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return NewService(chatModel, cfg.MaxTokens, logger), nil
}

// Complete never fails: every error path resolves to one of the fallback
// replies.
func (s *Service) Complete(ctx context.Context, p *persona.Persona, userText string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			reply = s.transportFailure(fmt.Errorf("completion panicked: %v", r))
		}
	}()

	messages, err := s.template.Format(ctx, map[string]any{
		"system": BuildSystemPrompt(p),
		"query":  userText,
	})
	if err != nil {
		return s.transportFailure(fmt.Errorf("format prompt: %w", err))
	}

	var opts []model.Option
	if s.maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(s.maxTokens))
	}

	response, err := s.chatModel.Generate(ctx, messages, opts...)
	switch {
	case errors.Is(err, ErrEmptyReply):
		s.logger.Warn("completion returned no reply", zap.Error(err))
		return Reply{Text: FallbackProviderError, Outcome: OutcomeProviderError, Err: err}
	case err != nil:
		return s.transportFailure(err)
	case response == nil || response.Content == "":
		s.logger.Warn("completion returned no reply")
		return Reply{Text: FallbackProviderError, Outcome: OutcomeProviderError, Err: ErrEmptyReply}
	}

	s.logger.Debug("completion settled", zap.Int("length", len(response.Content)))
	return Reply{Text: response.Content, Outcome: OutcomeSuccess}
}

func (s *Service) transportFailure(err error) Reply {
	s.logger.Error("completion failed", zap.Error(err))
	return Reply{Text: FallbackTransportError, Outcome: OutcomeTransportError, Err: err}
}
