// Package translator sends LaTeX fragments to an OpenAI-compatible chat
// model and returns their translations. Comments are hoisted out before the
// call and restored afterwards; the fragment grammar, when present, is
// given to the model as a constraint.
package translator

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"ltxtrans/internal/grammar"
	"ltxtrans/internal/logger"
	"ltxtrans/internal/types"
)

const (
	// DefaultModel is the default OpenAI model to use for translation
	DefaultModel = "gpt-4o"
	// DefaultTimeout bounds a single API call
	DefaultTimeout = 120 * time.Second
	// MaxRetries is the default number of attempts for retryable API errors
	MaxRetries = 2
	// BaseRetryDelay is the base delay between attempts
	BaseRetryDelay = 2 * time.Second
	// DefaultTemperature is the sampling temperature of translation calls
	DefaultTemperature = 0.5
)

// ChatModel is the part of an eino chat model the engine uses.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Request is one fragment to translate.
type Request struct {
	Ordinal int
	Text    string
	// Grammar constrains the output; nil means unconstrained.
	Grammar *grammar.Grammar
	Source  Language
	Target  Language
}

// TranslationEngine translates fragments with retries.
type TranslationEngine struct {
	chat        ChatModel
	modelName   string
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
	timeout     time.Duration
	format      types.GrammarFormat
}

// NewTranslationEngine creates an engine backed by the eino OpenAI chat
// model configured in cfg.
func NewTranslationEngine(ctx context.Context, cfg *types.Config) (*TranslationEngine, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, types.NewAppError(types.ErrConfig, "OpenAI API key is not configured", nil)
	}
	modelName := cfg.OpenAIModel
	if modelName == "" {
		modelName = DefaultModel
	}

	chatModelConfig := &openai.ChatModelConfig{
		Model:  modelName,
		APIKey: cfg.OpenAIAPIKey,
	}
	if cfg.OpenAIBaseURL != "" {
		chatModelConfig.BaseURL = strings.TrimSuffix(cfg.OpenAIBaseURL, "/")
	}
	chatModel, err := openai.NewChatModel(ctx, chatModelConfig)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "failed to create chat model", err)
	}

	logger.Info("translation engine initialized",
		logger.String("model", modelName),
		logger.String("baseURL", chatModelConfig.BaseURL))
	return NewTranslationEngineWithModel(chatModel, modelName, cfg), nil
}

// NewTranslationEngineWithModel wraps an existing chat model.
func NewTranslationEngineWithModel(chat ChatModel, modelName string, cfg *types.Config) *TranslationEngine {
	e := &TranslationEngine{
		chat:        chat,
		modelName:   modelName,
		temperature: DefaultTemperature,
		maxRetries:  MaxRetries,
		retryDelay:  BaseRetryDelay,
		timeout:     DefaultTimeout,
		format:      types.GrammarEBNF,
	}
	if cfg != nil {
		if cfg.Temperature > 0 {
			e.temperature = float32(cfg.Temperature)
		}
		if cfg.MaxRetries > 0 {
			e.maxRetries = cfg.MaxRetries
		}
		if cfg.TimeoutSeconds > 0 {
			e.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		if cfg.GrammarFormat != "" {
			e.format = cfg.GrammarFormat
		}
	}
	return e
}

// SetRetryDelay sets the base delay between attempts.
func (t *TranslationEngine) SetRetryDelay(d time.Duration) {
	t.retryDelay = d
}

// GetModel returns the model name.
func (t *TranslationEngine) GetModel() string {
	return t.modelName
}

// Translate translates one fragment. Leading and trailing whitespace of the
// fragment is kept as is so that fragments still join up.
func (t *TranslationEngine) Translate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}

	ps := NewPlaceholderSystem()
	masked := ps.ProtectComments(req.Text)
	if !containsTranslatableText(ps.Strip(masked)) {
		logger.Debug("fragment has nothing to translate", logger.Int("ordinal", req.Ordinal))
		return req.Text, nil
	}

	var grammarText string
	if req.Grammar != nil {
		grammarText = req.Grammar.Render(t.format)
	}
	msgs := []*schema.Message{
		schema.SystemMessage(BuildSystemPrompt(req.Source, req.Target, grammarText)),
		schema.UserMessage(BuildUserPrompt(masked)),
	}

	translated, attempts, err := t.generateWithRetry(ctx, req.Ordinal, msgs)
	if err != nil {
		return "", &ServiceError{Ordinal: req.Ordinal, Attempts: attempts, Err: err}
	}

	translated = keepEdges(req.Text, cleanTranslationResult(translated))
	translated, missing := ps.RestoreAll(translated)
	if len(missing) > 0 {
		logger.Warn("comment placeholders dropped by the model, appended at fragment end",
			logger.Int("ordinal", req.Ordinal),
			logger.String("missing", strings.Join(missing, ", ")))
	}
	return translated, nil
}

// generateWithRetry calls the model, retrying transient errors.
func (t *TranslationEngine) generateWithRetry(ctx context.Context, ordinal int, msgs []*schema.Message) (string, int, error) {
	var lastErr error

	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		logger.Debug("translation attempt", logger.Int("ordinal", ordinal), logger.Int("attempt", attempt))

		content, err := t.generate(ctx, msgs)
		if err == nil {
			return content, attempt, nil
		}
		lastErr = err
		logger.Warn("translation attempt failed", logger.Int("ordinal", ordinal), logger.Int("attempt", attempt), logger.Err(err))

		if ctx.Err() != nil {
			return "", attempt, types.NewAppError(types.ErrCancelled, "translation cancelled", ctx.Err())
		}
		if !isRetryableAPIError(err) {
			return "", attempt, err
		}

		// Don't sleep after the last attempt
		if attempt < t.maxRetries {
			delay := t.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", attempt, types.NewAppError(types.ErrCancelled, "translation cancelled", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return "", t.maxRetries, lastErr
}

func (t *TranslationEngine) generate(ctx context.Context, msgs []*schema.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.chat.Generate(callCtx, msgs, model.WithTemperature(t.temperature))
	if err != nil {
		return "", classifyError(err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", types.NewAppError(types.ErrAPICall, "empty response from model", nil)
	}
	return resp.Content, nil
}

// cleanTranslationResult removes code fences the model may wrap its
// answer in.
func cleanTranslationResult(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if nl := strings.IndexByte(content, '\n'); nl >= 0 {
			content = content[nl+1:]
		} else {
			content = strings.TrimPrefix(content, "```")
		}
		content = strings.TrimSuffix(strings.TrimRight(content, " \t\r\n"), "```")
	}
	return strings.TrimSpace(content)
}

// keepEdges gives out the leading and trailing whitespace of src.
func keepEdges(src, out string) string {
	lead := src[:len(src)-len(strings.TrimLeftFunc(src, unicode.IsSpace))]
	trail := src[len(strings.TrimRightFunc(src, unicode.IsSpace)):]
	return lead + strings.TrimSpace(out) + trail
}

// containsTranslatableText reports whether text has any letter outside
// LaTeX command names.
func containsTranslatableText(text string) bool {
	inCommand := false
	for _, r := range text {
		switch {
		case r == '\\':
			inCommand = true
		case unicode.IsLetter(r):
			if !inCommand {
				return true
			}
		default:
			inCommand = false
		}
	}
	return false
}
