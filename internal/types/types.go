// Package types defines core data types and enums shared across the translator.
package types

import "errors"

// SplitMode 分块模式
type SplitMode string

const (
	// SplitAutomatic cuts at top-level boundaries chosen by the splitter.
	SplitAutomatic SplitMode = "automatic"
	// SplitManual cuts exactly at split marker lines.
	SplitManual SplitMode = "manual"
)

// GrammarFormat selects how a constraint grammar is rendered for the service.
type GrammarFormat string

const (
	GrammarEBNF GrammarFormat = "ebnf"
	GrammarGBNF GrammarFormat = "gbnf"
)

// Config 应用配置
type Config struct {
	OpenAIAPIKey  string `json:"openai_api_key" yaml:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url" yaml:"openai_base_url"` // OpenAI 兼容 API 的 Base URL
	OpenAIModel   string `json:"openai_model" yaml:"openai_model"`

	MaxFragmentLength int       `json:"max_fragment_length" yaml:"max_fragment_length"` // 以字符计
	SplitMode         SplitMode `json:"split_mode" yaml:"split_mode"`
	SplitMarker       string    `json:"split_marker" yaml:"split_marker"`
	IgnoreBeginMarker string    `json:"ignore_begin_marker" yaml:"ignore_begin_marker"`
	IgnoreEndMarker   string    `json:"ignore_end_marker" yaml:"ignore_end_marker"`

	Concurrency           int           `json:"concurrency" yaml:"concurrency"` // 翻译并发数
	ConstrainedGeneration bool          `json:"constrained_generation" yaml:"constrained_generation"`
	GrammarFormat         GrammarFormat `json:"grammar_format" yaml:"grammar_format"`
	EnforceGrammar        bool          `json:"enforce_grammar" yaml:"enforce_grammar"` // 译文违反文法时视为失败
	CachePath             string        `json:"cache_path" yaml:"cache_path"` // 为空时不使用翻译缓存

	Temperature    float64 `json:"temperature" yaml:"temperature"`
	MaxRetries     int     `json:"max_retries" yaml:"max_retries"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Markers groups the three in-band marker literals.
type Markers struct {
	Split       string
	IgnoreBegin string
	IgnoreEnd   string
}

// Markers returns the marker literals of the configuration.
func (c *Config) Markers() Markers {
	return Markers{
		Split:       c.SplitMarker,
		IgnoreBegin: c.IgnoreBeginMarker,
		IgnoreEnd:   c.IgnoreEndMarker,
	}
}

// ErrorCode 错误代码枚举
type ErrorCode string

const (
	ErrConfig          ErrorCode = "CONFIG_ERROR"
	ErrSyntax          ErrorCode = "SYNTAX_ERROR"
	ErrChunkTooLong    ErrorCode = "CHUNK_TOO_LONG"
	ErrMarkerImbalance ErrorCode = "MARKER_IMBALANCE"
	ErrTranslation     ErrorCode = "TRANSLATION_ERROR"
	ErrAPICall         ErrorCode = "API_CALL_ERROR"
	ErrAPIRateLimit    ErrorCode = "API_RATE_LIMIT"
	ErrNetwork         ErrorCode = "NETWORK_ERROR"
	ErrFileNotFound    ErrorCode = "FILE_NOT_FOUND"
	ErrInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCache           ErrorCode = "CACHE_ERROR"
	ErrCancelled       ErrorCode = "CANCELLED"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}
