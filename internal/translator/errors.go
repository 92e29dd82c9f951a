package translator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"ltxtrans/internal/types"
)

// ServiceError reports a fragment the translation service could not
// translate.
type ServiceError struct {
	Ordinal  int
	Attempts int
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("fragment %d: translation failed after %d attempt(s): %v", e.Ordinal, e.Attempts, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// The openai client reports HTTP failures as text carrying the status code.
var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// classifyError turns a chat model error into an AppError.
func classifyError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) {
		return types.NewAppError(types.ErrCancelled, "request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewAppError(types.ErrNetwork, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return types.NewAppError(types.ErrNetwork, "network error", err)
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return handleAPIHTTPError(code, err)
	}
	return types.NewAppError(types.ErrAPICall, "API request failed", err)
}

// handleAPIHTTPError creates an appropriate AppError based on the HTTP status code.
func handleAPIHTTPError(statusCode int, cause error) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"API authentication failed",
			"invalid API key or unauthorized access",
			cause,
		)
	case http.StatusTooManyRequests:
		return types.NewAppErrorWithDetails(
			types.ErrAPIRateLimit,
			"API rate limit exceeded",
			fmt.Sprintf("status %d", statusCode),
			cause,
		)
	case http.StatusBadRequest:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"invalid API request",
			fmt.Sprintf("status %d", statusCode),
			cause,
		)
	default:
		if statusCode >= 500 {
			return types.NewAppErrorWithDetails(
				types.ErrAPICall,
				"API server error",
				fmt.Sprintf("status %d", statusCode),
				cause,
			)
		}
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"API request failed",
			fmt.Sprintf("status %d", statusCode),
			cause,
		)
	}
}

// isRetryableAPIError determines if an error should trigger a retry.
func isRetryableAPIError(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return false
	}

	switch appErr.Code {
	case types.ErrNetwork, types.ErrAPIRateLimit:
		return true
	case types.ErrAPICall:
		// Retry on server errors, but not on client errors
		return strings.HasPrefix(appErr.Details, "status 5")
	default:
		return false
	}
}
