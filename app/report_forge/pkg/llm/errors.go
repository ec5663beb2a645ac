package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	openai "github.com/openai/openai-go"
)

// TransientError 临时错误，重试可能成功
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError 标记为可重试
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError 永久错误，不应重试
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError 标记为不可重试
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient 是否可重试
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal 是否不可重试
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

var (
	transientMarkers = []string{
		"429", "too many requests", "rate limit",
		"500", "502", "503", "504", "bad gateway", "service unavailable", "overloaded",
		"timeout", "timed out", "deadline exceeded",
		"connection reset", "connection refused", "eof",
	}
	fatalMarkers = []string{
		"400", "401", "403", "404",
		"invalid api key", "incorrect api key", "unauthorized", "permission denied",
		"model_not_found", "does not exist", "context_length_exceeded",
	}
)

// Classify 将模型调用错误分为 transient / fatal。
// context.Canceled 原样返回，交由调用方根据 ctx 判断。
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) || IsFatal(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTransientError(err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
			return NewTransientError(err)
		case apiErr.StatusCode >= 400:
			return NewFatalError(err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTransientError(err)
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return NewTransientError(err)
		}
	}
	for _, m := range fatalMarkers {
		if strings.Contains(msg, m) {
			return NewFatalError(err)
		}
	}
	// 未知错误按可重试处理，重试次数由上层预算约束
	return NewTransientError(err)
}
