package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别，用于跨层传播时映射为统一的失败响应
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindParse      Kind = "parse_error"
	KindLLM        Kind = "llm_error"
	KindNotFound   Kind = "not_found"
	KindState      Kind = "state_error"
	KindResource   Kind = "resource_error"
	KindInternal   Kind = "internal_error"
)

// LLM 传输/形状失败的细分原因
type LLMReason string

const (
	LLMRateLimit LLMReason = "rate_limit"
	LLMTimeout   LLMReason = "timeout"
	LLMBadJSON   LLMReason = "bad_json"
	LLMNetwork   LLMReason = "network"
	LLMServer    LLMReason = "server"
)

type Error struct {
	Kind   Kind
	Reason LLMReason
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string, err error) *Error {
	return New(KindValidation, msg, err)
}

func Parse(msg string, err error) *Error {
	return New(KindParse, msg, err)
}

func NotFound(msg string) *Error {
	return New(KindNotFound, msg, nil)
}

func State(msg string) *Error {
	return New(KindState, msg, nil)
}

func Resource(msg string, err error) *Error {
	return New(KindResource, msg, err)
}

func LLM(reason LLMReason, msg string, err error) *Error {
	return &Error{Kind: KindLLM, Reason: reason, Msg: msg, Err: err}
}

// KindOf 返回错误的类别；非 *Error 一律视为 internal_error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRateLimit 判断是否为可重试的限流错误
func IsRateLimit(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindLLM && e.Reason == LLMRateLimit
	}
	return false
}
