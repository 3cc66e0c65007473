package model

import (
	"errors"
	"fmt"
)

// 核心错误类别，调用方通过 errors.Is 判定。
var (
	// ErrParse 源文档无法读取或无法解析出文本。
	ErrParse = errors.New("parse error")
	// ErrIndex 向量索引不可用或写入失败。
	ErrIndex = errors.New("index error")
	// ErrGeneration 文本生成后端调用失败（网络、鉴权、配额、响应格式）。
	ErrGeneration = errors.New("generation error")
	// ErrValidation 缺少必要输入，在调用任何后端之前就被拒绝。
	ErrValidation = errors.New("validation error")
	// ErrSessionNotFound 会话不存在。
	ErrSessionNotFound = errors.New("session not found")
)

// Error 携带错误类别与发生位置。
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap 同时暴露类别和底层错误。
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError 构造一个带类别的错误。
func NewError(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func ParseError(op string, err error) error      { return NewError(ErrParse, op, err) }
func IndexError(op string, err error) error      { return NewError(ErrIndex, op, err) }
func GenerationError(op string, err error) error { return NewError(ErrGeneration, op, err) }
func ValidationError(op string, err error) error { return NewError(ErrValidation, op, err) }
