package errs

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Error 可再次包装（附带调用栈）的错误
type Error interface {
	Wrap() error
	WrapMsg(msg string, kv ...any) error
	error
}

// New 创建一个不带错误码的错误，kv 追加在消息后面
func New(msg string, kv ...any) Error {
	return &errorString{s: toString(msg, kv)}
}

type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

func (e *errorString) Wrap() error {
	return pkgerrors.WithStack(e)
}

func (e *errorString) WrapMsg(msg string, kv ...any) error {
	if msg == "" && len(kv) == 0 {
		return e.Wrap()
	}
	return pkgerrors.WithStack(NewErrorWrapper(e, toString(msg, kv)))
}

type ErrWrapper interface {
	Is(err error) bool
	Wrap() error
	Unwrap() error
	WrapMsg(msg string, kv ...any) error
	error
}

func NewErrorWrapper(err error, s string) ErrWrapper {
	return &errorWrapper{error: err, s: s}
}

type errorWrapper struct {
	error
	s string
}

func (e *errorWrapper) Is(err error) bool {
	if err == nil {
		return false
	}
	var t *errorWrapper
	if ok := pkgerrors.As(err, &t); ok {
		return t == e
	}
	return false
}

func (e *errorWrapper) Error() string {
	if e.s == "" {
		return e.error.Error()
	}
	return e.s + ": " + e.error.Error()
}

func (e *errorWrapper) Unwrap() error {
	return e.error
}

func (e *errorWrapper) Wrap() error {
	return pkgerrors.WithStack(e)
}

func (e *errorWrapper) WrapMsg(msg string, kv ...any) error {
	if msg == "" && len(kv) == 0 {
		return e.Wrap()
	}
	return pkgerrors.WithStack(NewErrorWrapper(e, toString(msg, kv)))
}

// toString 把 msg 和 kv 拼成 "msg, k1=v1, k2=v2"
func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}
