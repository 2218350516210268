package callable

import (
	"AltarProject/tools/errs"
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status callable 错误状态，取值与 gRPC 状态码名称一致（NOT_FOUND、PERMISSION_DENIED ...）
type Status string

const (
	StatusCancelled          Status = "CANCELLED"
	StatusUnknown            Status = "UNKNOWN"
	StatusInvalidArgument    Status = "INVALID_ARGUMENT"
	StatusDeadlineExceeded   Status = "DEADLINE_EXCEEDED"
	StatusNotFound           Status = "NOT_FOUND"
	StatusAlreadyExists      Status = "ALREADY_EXISTS"
	StatusPermissionDenied   Status = "PERMISSION_DENIED"
	StatusResourceExhausted  Status = "RESOURCE_EXHAUSTED"
	StatusFailedPrecondition Status = "FAILED_PRECONDITION"
	StatusAborted            Status = "ABORTED"
	StatusOutOfRange         Status = "OUT_OF_RANGE"
	StatusUnimplemented      Status = "UNIMPLEMENTED"
	StatusInternal           Status = "INTERNAL"
	StatusUnavailable        Status = "UNAVAILABLE"
	StatusDataLoss           Status = "DATA_LOSS"
	StatusUnauthenticated    Status = "UNAUTHENTICATED"
)

var grpcCodes = map[Status]codes.Code{
	StatusCancelled:          codes.Canceled,
	StatusUnknown:            codes.Unknown,
	StatusInvalidArgument:    codes.InvalidArgument,
	StatusDeadlineExceeded:   codes.DeadlineExceeded,
	StatusNotFound:           codes.NotFound,
	StatusAlreadyExists:      codes.AlreadyExists,
	StatusPermissionDenied:   codes.PermissionDenied,
	StatusResourceExhausted:  codes.ResourceExhausted,
	StatusFailedPrecondition: codes.FailedPrecondition,
	StatusAborted:            codes.Aborted,
	StatusOutOfRange:         codes.OutOfRange,
	StatusUnimplemented:      codes.Unimplemented,
	StatusInternal:           codes.Internal,
	StatusUnavailable:        codes.Unavailable,
	StatusDataLoss:           codes.DataLoss,
	StatusUnauthenticated:    codes.Unauthenticated,
}

var httpStatus = map[Status]int{
	StatusCancelled:          499,
	StatusInvalidArgument:    http.StatusBadRequest,
	StatusDeadlineExceeded:   http.StatusGatewayTimeout,
	StatusNotFound:           http.StatusNotFound,
	StatusAlreadyExists:      http.StatusConflict,
	StatusPermissionDenied:   http.StatusForbidden,
	StatusResourceExhausted:  http.StatusTooManyRequests,
	StatusFailedPrecondition: http.StatusBadRequest,
	StatusAborted:            http.StatusConflict,
	StatusOutOfRange:         http.StatusBadRequest,
	StatusUnimplemented:      http.StatusNotImplemented,
	StatusUnavailable:        http.StatusServiceUnavailable,
	StatusUnauthenticated:    http.StatusUnauthorized,
}

// Error 远程过程调用失败。所有 transport 的客户端都返回 *Error，
// 因此调用方可以用 errors.Is(err, errs.ErrRemoteProcedureNotFound) 判断"函数不存在"。
type Error struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`

	cause error
}

func NewError(st Status, format string, args ...any) *Error {
	return &Error{Status: st, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Status)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is 把 callable 状态映射到 tools/errs 的错误码体系
func (e *Error) Is(target error) bool {
	var ce *errs.CodeError
	if !errors.As(target, &ce) {
		return false
	}
	code := errs.RemoteProcedureError
	if e.Status == StatusNotFound || e.Status == StatusUnimplemented {
		code = errs.RemoteProcedureNotFoundError
	}
	return errs.DefaultCodeRelation.Is(ce.Code, code)
}

func (e *Error) GRPCCode() codes.Code {
	if c, ok := grpcCodes[e.Status]; ok {
		return c
	}
	return codes.Unknown
}

func (e *Error) HTTPStatus() int {
	if c, ok := httpStatus[e.Status]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// GRPCStatus 让 status.FromError / status.Code 直接识别
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.GRPCCode(), e.Error())
}

func StatusFromGRPC(c codes.Code) Status {
	if c == codes.OK {
		return ""
	}
	for st, gc := range grpcCodes {
		if gc == c {
			return st
		}
	}
	return StatusUnknown
}

func StatusFromHTTP(code int) Status {
	switch code {
	case http.StatusBadRequest:
		return StatusInvalidArgument
	case http.StatusUnauthorized:
		return StatusUnauthenticated
	case http.StatusForbidden:
		return StatusPermissionDenied
	case http.StatusNotFound:
		return StatusNotFound
	case http.StatusConflict:
		return StatusAborted
	case http.StatusTooManyRequests:
		return StatusResourceExhausted
	case 499:
		return StatusCancelled
	case http.StatusNotImplemented:
		return StatusUnimplemented
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return StatusUnavailable
	case http.StatusGatewayTimeout:
		return StatusDeadlineExceeded
	default:
		return StatusInternal
	}
}

// FromError 把任意错误转换为 *Error；已经是 *Error 的原样返回
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(StatusDeadlineExceeded, "%s", err.Error()).WithCause(err)
	case errors.Is(err, context.Canceled):
		return NewError(StatusCancelled, "%s", err.Error()).WithCause(err)
	}
	var codeErr *errs.CodeError
	if errors.As(err, &codeErr) {
		msg := codeErr.Msg
		if codeErr.Detail != "" {
			msg += ": " + codeErr.Detail
		}
		return NewError(statusFromCode(codeErr.Code), "%s", msg).WithCause(err)
	}
	if st, ok := status.FromError(err); ok {
		return NewError(StatusFromGRPC(st.Code()), "%s", st.Message()).WithCause(err)
	}
	return NewError(StatusInternal, "%s", err.Error()).WithCause(err)
}

func statusFromCode(code int) Status {
	switch {
	case errs.DefaultCodeRelation.Is(errs.InvalidArgumentError, code):
		return StatusInvalidArgument
	case errs.DefaultCodeRelation.Is(errs.StorageTransactionError, code):
		return StatusAborted
	case errs.DefaultCodeRelation.Is(errs.RemoteProcedureNotFoundError, code):
		return StatusNotFound
	case errs.DefaultCodeRelation.Is(errs.RemoteProcedureError, code):
		return StatusUnavailable
	default:
		return StatusInternal
	}
}
