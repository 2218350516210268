package notify

import (
	"AltarProject/service/callable"
	"AltarProject/tools/errs"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsFunctionNotFound 判断一次调用失败是否属于"目标函数不存在"。
// 先看结构化标记，再回退到消息匹配："not found"、"no function"、或包含 primary 名字（均不区分大小写）。
func IsFunctionNotFound(err error, primary string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errs.ErrRemoteProcedureNotFound) || errors.Is(err, nats.ErrNoResponders) {
		return true
	}
	var ce *callable.Error
	if errors.As(err, &ce) && (ce.Status == callable.StatusNotFound || ce.Status == callable.StatusUnimplemented) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		if c := st.Code(); c == codes.NotFound || c == codes.Unimplemented {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not found") || strings.Contains(msg, "no function") {
		return true
	}
	return primary != "" && strings.Contains(msg, strings.ToLower(primary))
}
