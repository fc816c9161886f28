package node

import (
	"context"
	"errors"
	"net"
	"strings"
)

// IsTimeoutError 识别模型调用超时：context 截止、网络超时或提供商返回的超时文案
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return true
	case strings.Contains(msg, "timed out"):
		return true
	case strings.Contains(msg, "deadline exceeded"):
		return true
	default:
		return false
	}
}
