package kafka

import (
	"context"
	"errors"
	"strings"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"broker not available",
	"leader not available",
	"connection closed",
	"dial tcp",
}

var fatalPatterns = []string{
	"invalid topic",
	"unknown topic",
	"authorization failed",
	"sasl authentication failed",
}

// IsConnectionError reports whether err is a connection-level failure.
func IsConnectionError(err error) bool {
	return matches(err, connectionPatterns)
}

// IsRetryableError reports whether a fetch failing with err should be
// retried after a backoff. Context errors and configuration errors are not.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !matches(err, fatalPatterns)
}

func matches(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
