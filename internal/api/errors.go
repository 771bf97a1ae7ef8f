package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ServiceError is a normalized non-2xx response. ErrorCode and Details come
// from the server's structured error payload when one was present.
type ServiceError struct {
	HTTPStatus int
	ErrorCode  string
	Message    string
	Details    map[string]string
}

func (e *ServiceError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.HTTPStatus, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.HTTPStatus, e.Message)
}

// Kind classifies a failure for retry and propagation decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindQuota
	KindServerFault
	KindClientFault
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindServerFault:
		return "server_fault"
	case KindClientFault:
		return "client_fault"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error codes the server uses for plan-limit rejections on a 403.
var quotaErrorCodes = map[string]bool{
	"quota_exceeded":     true,
	"plan_limit_reached": true,
	"rate_limited":       true,
}

// Classify assigns a Kind to an error. Pure and total: any input, including
// nil, yields a Kind without panicking.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		switch {
		case svcErr.HTTPStatus == 401:
			return KindAuth
		case svcErr.HTTPStatus == 403 && quotaErrorCodes[svcErr.ErrorCode]:
			return KindQuota
		case svcErr.HTTPStatus >= 500 && svcErr.HTTPStatus <= 599:
			return KindServerFault
		case svcErr.HTTPStatus >= 400 && svcErr.HTTPStatus <= 499:
			return KindClientFault
		}
		return KindUnknown
	}

	// No response reached us: transport-level failures.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "no such host") ||
		strings.Contains(s, "broken pipe") ||
		strings.Contains(s, "timeout") {
		return KindNetwork
	}

	return KindUnknown
}
