package chat

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/alumnihub/alumni-backend/internal/common"
	"github.com/sony/gobreaker"
)

// ErrNetwork marks transport-level failures reported by a backend
var ErrNetwork = errors.New("backend unreachable")

// errNoBackend is used when an operation has nothing to try
var errNoBackend = errors.New("no backend configured")

func classify(err error) common.DeliveryCause {
	if err == nil {
		return common.CauseServer
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return common.CauseTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return common.CauseTimeout
		}
		return common.CauseNetwork
	}
	if errors.Is(err, ErrNetwork) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return common.CauseNetwork
	}
	return common.CauseServer
}

// worstCause folds per-attempt causes: timeout wins over network, network over server
func worstCause(errs []error) common.DeliveryCause {
	cause := common.CauseServer
	for _, err := range errs {
		switch classify(err) {
		case common.CauseTimeout:
			return common.CauseTimeout
		case common.CauseNetwork:
			cause = common.CauseNetwork
		}
	}
	return cause
}

func deliveryError(op string, errs []error) *common.DeliveryError {
	var last error
	if len(errs) > 0 {
		last = errs[len(errs)-1]
	} else {
		last = errNoBackend
	}
	return &common.DeliveryError{Op: op, Cause: worstCause(errs), Last: last}
}
