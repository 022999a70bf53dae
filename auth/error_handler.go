package auth

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

// ErrorClass partitions Google API failures into the two categories tool
// callers care about: worth retrying, or not.
type ErrorClass string

const (
	// ErrorTransient marks failures that may succeed on retry (rate
	// limits, server errors, network hiccups).
	ErrorTransient ErrorClass = "transient"
	// ErrorPermanent marks failures a retry cannot fix (bad request,
	// missing document, revoked access).
	ErrorPermanent ErrorClass = "permanent"
)

// ClassifyError decides whether an error from a Google API call is
// transient or permanent.
func ClassifyError(err error) ErrorClass {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return ErrorTransient
		}
		return ErrorPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTransient
	}
	return ErrorPermanent
}

// DecorateError wraps a tool-layer failure with the tool name and its
// classification. The underlying service error is surfaced unchanged.
func DecorateError(tool string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s failed (%s error): %w", tool, ClassifyError(err), err)
}
