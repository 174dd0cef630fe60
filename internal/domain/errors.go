package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrCorpusSealed reports accumulation attempted after scoring began.
// Correct orchestration never triggers it; seeing it means a sequencing bug.
var ErrCorpusSealed = errors.New("corpus sealed: accumulation after scoring began")

// ErrPayloadTooLarge marks a fetch aborted because the body exceeded the
// configured size limit. Never retried.
var ErrPayloadTooLarge = errors.New("payload exceeds configured size limit")

// StatusError carries a non-2xx HTTP response status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// IsTransient reports whether a fetch error is worth retrying: connection
// level failures, timeouts, and 5xx responses. Client errors (4xx) and
// oversize payloads are terminal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrPayloadTooLarge) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// ExtractionFailure enumerates the ways text recovery can fail without
// aborting the run.
type ExtractionFailure string

const (
	FailureUnsupported ExtractionFailure = "unsupported"
	FailureCorrupt     ExtractionFailure = "corrupt"
	FailureEmpty       ExtractionFailure = "empty"
)

// ExtractionError tags a failed extraction with its failure kind.
type ExtractionError struct {
	Kind ExtractionFailure
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError builds a tagged extraction failure.
func NewExtractionError(kind ExtractionFailure, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Err: err}
}
