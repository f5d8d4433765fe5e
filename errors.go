package kreq

import "github.com/relaycore/kreq/kerr"

// LocalError is an origin-local failure condition, as opposed to a Kafka
// broker error code (kerr.Error). Codes are negative so a caller that
// merges local and broker codes into one space (as the classifier does)
// never collides with a real Kafka error code, mirroring the merged
// local/broker error space of the C client this engine's protocol
// handling is modeled on (original_source/src/rdkafka_request.c refers
// to this same set: RD_KAFKA_RESP_ERR__BAD_MSG, __TIMED_OUT,
// __TIMED_OUT_QUEUE, __TRANSPORT, __DESTROY, __UNSUPPORTED_FEATURE,
// __INVALID_ARG, __PREV_IN_PROGRESS, __IN_PROGRESS, __WAIT_COORD).
type LocalError struct {
	Code    int32
	Message string
}

func (e *LocalError) Error() string { return e.Message }

var (
	// ErrBadMsg is returned by a decoder when the reply buffer underflows
	// or otherwise fails to parse; no partial result is published.
	ErrBadMsg = &LocalError{-200, "BAD_MSG"}

	// ErrTimedOut means the envelope's absolute deadline passed while it
	// was still queued, never sent.
	ErrTimedOut = &LocalError{-201, "TIMED_OUT"}

	// ErrTimedOutQueue means the envelope was sent but no reply arrived
	// before the deadline.
	ErrTimedOutQueue = &LocalError{-202, "TIMED_OUT_QUEUE"}

	// ErrTransport is a connection-level failure (write or read error).
	ErrTransport = &LocalError{-203, "TRANSPORT"}

	// ErrDestroy marks an envelope release triggered by client shutdown;
	// it is never surfaced to the caller as an actionable error.
	ErrDestroy = &LocalError{-204, "DESTROY"}

	// ErrUnsupportedFeature means no version of the API key overlaps the
	// broker's advertised range, or the admin API isn't supported at all.
	ErrUnsupportedFeature = &LocalError{-205, "UNSUPPORTED_FEATURE"}

	// ErrInvalidArg means the caller's request parameters were malformed
	// (e.g. an incremental AlterConfigs request below the supported
	// version).
	ErrInvalidArg = &LocalError{-206, "INVALID_ARG"}

	// ErrPrevInProgress means a full-cluster metadata request was
	// suppressed because an identical unforced request was already in
	// flight (spec.md §4.8).
	ErrPrevInProgress = &LocalError{-207, "PREV_IN_PROGRESS"}

	// ErrInProgress is the local code for a request whose retry has been
	// enqueued. The retry driver (Act) does not return it: it reports
	// that case to the handler as ResultRetried.
	ErrInProgress = &LocalError{-208, "IN_PROGRESS"}

	// ErrWaitCoord means the group coordinator is still being looked up;
	// treated the same as a stale/missing coordinator by the classifier.
	ErrWaitCoord = &LocalError{-209, "WAIT_COORD"}
)

// CodeOf extracts a comparable int32 error code from err, whether err is
// a Kafka broker error (*kerr.Error), a *LocalError, nil (NoError), or
// anything else (bucketed as UnknownServerError's code, -1).
func CodeOf(err error) int32 {
	if err == nil {
		return 0
	}
	switch e := err.(type) {
	case *LocalError:
		return e.Code
	case *kerr.Error:
		return int32(e.Code)
	default:
		return -1
	}
}
