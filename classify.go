package kreq

import "github.com/relaycore/kreq/kerr"

// Action is a set of corrective actions the retry/refresh driver may
// take in response to a classified error. Multiple bits can be set at
// once (Refresh|Retry for IllegalGeneration, Refresh|Special for a dead
// group coordinator).
type Action uint8

const (
	ActionPermanent Action = 1 << iota
	ActionIgnore
	ActionRefresh
	ActionRetry
	ActionInform
	ActionSpecial
)

// Has reports whether bit is set in a.
func (a Action) Has(bit Action) bool { return a&bit != 0 }

// Override is one entry of a caller-supplied, ordered (action, error)
// list consulted before the default classification table (spec.md §4.5
// Stage 1). The variadic (action, error) pairs of the system this
// engine's classifier is modeled on are re-expressed here as an
// explicit, possibly empty, slice.
type Override struct {
	Action Action
	Code   int32
}

// Classify maps err, by way of an ordered override list and whether the
// originating request envelope is still available, to an action
// bitmask.
//
// Stage 1: every override whose Code matches err's code contributes its
// Action bits; if any override matched, stage 2 is skipped entirely.
// Stage 2: a fixed default table keyed by error class.
//
// Retry is never returned when hasRequest is false: retrying without a
// buffer to resend is impossible.
func Classify(err error, overrides []Override, hasRequest bool) Action {
	code := CodeOf(err)

	var result Action
	matched := false
	for _, o := range overrides {
		if o.Code == code {
			result |= o.Action
			matched = true
		}
	}
	if !matched {
		result = defaultAction(code)
	}
	if !hasRequest {
		result &^= ActionRetry
	}
	return result
}

func defaultAction(code int32) Action {
	switch code {
	case 0:
		return 0

	case int32(kerr.LeaderNotAvailable.Code),
		int32(kerr.NotLeaderForPartition.Code),
		int32(kerr.BrokerNotAvailable.Code),
		int32(kerr.ReplicaNotAvailable.Code),
		int32(kerr.GroupCoordinatorNotAvailable.Code),
		int32(kerr.NotCoordinatorForGroup.Code),
		ErrWaitCoord.Code:
		return ActionRefresh

	case ErrTimedOut.Code,
		ErrTimedOutQueue.Code,
		int32(kerr.RequestTimedOut.Code),
		int32(kerr.NotEnoughReplicas.Code),
		int32(kerr.NotEnoughReplicasAfterAppend.Code),
		ErrTransport.Code:
		return ActionRetry

	default:
		// Destroy, InvalidSessionTimeout, UnsupportedFeature, and any
		// other unlisted code surface straight to the caller.
		return ActionPermanent
	}
}
