package kreq

import "time"

// DriverResult tells a per-API handler what became of a classified
// reply: whether it should finalize the caller's result, or refrain
// because a retry was enqueued instead.
type DriverResult uint8

const (
	// ResultCompleted means the handler should deliver a terminal
	// Result (success or the original error) to the envelope's route.
	ResultCompleted DriverResult = iota
	// ResultRetried means the same envelope was re-enqueued; the
	// handler must not finalize the caller's result.
	ResultRetried
	// ResultSilent means the envelope was released without notifying
	// the caller at all (Destroy, spec.md §7).
	ResultSilent
)

// Act executes the corrective response to a classified action bitmask
// for env: it re-enqueues on Retry (while budget remains), and invokes
// the topic-metadata or group-coordinator refresh hook on Refresh,
// choosing between the two based on env.Refresh (spec.md §4.6).
//
// Destroy always short-circuits to a silent release, regardless of the
// action bitmask computed for it (spec.md §7): a shutting-down client
// never surfaces that shutdown to the caller as an error to act on.
func Act(env *Envelope, err error, action Action, cfg *Config, collabs Collaborators, reason string) DriverResult {
	if err == ErrDestroy {
		return ResultSilent
	}

	if action.Has(ActionRetry) && env.CanRetry() {
		delay := backoffWithJitter(cfg, int(env.RetryCount))
		env.RetryCount++
		env.State = Retried
		if action.Has(ActionRefresh) {
			doRefresh(env, action, collabs, err, reason)
		}
		if enqErr := collabs.Broker.Enqueue(env, env.Route, delay); enqErr != nil {
			collabs.logger().Warnf("re-enqueue of %s failed: %v", env.ApiKey, enqErr)
			env.State = Completed
			return ResultCompleted
		}
		return ResultRetried
	}

	if action.Has(ActionRefresh) {
		doRefresh(env, action, collabs, err, reason)
	}

	env.State = Completed
	return ResultCompleted
}

func doRefresh(env *Envelope, action Action, collabs Collaborators, err error, reason string) {
	switch env.Refresh {
	case RefreshTopic:
		collabs.Metadata.LeaderUnavailable(env.Topic, env.Partition, reason, err)
	case RefreshGroup:
		if action.Has(ActionSpecial) {
			collabs.Group.CoordDead(err, reason)
		} else {
			collabs.Group.CoordQuery(reason)
		}
	}
}

// backoffWithJitter asks cfg's configured backoff function for the base
// delay of the given attempt number and adds up to 20% jitter, computed
// here in the driver rather than by the broker layer so every retry path
// gets the same jitter policy regardless of which broker implementation
// is plugged in.
func backoffWithJitter(cfg *Config, tries int) time.Duration {
	base := cfg.retryBackoff(tries)
	if base <= 0 {
		return 0
	}
	jitterRange := int64(base) / 5
	if jitterRange <= 0 {
		return base
	}
	return base + time.Duration(cfg.rng.Int63n(jitterRange))
}
