package kreq

import (
	"time"

	"github.com/relaycore/kreq/kbin"
)

// MetadataRequest describes a Metadata call. Topics == nil requests
// every topic in the cluster; a non-nil, empty Topics requests brokers
// only (v >= 1); a non-empty Topics requests exactly those topics, which
// is never subject to full-request suppression.
type MetadataRequest struct {
	Topics []string
	Force  bool
	Route  ReplyRoute
}

// EncodeMetadata writes a Metadata request body for version v:
// i32 topic_count, then topic_count topic-name strings. On v >= 1,
// topic_count == -1 (a null array) means "all topics" and topic_count
// == 0 means "brokers only"; on v == 0 an empty (non-null) array also
// means "all topics", since v0 has no brokers-only concept.
func EncodeMetadata(w *kbin.Writer, v int16, topics []string) {
	switch {
	case topics == nil && v >= 1:
		w.WriteInt32(-1)
	case topics == nil: // v == 0
		w.WriteInt32(0)
	default:
		w.WriteInt32(int32(len(topics)))
		for _, t := range topics {
			w.WriteNonNullStr(t)
		}
	}
}

// BuildMetadata negotiates a version, applies full-request suppression
// to all-topics/brokers-only requests, and returns a ready-to-send
// envelope. A suppressed request returns ErrPrevInProgress and a nil
// envelope; the caller should retry once the in-flight request
// completes (Suppressor.Wait, or simply re-issue later).
func BuildMetadata(cfg *Config, versions *ApiVersions, sup *Suppressor, req MetadataRequest, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyMetadata, 0, 1, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	isFull := req.Topics == nil || len(req.Topics) == 0
	if isFull && !req.Force {
		kind := FullTopics
		if req.Topics != nil { // non-nil empty slice: brokers-only
			kind = FullBrokers
		}
		if !sup.Begin(kind) {
			return nil, ErrPrevInProgress
		}
	}

	var w kbin.Writer
	EncodeMetadata(&w, v, req.Topics)

	env := NewEnvelope(ApiKeyMetadata, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Flash = true
	env.Deadline = now.Add(cfg.socketTimeout)
	env.Route = req.Route
	env.Body = w.Bytes()
	env.State = Enqueued
	return env, nil
}

// metadataSuppressionKind reports which counter a just-sent MetadataRequest
// occupies, for use by the caller's reply path (End(kind) on completion).
func metadataSuppressionKind(req MetadataRequest) (kind FullRequestKind, applies bool) {
	if req.Force {
		return 0, false
	}
	if req.Topics == nil {
		return FullTopics, true
	}
	if len(req.Topics) == 0 {
		return FullBrokers, true
	}
	return 0, false
}

// HandleMetadataReply decrements whichever suppression counter the
// original request occupied (spec.md §4.8: "on reply, decrement and
// broadcast so any waiters may retry"), then classifies and acts on
// err. Per-topic and per-partition error decoding is the metadata
// cache's job (out of scope here, spec.md §1); this handler only
// reacts to a transport-level or top-level failure.
func HandleMetadataReply(err error, req MetadataRequest, env *Envelope, cfg *Config, sup *Suppressor, collabs Collaborators) DriverResult {
	if kind, applies := metadataSuppressionKind(req); applies {
		sup.End(kind)
	}
	action := Classify(err, env.Overrides, env != nil)
	return Act(env, err, action, cfg, collabs, "metadata reply")
}
