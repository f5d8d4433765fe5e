package kreq

import (
	"sort"
	"time"

	"github.com/relaycore/kreq/kbin"
	"github.com/relaycore/kreq/kerr"
)

// Sentinel offsets, matching the client-side bookkeeping conventions
// this protocol layer consumes (original_source's RD_KAFKA_OFFSET_*
// sentinels): INVALID means "no offset known yet"; STORED means "ask
// whatever offset-store is configured". Both mean "this partition needs
// an OffsetFetch round trip"; anything else is already usable.
const (
	OffsetBeginning int64 = -2
	OffsetEnd       int64 = -1
	OffsetStored    int64 = -1000
	OffsetInvalid   int64 = -1001
)

// OffsetFetchPartition is one partition in an OffsetFetch call.
// CurrentOffset is the client's already-known offset for this
// partition, used only to decide whether this partition needs to be
// asked about at all (spec.md §4.3).
type OffsetFetchPartition struct {
	Topic         string
	Partition     int32
	CurrentOffset int64

	// Populated by DecodeOffsetFetchReply.
	CommittedOffset int64
	Metadata        string
	Err             error
}

func needsOffsetFetch(p OffsetFetchPartition) bool {
	return p.CurrentOffset == OffsetInvalid || p.CurrentOffset == OffsetStored
}

// EncodeOffsetFetch writes an OffsetFetch request body for version v:
// string group_id, i32 topic_count, then topic-grouped partition lists.
func EncodeOffsetFetch(w *kbin.Writer, v int16, groupID string, partitions []OffsetFetchPartition) {
	sorted := make([]OffsetFetchPartition, len(partitions))
	copy(sorted, partitions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Topic < sorted[j].Topic })

	w.WriteNonNullStr(groupID)
	topicCntTok := w.ReserveArrayLen()
	topicCnt := 0
	for i := 0; i < len(sorted); {
		j := i
		topic := sorted[i].Topic
		for j < len(sorted) && sorted[j].Topic == topic {
			j++
		}
		w.WriteNonNullStr(topic)
		partCntTok := w.ReserveArrayLen()
		for k := i; k < j; k++ {
			w.WriteInt32(sorted[k].Partition)
		}
		w.FinishArray(partCntTok, j-i)
		topicCnt++
		i = j
	}
	w.FinishArray(topicCntTok, topicCnt)
}

// BuildOffsetFetch filters out partitions that already have a usable
// offset (neither INVALID nor STORED). If every partition is filtered
// out, no request is encoded: the caller's route receives a synchronous
// empty, errorless reply instead, and BuildOffsetFetch returns a nil
// envelope and nil error (spec.md §4.3).
func BuildOffsetFetch(cfg *Config, versions *ApiVersions, groupID string, partitions []OffsetFetchPartition, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyOffsetFetch, 0, 1, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	filtered := make([]OffsetFetchPartition, 0, len(partitions))
	for _, p := range partitions {
		if needsOffsetFetch(p) {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		route.send(Result{}, route.Epoch)
		return nil, nil
	}

	var w kbin.Writer
	EncodeOffsetFetch(&w, v, groupID, filtered)

	env := NewEnvelope(ApiKeyOffsetFetch, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Deadline = now.Add(cfg.socketTimeout)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.Refresh = RefreshGroup
	return env, nil
}

// DecodeOffsetFetchReply parses an OffsetFetch response body, matching
// each result back to the caller's want list by (topic, partition).
// Results the caller never asked about are dropped, not synthesized
// into new entries. A broker-encoded "no committed offset" (-1) is
// normalized to OffsetInvalid; spec.md's Open Questions note this
// normalization intentionally does NOT mirror Offset/ListOffsets, which
// leaves -1 untouched.
func DecodeOffsetFetchReply(buf []byte, want []OffsetFetchPartition) ([]OffsetFetchPartition, error) {
	r := kbin.Reader{Src: buf}
	results := make([]OffsetFetchPartition, len(want))
	copy(results, want)

	index := make(map[toppar]int, len(want))
	for i, p := range want {
		index[toppar{p.Topic, p.Partition}] = i
	}

	topicCnt := r.ArrayLen()
	for i := int32(0); i < topicCnt; i++ {
		topic := r.String()
		partCnt := r.ArrayLen()
		for j := int32(0); j < partCnt; j++ {
			partition := r.Int32()
			offset := r.Int64()
			metadata := r.NullableString()
			errCode := r.Int16()

			if offset == -1 {
				offset = OffsetInvalid
			}

			idx, ok := index[toppar{topic, partition}]
			if !ok {
				continue
			}
			results[idx].CommittedOffset = offset
			if metadata != nil {
				results[idx].Metadata = *metadata
			}
			results[idx].Err = kerr.Code(errCode)
		}
	}
	if r.Bad() {
		return nil, ErrBadMsg
	}
	return results, nil
}

// HandleOffsetFetchReply decodes buf (if err is nil and there is one —
// a nil buf with a nil err is the skip-if-no-work short circuit and
// decodes to an empty result set), classifies any failure, and drives
// the retry/refresh response.
func HandleOffsetFetchReply(err error, buf []byte, want []OffsetFetchPartition, env *Envelope, cfg *Config, collabs Collaborators) ([]OffsetFetchPartition, DriverResult) {
	if err == nil && buf == nil {
		return nil, ResultCompleted
	}
	var results []OffsetFetchPartition
	if err == nil {
		results, err = DecodeOffsetFetchReply(buf, want)
	}
	action := Classify(err, env.Overrides, env != nil)
	dr := Act(env, err, action, cfg, collabs, "offset fetch reply")
	return results, dr
}
