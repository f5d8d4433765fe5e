package kreq

import (
	"sort"
	"time"

	"github.com/relaycore/kreq/kbin"
	"github.com/relaycore/kreq/kerr"
)

// OffsetPartition is one partition's request (or result) in a ListOffsets
// call. TimestampOrOffset is the lookup key sent to the broker (a unix-ms
// timestamp on v1, or a sentinel like -1/-2 on v0); on a decoded result
// it's overwritten with the resolved offset.
type OffsetPartition struct {
	Topic             string
	Partition         int32
	TimestampOrOffset int64

	// Populated by DecodeOffsetReply.
	Err error
}

// EncodeOffset writes a ListOffsets request body for version v. Input
// partitions are sorted by topic first so that identical-topic runs can
// be emitted under a single topic header (spec.md §4.3); the caller's
// slice is not mutated.
//
// Body: i32 ReplicaId=-1, i32 TopicCnt, then per topic: string topic,
// i32 PartCnt, per partition: i32 partition, i64 timestamp_or_offset,
// and on v=0 only, i32 max_offsets=1.
func EncodeOffset(w *kbin.Writer, v int16, partitions []OffsetPartition) {
	sorted := make([]OffsetPartition, len(partitions))
	copy(sorted, partitions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Topic < sorted[j].Topic })

	w.WriteInt32(-1) // ReplicaId
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
			w.WriteInt64(sorted[k].TimestampOrOffset)
			if v == 0 {
				w.WriteInt32(1) // max_offsets
			}
		}
		w.FinishArray(partCntTok, j-i)
		topicCnt++
		i = j
	}
	w.FinishArray(topicCntTok, topicCnt)
}

// BuildOffset negotiates a version (setting FeatureOffsetTime iff v==1,
// spec.md §4.3) and returns a ready-to-send envelope for a ListOffsets
// request.
func BuildOffset(cfg *Config, versions *ApiVersions, partitions []OffsetPartition, route ReplyRoute, now time.Time) (*Envelope, FeatureBits, error) {
	v, feats := Negotiate(ApiKeyOffset, 0, 1, versions)
	if v < 0 {
		return nil, 0, ErrUnsupportedFeature
	}

	var w kbin.Writer
	EncodeOffset(&w, v, partitions)

	env := NewEnvelope(ApiKeyOffset, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Deadline = now.Add(cfg.socketTimeout)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.Refresh = RefreshTopic
	return env, feats, nil
}

// DecodeOffsetReply parses a ListOffsets response body and re-associates
// each decoded (topic, partition) with the caller-supplied want list by
// lookup, never by position, because the broker may return results in a
// different order or grouping than requested (spec.md §4.4). On v=0 only
// the first of OffsetArrayCnt offsets is retained; on v=1 a timestamp
// precedes the single offset.
func DecodeOffsetReply(v int16, buf []byte, want []OffsetPartition) ([]OffsetPartition, error) {
	r := kbin.Reader{Src: buf}
	results := make([]OffsetPartition, len(want))
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
			errCode := r.Int16()

			var offset int64
			if v == 0 {
				offCnt := r.ArrayLen()
				for k := int32(0); k < offCnt; k++ {
					got := r.Int64()
					if k == 0 {
						offset = got
					}
				}
			} else {
				_ = r.Int64() // timestamp, not surfaced on this call
				offset = r.Int64()
			}

			idx, ok := index[toppar{topic, partition}]
			if !ok {
				continue // not in the caller's list; dropped, not synthesized
			}
			results[idx].TimestampOrOffset = offset
			results[idx].Err = kerr.Code(errCode)
		}
	}
	if r.Bad() {
		return nil, ErrBadMsg
	}
	return results, nil
}

// HandleOffsetReply decodes buf (if err is nil), classifies any
// transport-level failure, and drives the retry/refresh response. It
// returns the decoded, re-associated results alongside the driver's
// verdict; results is nil unless decoding succeeded.
func HandleOffsetReply(v int16, err error, buf []byte, want []OffsetPartition, env *Envelope, cfg *Config, collabs Collaborators) ([]OffsetPartition, DriverResult) {
	var results []OffsetPartition
	if err == nil {
		results, err = DecodeOffsetReply(v, buf, want)
	}
	action := Classify(err, env.Overrides, env != nil)
	dr := Act(env, err, action, cfg, collabs, "offset reply")
	return results, dr
}

type toppar struct {
	topic     string
	partition int32
}
