package kreq

import (
	"sort"
	"time"

	"github.com/relaycore/kreq/kbin"
	"github.com/relaycore/kreq/kerr"
)

// OffsetCommitPartition is one partition's commit (or result) in an
// OffsetCommit call. A negative Offset marks a partition that has
// nothing to commit; EncodeOffsetCommit drops these before writing.
type OffsetCommitPartition struct {
	Topic     string
	Partition int32
	Offset    int64
	Metadata  string

	// Timestamp is only meaningful on v1; -1 marks "use broker time",
	// which is what every v1 commit this engine issues actually sends
	// (spec.md's Open Questions leaves the retention/timestamp knobs
	// unexposed).
	Timestamp int64

	// Populated by DecodeOffsetCommitReply.
	Err error
}

// offsetCommitOverrides is passed to Classify for every OffsetCommit
// reply. RebalanceInProgress means the group is still settling and the
// same commit is worth retrying as-is (Retry only); IllegalGeneration
// means this member's generation is stale, so membership must be
// refreshed before the commit can be retried against the new one
// (Refresh|Retry). spec.md §8 scenario 3 exercises the former.
var offsetCommitOverrides = []Override{
	{Action: ActionRetry, Code: int32(kerr.RebalanceInProgress.Code)},
	{Action: ActionRefresh | ActionRetry, Code: int32(kerr.IllegalGeneration.Code)},
}

// EncodeOffsetCommit writes an OffsetCommit request body for version v.
// Partitions with a negative Offset are filtered out before encoding;
// the caller's slice is not mutated. Returns the number of partitions
// actually written, so BuildOffsetCommit can skip the round trip
// entirely when it's zero.
//
// Body: string group_id, [v>=1: i32 generation_id, string member_id],
// [v==2: i64 retention_time], then topic-grouped partitions: i32
// partition, i64 offset, [v==1: i64 timestamp], string metadata (never
// null: an absent Metadata field encodes as an empty string, not a
// null one, since OffsetFetch and OffsetCommit disagree on this and
// this engine follows the commit side's convention).
func EncodeOffsetCommit(w *kbin.Writer, v int16, groupID string, generationID int32, memberID string, partitions []OffsetCommitPartition) int {
	filtered := make([]OffsetCommitPartition, 0, len(partitions))
	for _, p := range partitions {
		if p.Offset >= 0 {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return 0
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Topic < filtered[j].Topic })

	w.WriteNonNullStr(groupID)
	if v >= 1 {
		w.WriteInt32(generationID)
		w.WriteNonNullStr(memberID)
	}
	if v == 2 {
		w.WriteInt64(-1) // retention_time: broker default
	}

	topicCntTok := w.ReserveArrayLen()
	topicCnt := 0
	for i := 0; i < len(filtered); {
		j := i
		topic := filtered[i].Topic
		for j < len(filtered) && filtered[j].Topic == topic {
			j++
		}
		w.WriteNonNullStr(topic)
		partCntTok := w.ReserveArrayLen()
		for k := i; k < j; k++ {
			p := filtered[k]
			w.WriteInt32(p.Partition)
			w.WriteInt64(p.Offset)
			if v == 1 {
				w.WriteInt64(-1) // timestamp: broker default
			}
			w.WriteNonNullStr(p.Metadata)
		}
		w.FinishArray(partCntTok, j-i)
		topicCnt++
		i = j
	}
	w.FinishArray(topicCntTok, topicCnt)
	return len(filtered)
}

// BuildOffsetCommit filters out negative-offset partitions and, if
// nothing remains to commit, returns a nil envelope and nil error
// without encoding anything: the caller should treat this the same as
// a successful empty commit (spec.md §4.3's "return 0" convention,
// mirrored here as "nothing to send").
func BuildOffsetCommit(cfg *Config, versions *ApiVersions, groupID string, generationID int32, memberID string, partitions []OffsetCommitPartition, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyOffsetCommit, 0, 2, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	var w kbin.Writer
	n := EncodeOffsetCommit(&w, v, groupID, generationID, memberID, partitions)
	if n == 0 {
		return nil, nil
	}

	env := NewEnvelope(ApiKeyOffsetCommit, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Deadline = now.Add(cfg.socketTimeout)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.Refresh = RefreshGroup
	env.Overrides = offsetCommitOverrides
	return env, nil
}

// DecodeOffsetCommitReply parses an OffsetCommit response body,
// matching each per-partition error back to the caller's want list by
// (topic, partition). If every partition failed, the returned error is
// the last per-partition error encountered, so a caller inspecting only
// the top-level error still learns something actionable; a caller that
// wants the full picture should inspect each result's Err.
func DecodeOffsetCommitReply(buf []byte, want []OffsetCommitPartition) ([]OffsetCommitPartition, error) {
	r := kbin.Reader{Src: buf}
	results := make([]OffsetCommitPartition, len(want))
	copy(results, want)

	index := make(map[toppar]int, len(want))
	for i, p := range want {
		index[toppar{p.Topic, p.Partition}] = i
	}

	var lastErr error
	failedCount := 0
	total := 0

	topicCnt := r.ArrayLen()
	for i := int32(0); i < topicCnt; i++ {
		topic := r.String()
		partCnt := r.ArrayLen()
		for j := int32(0); j < partCnt; j++ {
			partition := r.Int32()
			errCode := r.Int16()
			total++

			var perErr error
			if errCode != 0 {
				perErr = kerr.Code(errCode)
				lastErr = perErr
				failedCount++
			}

			idx, ok := index[toppar{topic, partition}]
			if !ok {
				continue
			}
			results[idx].Err = perErr
		}
	}
	if r.Bad() {
		return nil, ErrBadMsg
	}
	if total > 0 && failedCount == total {
		return results, lastErr
	}
	return results, nil
}

// HandleOffsetCommitReply decodes buf (if err is nil), classifies any
// failure against offsetCommitOverrides, and drives the retry/refresh
// response. A nil env (BuildOffsetCommit's "nothing to commit" case)
// short-circuits to ResultCompleted with no decode.
func HandleOffsetCommitReply(err error, buf []byte, want []OffsetCommitPartition, env *Envelope, cfg *Config, collabs Collaborators) ([]OffsetCommitPartition, DriverResult) {
	if env == nil {
		return nil, ResultCompleted
	}
	var results []OffsetCommitPartition
	if err == nil {
		results, err = DecodeOffsetCommitReply(buf, want)
	}
	action := Classify(err, env.Overrides, true)
	dr := Act(env, err, action, cfg, collabs, "offset commit reply")
	return results, dr
}
