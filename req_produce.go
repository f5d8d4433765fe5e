package kreq

import (
	"time"

	"github.com/relaycore/kreq/kbin"
	"github.com/relaycore/kreq/kerr"
)

// EncodeProduce writes a Produce request body wrapping a pre-built
// record set. Batching, compression, and record framing are the
// caller's MessageSetBuilder's job; this function only writes the
// envelope around it.
//
// Body: i16 required_acks, i32 timeout, i32 TopicArrayCnt=1, string
// topic, i32 PartitionArrayCnt=1, i32 partition, i32 MessageSetSize,
// then the raw record-set bytes verbatim.
func EncodeProduce(w *kbin.Writer, requiredAcks int16, timeoutMs int32, topic string, partition int32, recordSet []byte) {
	w.WriteInt16(requiredAcks)
	w.WriteInt32(timeoutMs)
	w.WriteInt32(1) // TopicArrayCnt
	w.WriteNonNullStr(topic)
	w.WriteInt32(1) // PartitionArrayCnt
	w.WriteInt32(partition)
	w.WriteInt32(int32(len(recordSet)))
	w.WriteSlice(recordSet)
}

// produceDeadline derives a Produce envelope's absolute deadline from
// the message-set builder's reported first-message deadline: if that
// deadline has already passed by the time the request is built, a
// 100ms grace window is granted so the request is still sent once
// rather than failing before it ever reaches the wire.
func produceDeadline(now, firstMessageDeadline time.Time) time.Time {
	if firstMessageDeadline.Before(now) {
		return now.Add(100 * time.Millisecond)
	}
	return firstMessageDeadline
}

// BuildProduce asks builder for the finished record set, then wraps it
// in a Produce envelope. requiredAcks == 0 marks the envelope
// NoResponse: a fire-and-forget request that never enters a broker's
// in-flight map and whose reply path is never invoked.
func BuildProduce(cfg *Config, versions *ApiVersions, topic string, partition int32, requiredAcks int16, timeoutMs int32, codec CompressionCodec, builder MessageSetBuilder, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyProduce, 0, 2, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	recordSet, firstMessageDeadline, _ := builder.Build(v, codec)

	var w kbin.Writer
	EncodeProduce(&w, requiredAcks, timeoutMs, topic, partition, recordSet)

	env := NewEnvelope(ApiKeyProduce, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Deadline = produceDeadline(now, firstMessageDeadline)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.NoResponse = requiredAcks == 0
	env.Topic = topic
	env.Partition = partition
	env.Refresh = RefreshTopic
	return env, nil
}

// ProduceResult is the decoded outcome of a Produce reply, with
// per-message offsets and log-append timestamps already assigned
// according to produceOffsetReport.
type ProduceResult struct {
	Partition         int32
	Err               error
	BaseOffset        int64
	ThrottleMs        int32
	MessageOffsets    []int64
	MessageTimestamps []int64
}

// DecodeProduceReply parses a Produce response body. Exactly one topic
// and one partition are expected; any other shape means the broker
// replied to a request this client never sent in that form, and is
// treated as BadMsg rather than silently taking the first entry.
func DecodeProduceReply(v int16, buf []byte, count int32, produceOffsetReport bool) (*ProduceResult, error) {
	r := kbin.Reader{Src: buf}

	if topicCnt := r.ArrayLen(); topicCnt != 1 {
		return nil, ErrBadMsg
	}
	_ = r.String() // topic; the caller already knows which one it asked about
	if partCnt := r.ArrayLen(); partCnt != 1 {
		return nil, ErrBadMsg
	}

	partition := r.Int32()
	errCode := r.Int16()
	baseOffset := r.Int64()

	var logAppendTime int64 = -1
	if v >= 2 {
		logAppendTime = r.Int64()
	}
	var throttle int32
	if v >= 1 {
		throttle = r.Int32()
	}
	if r.Bad() {
		return nil, ErrBadMsg
	}

	offsets, timestamps := assignProduceOffsets(baseOffset, logAppendTime, count, produceOffsetReport)

	return &ProduceResult{
		Partition:         partition,
		Err:               kerr.Code(errCode),
		BaseOffset:        baseOffset,
		ThrottleMs:        throttle,
		MessageOffsets:    offsets,
		MessageTimestamps: timestamps,
	}, nil
}

// assignProduceOffsets implements spec.md §4.4's offset-assignment
// rule: either every message in the batch gets an incrementing offset
// (and the batch's log-append timestamp), or only the tail message
// does, with offset = base + count - 1.
func assignProduceOffsets(baseOffset, logAppendTime int64, count int32, allOffsets bool) (offsets, timestamps []int64) {
	offsets = make([]int64, count)
	timestamps = make([]int64, count)
	if allOffsets {
		for i := int32(0); i < count; i++ {
			offsets[i] = baseOffset + int64(i)
			timestamps[i] = logAppendTime
		}
		return offsets, timestamps
	}
	if count > 0 {
		offsets[count-1] = baseOffset + int64(count) - 1
		timestamps[count-1] = logAppendTime
	}
	return offsets, timestamps
}

// HandleProduceReply decodes buf (if err is nil), reports any throttle
// delay to the collaborator's ThrottleObserver, classifies the result,
// and drives the retry/refresh response. A NoResponse envelope never
// reaches this function: its caller has nothing to decode a reply from.
func HandleProduceReply(v int16, err error, buf []byte, count int32, brokerID int32, env *Envelope, cfg *Config, collabs Collaborators) (*ProduceResult, DriverResult) {
	var result *ProduceResult
	if err == nil {
		result, err = DecodeProduceReply(v, buf, count, cfg.produceOffsetReport)
		if result != nil && result.ThrottleMs > 0 {
			collabs.Throttle.Observe(brokerID, result.ThrottleMs)
		}
		if result != nil && err == nil {
			err = result.Err
		}
	}
	action := Classify(err, env.Overrides, env != nil)
	dr := Act(env, err, action, cfg, collabs, "produce reply")
	return result, dr
}
