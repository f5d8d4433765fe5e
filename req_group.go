package kreq

import (
	"time"

	"github.com/relaycore/kreq/kbin"
	"github.com/relaycore/kreq/kerr"
)

// GroupProtocol is one assignor a JoinGroup call advertises: a name the
// coordinator picks among, and opaque per-assignor metadata.
type GroupProtocol struct {
	Name     string
	Metadata []byte
}

// blockingDeadline derives the deadline shared by JoinGroup and
// SyncGroup: the session timeout plus a grace window, since the
// coordinator itself may legitimately hold the request open for up to
// the session timeout while it waits on other members (spec.md §4.3).
func blockingDeadline(now time.Time, sessionTimeoutMs int32) time.Time {
	return now.Add(time.Duration(sessionTimeoutMs)*time.Millisecond + 3*time.Second)
}

// EncodeJoinGroup writes a JoinGroup request body: string group_id, i32
// session_timeout_ms, string member_id, string protocol_type, i32
// n_protocols, then per protocol (string name, bytes metadata).
func EncodeJoinGroup(w *kbin.Writer, groupID string, sessionTimeoutMs int32, memberID, protocolType string, protocols []GroupProtocol) {
	w.WriteNonNullStr(groupID)
	w.WriteInt32(sessionTimeoutMs)
	w.WriteNonNullStr(memberID)
	w.WriteNonNullStr(protocolType)
	w.WriteInt32(int32(len(protocols)))
	for _, p := range protocols {
		w.WriteNonNullStr(p.Name)
		w.WriteBytes(p.Metadata, false)
	}
}

// BuildJoinGroup negotiates a version and returns a Blocking envelope
// whose deadline covers the coordinator's own wait for other members
// to join.
func BuildJoinGroup(cfg *Config, versions *ApiVersions, groupID string, sessionTimeoutMs int32, memberID, protocolType string, protocols []GroupProtocol, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyJoinGroup, 0, 1, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	var w kbin.Writer
	EncodeJoinGroup(&w, groupID, sessionTimeoutMs, memberID, protocolType, protocols)

	env := NewEnvelope(ApiKeyJoinGroup, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Blocking = true
	env.Deadline = blockingDeadline(now, sessionTimeoutMs)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.Refresh = RefreshGroup
	return env, nil
}

// HandleJoinGroupReply classifies any failure and drives the
// retry/refresh response; decoding the member list and chosen protocol
// is the consumer-group state machine's job (out of scope here).
func HandleJoinGroupReply(err error, env *Envelope, cfg *Config, collabs Collaborators) DriverResult {
	action := Classify(err, env.Overrides, env != nil)
	return Act(env, err, action, cfg, collabs, "join group reply")
}

// GroupAssignment is one member's assignment in a SyncGroup call, sent
// only by the group leader; every other member sends an empty slice.
type GroupAssignment struct {
	MemberID    string
	MemberState []byte
}

// AssignmentTopicPartitions is a single member's decoded assignment
// payload, used to build a MemberState blob with EncodeMemberState.
type AssignmentTopicPartitions struct {
	Topic      string
	Partitions []int32
}

// EncodeMemberState builds a SyncGroup member-state blob in a scratch
// buffer: i16 version=0, topic-grouped partition list, bytes user_data.
// The caller embeds the returned bytes verbatim as one GroupAssignment's
// MemberState.
func EncodeMemberState(assignment []AssignmentTopicPartitions, userData []byte) []byte {
	var w kbin.Writer
	w.WriteInt16(0) // version

	topicCntTok := w.ReserveArrayLen()
	for _, t := range assignment {
		w.WriteNonNullStr(t.Topic)
		partCntTok := w.ReserveArrayLen()
		for _, p := range t.Partitions {
			w.WriteInt32(p)
		}
		w.FinishArray(partCntTok, len(t.Partitions))
	}
	w.FinishArray(topicCntTok, len(assignment))

	w.WriteBytes(userData, userData == nil)
	return w.Bytes()
}

// EncodeSyncGroup writes a SyncGroup request body: string group_id, i32
// generation_id, string member_id, i32 n_assignments, then per
// assignment (string member_id, bytes member_state).
func EncodeSyncGroup(w *kbin.Writer, groupID string, generationID int32, memberID string, assignments []GroupAssignment) {
	w.WriteNonNullStr(groupID)
	w.WriteInt32(generationID)
	w.WriteNonNullStr(memberID)
	w.WriteInt32(int32(len(assignments)))
	for _, a := range assignments {
		w.WriteNonNullStr(a.MemberID)
		w.WriteBytes(a.MemberState, a.MemberState == nil)
	}
}

// BuildSyncGroup negotiates a version and returns a Blocking envelope,
// the same deadline shape as JoinGroup.
func BuildSyncGroup(cfg *Config, versions *ApiVersions, groupID string, generationID int32, memberID string, sessionTimeoutMs int32, assignments []GroupAssignment, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeySyncGroup, 0, 1, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	var w kbin.Writer
	EncodeSyncGroup(&w, groupID, generationID, memberID, assignments)

	env := NewEnvelope(ApiKeySyncGroup, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Blocking = true
	env.Deadline = blockingDeadline(now, sessionTimeoutMs)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.Refresh = RefreshGroup
	return env, nil
}

// JoinState mirrors the consumer-group join-state machine far enough
// for the SyncGroup reply gate (spec.md §4.7): only WaitSync accepts a
// SyncGroup reply as meaningful.
type JoinState uint8

const (
	JoinStateUnjoined JoinState = iota
	JoinStateWaitJoin
	JoinStateWaitSync
	JoinStateStable
)

// DecodeSyncGroupReply parses a SyncGroup response body: i16 error_code,
// bytes member_state.
func DecodeSyncGroupReply(buf []byte) (memberState []byte, err error) {
	r := kbin.Reader{Src: buf}
	errCode := r.Int16()
	state := r.Bytes()
	if r.Bad() {
		return nil, ErrBadMsg
	}
	if errCode != 0 {
		return nil, kerr.Code(errCode)
	}
	return state, nil
}

// HandleSyncGroupReply discards the reply outright, without decoding or
// classifying, if the group has moved past WaitSync by the time the
// reply arrives (spec.md §4.7, §8 scenario 6): a stale reply is not an
// error, it is simply irrelevant.
func HandleSyncGroupReply(currentState JoinState, err error, buf []byte, env *Envelope, cfg *Config, collabs Collaborators) ([]byte, DriverResult) {
	if currentState != JoinStateWaitSync {
		return nil, ResultSilent
	}
	var memberState []byte
	if err == nil {
		memberState, err = DecodeSyncGroupReply(buf)
	}
	action := Classify(err, env.Overrides, env != nil)
	dr := Act(env, err, action, cfg, collabs, "sync group reply")
	return memberState, dr
}

// EncodeHeartbeat writes a Heartbeat request body: string group_id, i32
// generation_id, string member_id.
func EncodeHeartbeat(w *kbin.Writer, groupID string, generationID int32, memberID string) {
	w.WriteNonNullStr(groupID)
	w.WriteInt32(generationID)
	w.WriteNonNullStr(memberID)
}

// BuildHeartbeat negotiates a version and returns an envelope whose
// deadline is exactly the session timeout: a heartbeat that takes
// longer than that to answer has already lost its session.
func BuildHeartbeat(cfg *Config, versions *ApiVersions, groupID string, generationID int32, memberID string, sessionTimeoutMs int32, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyHeartbeat, 0, 0, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	var w kbin.Writer
	EncodeHeartbeat(&w, groupID, generationID, memberID)

	env := NewEnvelope(ApiKeyHeartbeat, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Deadline = now.Add(time.Duration(sessionTimeoutMs) * time.Millisecond)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.Refresh = RefreshGroup
	return env, nil
}

// HandleHeartbeatReply classifies and drives the retry/refresh response.
func HandleHeartbeatReply(err error, env *Envelope, cfg *Config, collabs Collaborators) DriverResult {
	action := Classify(err, env.Overrides, env != nil)
	return Act(env, err, action, cfg, collabs, "heartbeat reply")
}

// EncodeLeaveGroup writes a LeaveGroup request body: string group_id,
// string member_id.
func EncodeLeaveGroup(w *kbin.Writer, groupID, memberID string) {
	w.WriteNonNullStr(groupID)
	w.WriteNonNullStr(memberID)
}

// BuildLeaveGroup negotiates a version and returns a ready-to-send
// envelope.
func BuildLeaveGroup(cfg *Config, versions *ApiVersions, groupID, memberID string, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyLeaveGroup, 0, 0, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	var w kbin.Writer
	EncodeLeaveGroup(&w, groupID, memberID)

	env := NewEnvelope(ApiKeyLeaveGroup, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Deadline = now.Add(cfg.socketTimeout)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.Refresh = RefreshGroup
	return env, nil
}

// HandleLeaveGroupReply classifies and drives the retry/refresh
// response.
func HandleLeaveGroupReply(err error, env *Envelope, cfg *Config, collabs Collaborators) DriverResult {
	action := Classify(err, env.Overrides, env != nil)
	return Act(env, err, action, cfg, collabs, "leave group reply")
}
