package kreq

import (
	"time"

	"github.com/relaycore/kreq/kbin"
)

// EncodeGroupCoordinator writes a GroupCoordinator (FindCoordinator)
// request body: string group_id.
func EncodeGroupCoordinator(w *kbin.Writer, groupID string) {
	w.WriteNonNullStr(groupID)
}

// BuildGroupCoordinator negotiates a version and returns a ready-to-send
// Flash envelope. Its Refresh target is RefreshGroup, so a Refresh action
// on its reply goes to the group hook (CoordQuery, or CoordDead when
// Special is also set), like the other group requests.
func BuildGroupCoordinator(cfg *Config, versions *ApiVersions, groupID string, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyGroupCoordinator, 0, 0, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	var w kbin.Writer
	EncodeGroupCoordinator(&w, groupID)

	env := NewEnvelope(ApiKeyGroupCoordinator, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Flash = true
	env.Deadline = now.Add(cfg.socketTimeout)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.Refresh = RefreshGroup
	return env, nil
}

// HandleGroupCoordinatorReply classifies and drives the retry/refresh
// response. Decoding the discovered coordinator's node info is the
// group state machine's job (out of scope here).
func HandleGroupCoordinatorReply(err error, env *Envelope, cfg *Config, collabs Collaborators) DriverResult {
	action := Classify(err, env.Overrides, env != nil)
	return Act(env, err, action, cfg, collabs, "group coordinator reply")
}

// BuildListGroups negotiates a version and returns a ready-to-send
// envelope for a ListGroups request, which has no body at all.
func BuildListGroups(cfg *Config, versions *ApiVersions, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyListGroups, 0, 0, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	env := NewEnvelope(ApiKeyListGroups, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Deadline = now.Add(cfg.socketTimeout)
	env.Route = route
	env.Body = nil
	env.State = Enqueued
	env.Refresh = RefreshGroup
	return env, nil
}

// HandleListGroupsReply classifies and drives the retry/refresh
// response.
func HandleListGroupsReply(err error, env *Envelope, cfg *Config, collabs Collaborators) DriverResult {
	action := Classify(err, env.Overrides, env != nil)
	return Act(env, err, action, cfg, collabs, "list groups reply")
}

// EncodeDescribeGroups writes a DescribeGroups request body: i32 count,
// then count group-id strings.
func EncodeDescribeGroups(w *kbin.Writer, groupIDs []string) {
	w.WriteInt32(int32(len(groupIDs)))
	for _, id := range groupIDs {
		w.WriteNonNullStr(id)
	}
}

// BuildDescribeGroups negotiates a version and returns a ready-to-send
// envelope.
func BuildDescribeGroups(cfg *Config, versions *ApiVersions, groupIDs []string, route ReplyRoute, now time.Time) (*Envelope, error) {
	v, _ := Negotiate(ApiKeyDescribeGroups, 0, 0, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}

	var w kbin.Writer
	EncodeDescribeGroups(&w, groupIDs)

	env := NewEnvelope(ApiKeyDescribeGroups, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Deadline = now.Add(cfg.socketTimeout)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	env.Refresh = RefreshGroup
	return env, nil
}

// HandleDescribeGroupsReply classifies and drives the retry/refresh
// response.
func HandleDescribeGroupsReply(err error, env *Envelope, cfg *Config, collabs Collaborators) DriverResult {
	action := Classify(err, env.Overrides, env != nil)
	return Act(env, err, action, cfg, collabs, "describe groups reply")
}
