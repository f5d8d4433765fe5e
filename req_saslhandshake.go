package kreq

import (
	"time"

	"github.com/relaycore/kreq/kbin"
)

// EncodeSaslHandshake writes a SaslHandshake request body: string
// mechanism.
func EncodeSaslHandshake(w *kbin.Writer, mechanism string) {
	w.WriteNonNullStr(mechanism)
}

// saslHandshakeDeadlineClamp is the ceiling applied when dynamic API
// versioning is off (spec.md §4.3): without version negotiation this
// client has no other signal that it's talking to a broker at all, so
// a configured socket timeout beyond this is clamped down rather than
// leaving the handshake to hang for the full duration.
const saslHandshakeDeadlineClamp = 10 * time.Second

// BuildSaslHandshake returns a NoRetries envelope. If dynamic API
// versioning is disabled and the configured socket timeout exceeds 10s,
// the deadline is clamped to 10s.
func BuildSaslHandshake(cfg *Config, mechanism string, route ReplyRoute, now time.Time) *Envelope {
	var w kbin.Writer
	EncodeSaslHandshake(&w, mechanism)

	deadline := cfg.socketTimeout
	if !cfg.dynamicApiVersioning && deadline > saslHandshakeDeadlineClamp {
		deadline = saslHandshakeDeadlineClamp
	}

	env := NewEnvelope(ApiKeySaslHandshake, cfg.clientID, NoRetries)
	env.ApiVersion = 0
	env.Flash = true
	env.Deadline = now.Add(deadline)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	return env
}

// HandleSaslHandshakeReply classifies and drives the retry/refresh
// response; the mechanism negotiation result itself is opaque to this
// engine (SASL mechanism implementations are out of scope, spec.md §1).
func HandleSaslHandshakeReply(err error, env *Envelope, cfg *Config, collabs Collaborators) DriverResult {
	action := Classify(err, env.Overrides, env != nil)
	return Act(env, err, action, cfg, collabs, "sasl handshake reply")
}
