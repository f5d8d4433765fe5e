package kreq

import (
	"sort"
	"time"

	"github.com/relaycore/kreq/kbin"
	"github.com/relaycore/kreq/kerr"
)

// maxApiVersionEntries bounds how many (ApiKey, min, max) entries an
// ApiVersion reply may contain. A broker that claims more than this is
// not a broker this client trusts to have replied honestly; spec.md §8
// scenario 5 uses this exact rejection to defend against a corrupt or
// hostile length field turning into an unbounded decode loop.
const maxApiVersionEntries = 1000

// EncodeApiVersions writes an ApiVersion request body: i32
// array_count=0, requesting the broker's full advertised table.
func EncodeApiVersions(w *kbin.Writer) {
	w.WriteInt32(0)
}

// BuildApiVersions returns a NoRetries envelope whose deadline is the
// dedicated api_version_request_timeout, independent of the socket
// timeout, because legacy brokers close the connection outright on an
// unrecognized API key rather than replying with an error (spec.md
// §4.3).
func BuildApiVersions(cfg *Config, route ReplyRoute, now time.Time) *Envelope {
	var w kbin.Writer
	EncodeApiVersions(&w)

	env := NewEnvelope(ApiKeyApiVersions, cfg.clientID, NoRetries)
	env.ApiVersion = 0
	env.Flash = true
	env.Deadline = now.Add(cfg.apiVersionRequestTimeout)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	return env
}

// ApiVersionEntry is one decoded (ApiKey, min, max) triple from an
// ApiVersion reply.
type ApiVersionEntry struct {
	Key      ApiKey
	Min, Max int16
}

// DecodeApiVersionsReply parses an ApiVersion response body: i16
// error_code, i32 ApiArrayCnt, then per entry (i16 ApiKey, i16
// MinVersion, i16 MaxVersion). An ApiArrayCnt above maxApiVersionEntries
// is rejected as malformed before any entry is read, and the decoded
// table is sorted by ApiKey ascending so a caller publishing it into an
// ApiVersions tree does so in a predictable order.
func DecodeApiVersionsReply(buf []byte) ([]ApiVersionEntry, error) {
	r := kbin.Reader{Src: buf}
	errCode := r.Int16()
	count := r.ArrayLen()
	if count > maxApiVersionEntries {
		return nil, ErrBadMsg
	}

	entries := make([]ApiVersionEntry, 0, count)
	for i := int32(0); i < count; i++ {
		key := ApiKey(r.Int16())
		min := r.Int16()
		max := r.Int16()
		entries = append(entries, ApiVersionEntry{Key: key, Min: min, Max: max})
	}
	if r.Bad() {
		return nil, ErrBadMsg
	}
	if errCode != 0 {
		return nil, kerr.Code(errCode)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// HandleApiVersionsReply decodes buf and, on success, publishes every
// entry into versions. A malformed or errored reply publishes nothing:
// the table is all-or-nothing, never partially updated.
func HandleApiVersionsReply(err error, buf []byte, versions *ApiVersions, env *Envelope, cfg *Config, collabs Collaborators) ([]ApiVersionEntry, DriverResult) {
	var entries []ApiVersionEntry
	if err == nil {
		entries, err = DecodeApiVersionsReply(buf)
	}
	if err == nil {
		for _, e := range entries {
			versions.Set(e.Key, e.Min, e.Max)
		}
	}
	action := Classify(err, env.Overrides, env != nil)
	dr := Act(env, err, action, cfg, collabs, "api versions reply")
	return entries, dr
}
