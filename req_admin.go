package kreq

import (
	"time"

	"github.com/relaycore/kreq/kbin"
)

// AdminKind identifies which admin API a BuildAdmin call targets. Each
// admin API has its own entity-list wire layout (topics-and-configs for
// CreateTopics, bare topic names for DeleteTopics, and so on); BuildAdmin
// encodes the layout for the request's Kind directly rather than taking
// a pre-encoded blob, since the entity schema is part of the request
// side this engine owns (only the *response* schema is out of scope,
// per spec.md §1's "admin API result parsing beyond what the request
// side requires").
type AdminKind uint8

const (
	AdminCreateTopics AdminKind = iota
	AdminDeleteTopics
	AdminCreatePartitions
	AdminAlterConfigs
	AdminDescribeConfigs
)

type adminShape struct {
	apiKey         ApiKey
	minVer, maxVer int16
}

var adminShapes = map[AdminKind]adminShape{
	AdminCreateTopics:     {apiKey: ApiKeyCreateTopics, minVer: 0, maxVer: 2},
	AdminDeleteTopics:     {apiKey: ApiKeyDeleteTopics, minVer: 0, maxVer: 1},
	AdminCreatePartitions: {apiKey: ApiKeyCreatePartitions, minVer: 0, maxVer: 0},
	AdminAlterConfigs:     {apiKey: ApiKeyAlterConfigs, minVer: 0, maxVer: 1},
	AdminDescribeConfigs:  {apiKey: ApiKeyDescribeConfigs, minVer: 0, maxVer: 1},
}

// createTopicsValidateOnlyMinVer is the first CreateTopics version that
// accepts validate_only; below it the field is omitted entirely rather
// than sent and ignored.
const createTopicsValidateOnlyMinVer = 1

// ReplicaAssignment pins one partition's replica set explicitly. Supplying
// any assignment for a NewTopic forces num_partitions/replication_factor
// to -1 on the wire, since a broker can't honor both at once.
type ReplicaAssignment struct {
	Partition int32
	Replicas  []int32
}

// ConfigEntry is a broker config key/value pair. A nil Value means "use
// the broker's default", encoded as a null string rather than empty.
type ConfigEntry struct {
	Name  string
	Value *string
}

// NewTopic describes one topic for a CreateTopics call.
type NewTopic struct {
	Topic              string
	NumPartitions      int32
	ReplicationFactor  int16
	ReplicaAssignments []ReplicaAssignment
	Configs            []ConfigEntry
}

// NewPartitions describes one topic's partition count increase for a
// CreatePartitions call. ReplicaAssignments, if non-empty, has one
// element per newly added partition (in order); a nil/empty list lets
// the broker choose replicas for all of them.
type NewPartitions struct {
	Topic              string
	TotalCount         int32
	ReplicaAssignments [][]int32
}

// ResourceType identifies what a ConfigResource names (KIP-133).
type ResourceType int8

const (
	ResourceUnknown ResourceType = 0
	ResourceTopic   ResourceType = 2
	ResourceBroker  ResourceType = 4
)

// AlterConfigOp is the per-entry operation an incremental (v1)
// AlterConfigs call applies; ignored (and must be AlterConfigSet) below
// the negotiated incremental threshold.
type AlterConfigOp int8

const (
	AlterConfigSet AlterConfigOp = iota
	AlterConfigDelete
	AlterConfigAppend
	AlterConfigSubtract
)

// AlterConfigEntry is one config change within a ConfigResource.
type AlterConfigEntry struct {
	ConfigEntry
	Op AlterConfigOp
}

// ConfigResource names one resource (a topic or broker) and the config
// entries to alter or describe on it.
type ConfigResource struct {
	Type    ResourceType
	Name    string
	Configs []AlterConfigEntry
}

// DescribeConfigsResource names one resource to describe. An empty
// ConfigNames fetches every configured key for that resource.
type DescribeConfigsResource struct {
	Type        ResourceType
	Name        string
	ConfigNames []string
}

func encodeNewTopics(w *kbin.Writer, topics []NewTopic) {
	cntTok := w.ReserveArrayLen()
	for _, t := range topics {
		w.WriteNonNullStr(t.Topic)
		if len(t.ReplicaAssignments) > 0 {
			w.WriteInt32(-1)
			w.WriteInt16(-1)
		} else {
			w.WriteInt32(t.NumPartitions)
			w.WriteInt16(t.ReplicationFactor)
		}

		assignCntTok := w.ReserveArrayLen()
		for _, ra := range t.ReplicaAssignments {
			w.WriteInt32(ra.Partition)
			replicaCntTok := w.ReserveArrayLen()
			for _, r := range ra.Replicas {
				w.WriteInt32(r)
			}
			w.FinishArray(replicaCntTok, len(ra.Replicas))
		}
		w.FinishArray(assignCntTok, len(t.ReplicaAssignments))

		configCntTok := w.ReserveArrayLen()
		for _, c := range t.Configs {
			w.WriteNonNullStr(c.Name)
			w.WriteStr(c.Value)
		}
		w.FinishArray(configCntTok, len(t.Configs))
	}
	w.FinishArray(cntTok, len(topics))
}

func encodeDeleteTopics(w *kbin.Writer, names []string) {
	cntTok := w.ReserveArrayLen()
	for _, n := range names {
		w.WriteNonNullStr(n)
	}
	w.FinishArray(cntTok, len(names))
}

func encodeNewPartitionsList(w *kbin.Writer, parts []NewPartitions) {
	cntTok := w.ReserveArrayLen()
	for _, p := range parts {
		w.WriteNonNullStr(p.Topic)
		w.WriteInt32(p.TotalCount)
		if len(p.ReplicaAssignments) == 0 {
			w.WriteInt32(-1)
			continue
		}
		assignCntTok := w.ReserveArrayLen()
		for _, replicas := range p.ReplicaAssignments {
			replicaCntTok := w.ReserveArrayLen()
			for _, r := range replicas {
				w.WriteInt32(r)
			}
			w.FinishArray(replicaCntTok, len(replicas))
		}
		w.FinishArray(assignCntTok, len(p.ReplicaAssignments))
	}
	w.FinishArray(cntTok, len(parts))
}

// encodeConfigResources writes AlterConfigs' resource list. Below the
// incremental wire format (v0) every entry must be a plain set; anything
// else is rejected before any bytes are written, since the broker would
// otherwise silently apply the wrong semantics.
func encodeConfigResources(w *kbin.Writer, v int16, resources []ConfigResource) error {
	for _, res := range resources {
		for _, c := range res.Configs {
			if v < 1 && c.Op != AlterConfigSet {
				return ErrInvalidArg
			}
		}
	}

	cntTok := w.ReserveArrayLen()
	for _, res := range resources {
		w.WriteInt8(int8(res.Type))
		w.WriteNonNullStr(res.Name)
		configCntTok := w.ReserveArrayLen()
		for _, c := range res.Configs {
			w.WriteNonNullStr(c.Name)
			w.WriteStr(c.Value)
			if v >= 1 {
				w.WriteInt8(int8(c.Op))
			}
		}
		w.FinishArray(configCntTok, len(res.Configs))
	}
	w.FinishArray(cntTok, len(resources))
	return nil
}

func encodeDescribeConfigsResources(w *kbin.Writer, resources []DescribeConfigsResource) {
	cntTok := w.ReserveArrayLen()
	for _, res := range resources {
		w.WriteInt8(int8(res.Type))
		w.WriteNonNullStr(res.Name)
		if len(res.ConfigNames) == 0 {
			w.WriteInt32(-1)
			continue
		}
		nameCntTok := w.ReserveArrayLen()
		for _, n := range res.ConfigNames {
			w.WriteNonNullStr(n)
		}
		w.FinishArray(nameCntTok, len(res.ConfigNames))
	}
	w.FinishArray(cntTok, len(resources))
}

// AdminRequest describes one admin call. Only the field matching Kind is
// read; the others are ignored.
type AdminRequest struct {
	Kind AdminKind

	NewTopics         []NewTopic
	DeleteTopicNames  []string
	NewPartitions     []NewPartitions
	ConfigResources   []ConfigResource
	DescribeResources []DescribeConfigsResource

	OpTimeoutMs  int32
	ValidateOnly bool

	// Incremental marks an AlterConfigs call as using the incremental
	// (add/delete/set per-key) semantics rather than whole-value
	// replacement. The threshold for which broker versions accept this
	// is unresolved upstream (spec.md §9 Open Questions); this engine
	// stays conservative and rejects it below ApiVersion 1.
	Incremental bool
}

// adminDeadline extends the envelope's absolute deadline to
// op_timeout + 1s when op_timeout exceeds the configured socket
// timeout, so a caller-requested long-running admin operation isn't
// failed locally before the broker even gets to answer (spec.md §4.3).
func adminDeadline(cfg *Config, now time.Time, opTimeoutMs int32) time.Time {
	opTimeout := time.Duration(opTimeoutMs) * time.Millisecond
	if opTimeout > cfg.socketTimeout {
		return now.Add(opTimeout + time.Second)
	}
	return now.Add(cfg.socketTimeout)
}

// BuildAdmin negotiates a version for req.Kind's API, encodes its
// entity list and trailing timeout/validate_only fields in the
// negotiated version's documented layout, and returns a ready-to-send
// envelope whose reply is handed back to the caller undecoded.
func BuildAdmin(cfg *Config, versions *ApiVersions, req AdminRequest, route ReplyRoute, now time.Time) (*Envelope, error) {
	shape, ok := adminShapes[req.Kind]
	if !ok {
		return nil, ErrUnsupportedFeature
	}

	v, _ := Negotiate(shape.apiKey, shape.minVer, shape.maxVer, versions)
	if v < 0 {
		return nil, ErrUnsupportedFeature
	}
	if req.Kind == AdminAlterConfigs && req.Incremental && v < 1 {
		return nil, ErrInvalidArg
	}

	var w kbin.Writer
	switch req.Kind {
	case AdminCreateTopics:
		if len(req.NewTopics) == 0 {
			return nil, ErrInvalidArg
		}
		encodeNewTopics(&w, req.NewTopics)
		w.WriteInt32(req.OpTimeoutMs)
		if v >= createTopicsValidateOnlyMinVer {
			w.WriteBool(req.ValidateOnly)
		}

	case AdminDeleteTopics:
		if len(req.DeleteTopicNames) == 0 {
			return nil, ErrInvalidArg
		}
		encodeDeleteTopics(&w, req.DeleteTopicNames)
		w.WriteInt32(req.OpTimeoutMs)

	case AdminCreatePartitions:
		if len(req.NewPartitions) == 0 {
			return nil, ErrInvalidArg
		}
		encodeNewPartitionsList(&w, req.NewPartitions)
		w.WriteInt32(req.OpTimeoutMs)
		w.WriteBool(req.ValidateOnly)

	case AdminAlterConfigs:
		if len(req.ConfigResources) == 0 {
			return nil, ErrInvalidArg
		}
		if err := encodeConfigResources(&w, v, req.ConfigResources); err != nil {
			return nil, err
		}
		w.WriteInt32(req.OpTimeoutMs)
		w.WriteBool(req.ValidateOnly)

	case AdminDescribeConfigs:
		if len(req.DescribeResources) == 0 {
			return nil, ErrInvalidArg
		}
		encodeDescribeConfigsResources(&w, req.DescribeResources)
		if v == 1 {
			w.WriteBool(true) // include_synonyms
		}
		w.WriteInt32(req.OpTimeoutMs)
	}

	env := NewEnvelope(shape.apiKey, cfg.clientID, cfg.retryCap)
	env.ApiVersion = v
	env.Deadline = adminDeadline(cfg, now, req.OpTimeoutMs)
	env.Route = route
	env.Body = w.Bytes()
	env.State = Enqueued
	return env, nil
}

// HandleAdminReply classifies and drives the retry/refresh response;
// the raw reply buffer is returned to the caller undecoded, as no admin
// API response schema is parsed by this engine.
func HandleAdminReply(err error, buf []byte, env *Envelope, cfg *Config, collabs Collaborators) ([]byte, DriverResult) {
	action := Classify(err, env.Overrides, env != nil)
	dr := Act(env, err, action, cfg, collabs, "admin reply")
	if err != nil {
		return nil, dr
	}
	return buf, dr
}
