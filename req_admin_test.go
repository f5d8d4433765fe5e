package kreq

import (
	"testing"
	"time"

	"github.com/relaycore/kreq/kbin"
)

func strPtr(s string) *string { return &s }

func TestEncodeNewTopicsLayout(t *testing.T) {
	var w kbin.Writer
	encodeNewTopics(&w, []NewTopic{
		{
			Topic:             "orders",
			NumPartitions:     3,
			ReplicationFactor: 2,
			Configs:           []ConfigEntry{{Name: "retention.ms", Value: strPtr("60000")}},
		},
	})

	r := kbin.Reader{Src: w.Bytes()}
	if cnt := r.ArrayLen(); cnt != 1 {
		t.Fatalf("topic count = %d, want 1", cnt)
	}
	if got := r.String(); got != "orders" {
		t.Fatalf("topic = %q", got)
	}
	if got := r.Int32(); got != 3 {
		t.Fatalf("num_partitions = %d, want 3", got)
	}
	if got := r.Int16(); got != 2 {
		t.Fatalf("replication_factor = %d, want 2", got)
	}
	if cnt := r.ArrayLen(); cnt != 0 {
		t.Fatalf("replica assignment count = %d, want 0", cnt)
	}
	if cnt := r.ArrayLen(); cnt != 1 {
		t.Fatalf("config count = %d, want 1", cnt)
	}
	if got := r.String(); got != "retention.ms" {
		t.Fatalf("config name = %q", got)
	}
	if got := r.NullableString(); got == nil || *got != "60000" {
		t.Fatalf("config value = %v, want 60000", got)
	}
	if err := r.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestEncodeNewTopicsWithReplicaAssignmentForcesNegativeOnes(t *testing.T) {
	var w kbin.Writer
	encodeNewTopics(&w, []NewTopic{
		{
			Topic:             "pinned",
			NumPartitions:     5, // should be ignored on the wire
			ReplicationFactor: 3, // should be ignored on the wire
			ReplicaAssignments: []ReplicaAssignment{
				{Partition: 0, Replicas: []int32{1, 2}},
				{Partition: 1, Replicas: []int32{2, 3}},
			},
		},
	})

	r := kbin.Reader{Src: w.Bytes()}
	r.ArrayLen() // topic count
	_ = r.String()   // topic
	if got := r.Int32(); got != -1 {
		t.Fatalf("num_partitions = %d, want -1 when a replica assignment is given", got)
	}
	if got := r.Int16(); got != -1 {
		t.Fatalf("replication_factor = %d, want -1 when a replica assignment is given", got)
	}
	if cnt := r.ArrayLen(); cnt != 2 {
		t.Fatalf("assignment count = %d, want 2", cnt)
	}
	if p := r.Int32(); p != 0 {
		t.Fatalf("first assignment partition = %d, want 0", p)
	}
	if cnt := r.ArrayLen(); cnt != 2 {
		t.Fatalf("first assignment replica count = %d, want 2", cnt)
	}
}

func TestEncodeDeleteTopicsLayout(t *testing.T) {
	var w kbin.Writer
	encodeDeleteTopics(&w, []string{"a", "b"})

	r := kbin.Reader{Src: w.Bytes()}
	if cnt := r.ArrayLen(); cnt != 2 {
		t.Fatalf("topic count = %d, want 2", cnt)
	}
	if got := r.String(); got != "a" {
		t.Fatalf("first topic = %q", got)
	}
	if got := r.String(); got != "b" {
		t.Fatalf("second topic = %q", got)
	}
	if err := r.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestEncodeNewPartitionsListLetsBrokerChooseReplicas(t *testing.T) {
	var w kbin.Writer
	encodeNewPartitionsList(&w, []NewPartitions{{Topic: "t", TotalCount: 6}})

	r := kbin.Reader{Src: w.Bytes()}
	r.ArrayLen() // topic count
	_ = r.String()   // topic
	if got := r.Int32(); got != 6 {
		t.Fatalf("total_count = %d, want 6", got)
	}
	if got := r.Int32(); got != -1 {
		t.Fatalf("assignment count = %d, want -1 (broker chooses)", got)
	}
}

func TestEncodeConfigResourcesRejectsNonSetBelowIncrementalVersion(t *testing.T) {
	var w kbin.Writer
	err := encodeConfigResources(&w, 0, []ConfigResource{
		{Type: ResourceTopic, Name: "t", Configs: []AlterConfigEntry{
			{ConfigEntry: ConfigEntry{Name: "cleanup.policy", Value: strPtr("compact")}, Op: AlterConfigDelete},
		}},
	})
	if err != ErrInvalidArg {
		t.Fatalf("err = %v, want ErrInvalidArg", err)
	}
}

func TestEncodeConfigResourcesWritesOpAtIncrementalVersion(t *testing.T) {
	var w kbin.Writer
	err := encodeConfigResources(&w, 1, []ConfigResource{
		{Type: ResourceTopic, Name: "t", Configs: []AlterConfigEntry{
			{ConfigEntry: ConfigEntry{Name: "cleanup.policy", Value: strPtr("compact")}, Op: AlterConfigDelete},
		}},
	})
	if err != nil {
		t.Fatalf("encodeConfigResources: %v", err)
	}

	r := kbin.Reader{Src: w.Bytes()}
	r.ArrayLen() // resource count
	if got := r.Int8(); got != int8(ResourceTopic) {
		t.Fatalf("resource_type = %d, want %d", got, ResourceTopic)
	}
	_ = r.String()   // resource name
	r.ArrayLen() // config count
	_ = r.String()   // config name
	r.NullableString() // config value
	if got := r.Int8(); got != int8(AlterConfigDelete) {
		t.Fatalf("op = %d, want %d", got, AlterConfigDelete)
	}
}

func TestEncodeDescribeConfigsResourcesEmptyNamesMeansAll(t *testing.T) {
	var w kbin.Writer
	encodeDescribeConfigsResources(&w, []DescribeConfigsResource{{Type: ResourceTopic, Name: "t"}})

	r := kbin.Reader{Src: w.Bytes()}
	r.ArrayLen() // resource count
	r.Int8()     // resource_type
	_ = r.String()   // resource name
	if got := r.Int32(); got != -1 {
		t.Fatalf("config count = %d, want -1 (fetch all)", got)
	}
}

func TestAdminDeadlineExtendedWhenOpTimeoutExceedsSocketTimeout(t *testing.T) {
	cfg := Opts(SocketTimeout(5 * time.Second))
	now := time.Now()

	deadline := adminDeadline(cfg, now, 30000)
	want := now.Add(31 * time.Second)
	if !deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", deadline, want)
	}
}

func TestAdminDeadlineNotExtendedWhenWithinSocketTimeout(t *testing.T) {
	cfg := Opts(SocketTimeout(30 * time.Second))
	now := time.Now()

	deadline := adminDeadline(cfg, now, 1000)
	want := now.Add(30 * time.Second)
	if !deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", deadline, want)
	}
}

func TestBuildAdminRejectsIncrementalAlterConfigsBelowV1(t *testing.T) {
	cfg := Opts()
	versions := NewApiVersions()
	versions.Set(ApiKeyAlterConfigs, 0, 0)

	_, err := BuildAdmin(cfg, versions, AdminRequest{
		Kind:            AdminAlterConfigs,
		ConfigResources: []ConfigResource{{Type: ResourceTopic, Name: "t"}},
		Incremental:     true,
	}, ReplyRoute{}, time.Now())
	if err != ErrInvalidArg {
		t.Fatalf("err = %v, want ErrInvalidArg", err)
	}
}

func TestBuildAdminAllowsIncrementalAlterConfigsAtV1(t *testing.T) {
	cfg := Opts()
	versions := NewApiVersions()
	versions.Set(ApiKeyAlterConfigs, 0, 1)

	env, err := BuildAdmin(cfg, versions, AdminRequest{
		Kind:            AdminAlterConfigs,
		ConfigResources: []ConfigResource{{Type: ResourceTopic, Name: "t"}},
		Incremental:     true,
	}, ReplyRoute{}, time.Now())
	if err != nil {
		t.Fatalf("BuildAdmin: %v", err)
	}
	if env.ApiVersion != 1 {
		t.Fatalf("ApiVersion = %d, want 1", env.ApiVersion)
	}
}

func TestBuildAdminUnsupportedVersion(t *testing.T) {
	cfg := Opts()
	versions := NewApiVersions() // nothing advertised

	_, err := BuildAdmin(cfg, versions, AdminRequest{
		Kind:      AdminCreateTopics,
		NewTopics: []NewTopic{{Topic: "t", NumPartitions: 1, ReplicationFactor: 1}},
	}, ReplyRoute{}, time.Now())
	if err != ErrUnsupportedFeature {
		t.Fatalf("err = %v, want ErrUnsupportedFeature", err)
	}
}

func TestBuildAdminCreateTopicsRejectsEmptyList(t *testing.T) {
	cfg := Opts()
	versions := NewApiVersions()
	versions.Set(ApiKeyCreateTopics, 0, 2)

	_, err := BuildAdmin(cfg, versions, AdminRequest{Kind: AdminCreateTopics}, ReplyRoute{}, time.Now())
	if err != ErrInvalidArg {
		t.Fatalf("err = %v, want ErrInvalidArg", err)
	}
}

func TestBuildAdminCreateTopicsOmitsValidateOnlyAtV0(t *testing.T) {
	cfg := Opts()
	versions := NewApiVersions()
	versions.Set(ApiKeyCreateTopics, 0, 0)

	env, err := BuildAdmin(cfg, versions, AdminRequest{
		Kind:         AdminCreateTopics,
		NewTopics:    []NewTopic{{Topic: "t", NumPartitions: 1, ReplicationFactor: 1}},
		ValidateOnly: true,
	}, ReplyRoute{}, time.Now())
	if err != nil {
		t.Fatalf("BuildAdmin: %v", err)
	}

	r := kbin.Reader{Src: env.Body}
	r.ArrayLen() // topic count
	_ = r.String()   // topic
	r.Int32()    // num_partitions
	r.Int16()    // replication_factor
	r.ArrayLen() // replica assignment count
	r.ArrayLen() // config count
	r.Int32()    // op_timeout
	if err := r.Complete(); err != nil {
		t.Fatalf("Complete: %v (validate_only should be omitted at v0)", err)
	}
}

func TestHandleAdminReplyReturnsRawBuffer(t *testing.T) {
	cfg := Opts()
	versions := NewApiVersions()
	versions.Set(ApiKeyCreateTopics, 0, 2)

	env, err := BuildAdmin(cfg, versions, AdminRequest{
		Kind:      AdminCreateTopics,
		NewTopics: []NewTopic{{Topic: "t", NumPartitions: 1, ReplicationFactor: 1}},
	}, ReplyRoute{}, time.Now())
	if err != nil {
		t.Fatalf("BuildAdmin: %v", err)
	}

	collabs := Collaborators{
		Broker: fakeBroker{}, Metadata: fakeMetadataHook{}, Group: fakeGroupHook{},
		Throttle: fakeThrottle{}, Clock: fakeClock{time.Now()},
	}
	buf := []byte("raw reply")
	got, dr := HandleAdminReply(nil, buf, env, cfg, collabs)
	if dr != ResultCompleted {
		t.Fatalf("dr = %v, want ResultCompleted", dr)
	}
	if string(got) != "raw reply" {
		t.Fatalf("got = %q, want raw reply", got)
	}
}
