package kreq

import (
	"testing"
	"time"

	"github.com/relaycore/kreq/kbin"
	"github.com/relaycore/kreq/kerr"
)

func TestEncodeOffsetFetchLayout(t *testing.T) {
	var w kbin.Writer
	EncodeOffsetFetch(&w, 1, "g", []OffsetFetchPartition{
		{Topic: "t", Partition: 0, CurrentOffset: OffsetInvalid},
	})

	r := kbin.Reader{Src: w.Bytes()}
	if got := r.String(); got != "g" {
		t.Fatalf("group_id = %q", got)
	}
	if n := r.ArrayLen(); n != 1 {
		t.Fatalf("TopicCnt = %d, want 1", n)
	}
	if topic := r.String(); topic != "t" {
		t.Fatalf("topic = %q", topic)
	}
	if n := r.ArrayLen(); n != 1 {
		t.Fatalf("PartCnt = %d, want 1", n)
	}
	if p := r.Int32(); p != 0 {
		t.Fatalf("partition = %d, want 0", p)
	}
	if err := r.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

// TestBuildOffsetFetchScenario2 is spec.md §8 concrete scenario 2.
func TestBuildOffsetFetchScenario2(t *testing.T) {
	cfg := Opts()
	versions := NewApiVersions()
	versions.Set(ApiKeyOffsetFetch, 0, 1)
	now := time.Now()

	queue := make(chan Result, 1)
	route := ReplyRoute{Queue: queue, Epoch: 1}

	env, err := BuildOffsetFetch(cfg, versions, "g", []OffsetFetchPartition{
		{Topic: "t", Partition: 0, CurrentOffset: OffsetInvalid},
		{Topic: "t", Partition: 1, CurrentOffset: 12345},
	}, route, now)
	if err != nil {
		t.Fatalf("BuildOffsetFetch: %v", err)
	}
	if env == nil {
		t.Fatal("expected a non-nil envelope when at least one partition needs fetching")
	}

	r := kbin.Reader{Src: env.Body}
	_ = r.String()   // group_id
	if n := r.ArrayLen(); n != 1 {
		t.Fatalf("TopicCnt = %d, want 1 (only t/0 should be requested)", n)
	}
	_ = r.String()   // topic
	if n := r.ArrayLen(); n != 1 {
		t.Fatalf("PartCnt = %d, want 1", n)
	}
	if p := r.Int32(); p != 0 {
		t.Fatalf("partition = %d, want 0 (partition 1 should have been filtered out)", p)
	}
}

func TestBuildOffsetFetchAllSatisfiedSendsNothing(t *testing.T) {
	cfg := Opts()
	versions := NewApiVersions()
	versions.Set(ApiKeyOffsetFetch, 0, 1)
	now := time.Now()

	queue := make(chan Result, 1)
	route := ReplyRoute{Queue: queue, Epoch: 1}

	env, err := BuildOffsetFetch(cfg, versions, "g", []OffsetFetchPartition{
		{Topic: "t", Partition: 0, CurrentOffset: 12345},
		{Topic: "t", Partition: 1, CurrentOffset: 12345},
	}, route, now)
	if err != nil {
		t.Fatalf("BuildOffsetFetch: %v", err)
	}
	if env != nil {
		t.Fatal("expected a nil envelope when every partition already has a usable offset")
	}

	select {
	case res := <-queue:
		if res.Err != nil || res.Reply != nil {
			t.Fatalf("synchronous short-circuit reply should be empty, got %+v", res)
		}
	default:
		t.Fatal("expected a synchronous empty reply on the route's queue")
	}
}

func TestDecodeOffsetFetchReplyNormalizesNegativeOneToInvalid(t *testing.T) {
	want := []OffsetFetchPartition{{Topic: "t", Partition: 0, CurrentOffset: OffsetInvalid}}

	var w kbin.Writer
	w.WriteInt32(1)
	w.WriteNonNullStr("t")
	w.WriteInt32(1)
	w.WriteInt32(0)
	w.WriteInt64(-1)
	w.WriteStr(nil)
	w.WriteInt16(0)

	got, err := DecodeOffsetFetchReply(w.Bytes(), want)
	if err != nil {
		t.Fatalf("DecodeOffsetFetchReply: %v", err)
	}
	if got[0].CommittedOffset != OffsetInvalid {
		t.Fatalf("CommittedOffset = %d, want OffsetInvalid", got[0].CommittedOffset)
	}
}

func TestDecodeOffsetFetchReplyDropsUnrequestedPartitions(t *testing.T) {
	want := []OffsetFetchPartition{{Topic: "t", Partition: 0, CurrentOffset: OffsetInvalid}}

	var w kbin.Writer
	w.WriteInt32(1)
	w.WriteNonNullStr("t")
	w.WriteInt32(1)
	w.WriteInt32(5) // a partition never asked about
	w.WriteInt64(100)
	w.WriteStr(nil)
	w.WriteInt16(0)

	got, err := DecodeOffsetFetchReply(w.Bytes(), want)
	if err != nil {
		t.Fatalf("DecodeOffsetFetchReply: %v", err)
	}
	if got[0].CommittedOffset != 0 {
		t.Fatalf("unrelated partition result should not overwrite the caller's entry, got %d", got[0].CommittedOffset)
	}
}

func TestHandleOffsetFetchReplySkipShortCircuit(t *testing.T) {
	results, dr := HandleOffsetFetchReply(nil, nil, nil, nil, Opts(), Collaborators{})
	if dr != ResultCompleted {
		t.Fatalf("dr = %v, want ResultCompleted", dr)
	}
	if results != nil {
		t.Fatalf("results = %v, want nil", results)
	}
}

func TestHandleOffsetFetchReplyDecodesAndClassifies(t *testing.T) {
	want := []OffsetFetchPartition{{Topic: "t", Partition: 0, CurrentOffset: OffsetInvalid}}

	var w kbin.Writer
	w.WriteInt32(1)
	w.WriteNonNullStr("t")
	w.WriteInt32(1)
	w.WriteInt32(0)
	w.WriteInt64(42)
	w.WriteStr(nil)
	w.WriteInt16(int16(kerr.GroupAuthorizationFailed.Code))

	env := NewEnvelope(ApiKeyOffsetFetch, nil, 0)
	env.Refresh = RefreshGroup
	collabs := Collaborators{
		Broker: fakeBroker{}, Metadata: fakeMetadataHook{}, Group: fakeGroupHook{},
		Throttle: fakeThrottle{}, Clock: fakeClock{time.Now()},
	}

	results, dr := HandleOffsetFetchReply(nil, w.Bytes(), want, env, Opts(), collabs)
	if dr != ResultCompleted {
		t.Fatalf("dr = %v, want ResultCompleted", dr)
	}
	if results[0].Err == nil {
		t.Fatal("expected partition 0 to carry its per-partition error")
	}
}
