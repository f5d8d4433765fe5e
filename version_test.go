package kreq

import "testing"

func TestNegotiatePicksHighestOverlap(t *testing.T) {
	versions := NewApiVersions()
	versions.Set(ApiKeyOffset, 0, 5)

	v, feats := Negotiate(ApiKeyOffset, 0, 2, versions)
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}
	if feats&FeatureOffsetTime == 0 {
		t.Fatalf("expected FeatureOffsetTime set for v=%d", v)
	}

	v, feats = Negotiate(ApiKeyOffset, 0, 0, versions)
	if v != 0 {
		t.Fatalf("expected version 0, got %d", v)
	}
	if feats&FeatureOffsetTime != 0 {
		t.Fatalf("FeatureOffsetTime should not be set for v=0")
	}
}

func TestNegotiateNoOverlapReturnsNegativeOne(t *testing.T) {
	versions := NewApiVersions()
	versions.Set(ApiKeyMetadata, 3, 5)

	v, feats := Negotiate(ApiKeyMetadata, 0, 2, versions)
	if v != -1 {
		t.Fatalf("expected -1 for non-overlapping ranges, got %d", v)
	}
	if feats != 0 {
		t.Fatalf("expected no feature bits on failed negotiation")
	}
}

func TestNegotiateUnknownApiKey(t *testing.T) {
	versions := NewApiVersions()
	v, _ := Negotiate(ApiKeyCreateTopics, 0, 3, versions)
	if v != -1 {
		t.Fatalf("expected -1 for an ApiKey the broker never advertised, got %d", v)
	}
}

func TestApiVersionsSetOverwrites(t *testing.T) {
	versions := NewApiVersions()
	versions.Set(ApiKeyProduce, 0, 3)
	versions.Set(ApiKeyProduce, 0, 7)

	min, max, ok := versions.Lookup(ApiKeyProduce)
	if !ok || min != 0 || max != 7 {
		t.Fatalf("expected overwritten range [0,7], got [%d,%d] ok=%v", min, max, ok)
	}
}
