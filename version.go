package kreq

import (
	"sync"

	"github.com/twmb/go-rbtree"
)

// FeatureBits is a per-negotiation bitmask of version-gated capabilities
// a caller needs to check before using an optional field.
type FeatureBits uint32

const (
	// FeatureOffsetTime is set when the negotiated Offset (ListOffsets)
	// version supports timestamp-based lookups (v >= 1).
	FeatureOffsetTime FeatureBits = 1 << iota
)

// apiVersionEntry is one ApiKey's broker-advertised [min,max] range, the
// rbtree.Item stored in an ApiVersions tree.
type apiVersionEntry struct {
	key      ApiKey
	min, max int16
}

func (e *apiVersionEntry) Less(other rbtree.Item) bool {
	return e.key < other.(*apiVersionEntry).key
}

// ApiVersions is a broker's advertised {ApiKey -> [min,max]} table. It is
// kept in a red-black tree keyed by ApiKey, grounded on the sticky
// assignor's use of github.com/twmb/go-rbtree for its own by-key lookup
// structure, rather than a plain map, so a future ordered walk (e.g. to
// list every API a broker supports) doesn't require a second sort.
type ApiVersions struct {
	mu   sync.Mutex
	tree rbtree.Tree
}

// NewApiVersions returns an empty table.
func NewApiVersions() *ApiVersions {
	return &ApiVersions{}
}

// Set records (or replaces) the [min,max] range a broker advertised for
// key.
func (v *ApiVersions) Set(key ApiKey, min, max int16) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := v.tree.FindWithOrInsertWith(
		func(n *rbtree.Node) int { return int(key) - int(n.Item.(*apiVersionEntry).key) },
		func() rbtree.Item { return &apiVersionEntry{key: key} },
	)
	e := n.Item.(*apiVersionEntry)
	e.min, e.max = min, max
}

// Lookup returns the broker's [min,max] range for key, or ok=false if the
// broker never advertised it.
func (v *ApiVersions) Lookup(key ApiKey) (min, max int16, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := v.tree.FindWith(func(n *rbtree.Node) int {
		return int(key) - int(n.Item.(*apiVersionEntry).key)
	})
	if n == nil {
		return 0, 0, false
	}
	e := n.Item.(*apiVersionEntry)
	return e.min, e.max, true
}

// Negotiate picks the largest integer v with minReq <= v <= maxReq and v
// within the broker's advertised range for key, returning the version
// plus any version-gated feature bits it enables. It returns -1 if no
// such v exists; the caller must then fail with ErrUnsupportedFeature
// (spec.md §4.2).
func Negotiate(key ApiKey, minReq, maxReq int16, versions *ApiVersions) (int16, FeatureBits) {
	bmin, bmax, ok := versions.Lookup(key)
	if !ok {
		return -1, 0
	}
	lo := minReq
	if bmin > lo {
		lo = bmin
	}
	hi := maxReq
	if bmax < hi {
		hi = bmax
	}
	if lo > hi {
		return -1, 0
	}

	v := hi
	var feats FeatureBits
	if key == ApiKeyOffset && v >= 1 {
		feats |= FeatureOffsetTime
	}
	return v, feats
}
