package kreq

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
)

// Config is the immutable, by-value settings consulted at envelope
// construction time: retry budget, backoff, and the handful of timeouts
// spec.md's per-API encoders reference. There is no CLI, no env var, and
// no persisted state (spec.md §6); build one with Opts.
type Config struct {
	clientID *string

	retryCap     int32
	retryBackoff func(tries int) time.Duration

	socketTimeout            time.Duration
	apiVersionRequestTimeout time.Duration
	dynamicApiVersioning     bool

	// produceOffsetReport, when set, makes the Produce handler assign an
	// incrementing offset to every message in a batch rather than only
	// the tail message (spec.md §4.4).
	produceOffsetReport bool

	rng *rand.Rand
}

// Opt configures a Config. Grounded on the teacher's functional-options
// client configuration (config.go's Opt/OptClient split).
type Opt interface {
	apply(*Config)
}

type optFunc func(*Config)

func (f optFunc) apply(c *Config) { f(c) }

// ClientID sets the client id sent in every request header.
func ClientID(id string) Opt {
	return optFunc(func(c *Config) { c.clientID = &id })
}

// RetryCap sets the maximum number of retries an envelope may accumulate
// before the driver falls through to terminal completion. Pass
// NoRetries for at-most-once semantics.
func RetryCap(n int32) Opt {
	return optFunc(func(c *Config) { c.retryCap = n })
}

// RetryBackoff overrides the per-attempt base backoff function; the
// driver adds jitter on top of whatever this returns.
func RetryBackoff(fn func(tries int) time.Duration) Opt {
	return optFunc(func(c *Config) { c.retryBackoff = fn })
}

// SocketTimeout sets the default per-request deadline duration used by
// encoders that don't derive their own (e.g. from a session timeout),
// and the threshold admin encoders compare op_timeout against.
func SocketTimeout(d time.Duration) Opt {
	return optFunc(func(c *Config) { c.socketTimeout = d })
}

// ApiVersionRequestTimeout sets the ApiVersion request's own deadline,
// independent of SocketTimeout, because legacy brokers close the
// connection outright on an unknown API key (spec.md §4.3).
func ApiVersionRequestTimeout(d time.Duration) Opt {
	return optFunc(func(c *Config) { c.apiVersionRequestTimeout = d })
}

// DynamicApiVersioning toggles whether the client negotiates versions at
// all; when false, SaslHandshake's deadline is clamped per spec.md §4.3.
func DynamicApiVersioning(b bool) Opt {
	return optFunc(func(c *Config) { c.dynamicApiVersioning = b })
}

// ProduceOffsetReport toggles per-message offset assignment in the
// Produce handler (spec.md §4.4).
func ProduceOffsetReport(b bool) Opt {
	return optFunc(func(c *Config) { c.produceOffsetReport = b })
}

// Opts builds a Config from zero or more options.
func Opts(opts ...Opt) *Config {
	defaultID := "kreq"
	c := &Config{
		clientID:                 &defaultID,
		retryCap:                 math.MaxInt32,
		retryBackoff:             defaultBackoff,
		socketTimeout:            30 * time.Second,
		apiVersionRequestTimeout: 10 * time.Second,
		dynamicApiVersioning:     true,
		rng:                      rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c
}

func defaultBackoff(tries int) time.Duration {
	const (
		base = 100 * time.Millisecond
		cap  = time.Second
	)
	if tries < 0 || tries > 10 {
		return cap
	}
	d := base << uint(tries)
	if d <= 0 || d > cap {
		return cap
	}
	return d
}
