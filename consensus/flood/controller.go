// Package flood implements the rate-adaptive retransmission layer shared by
// the bilateral and the threshold protocol. Every not-yet-superseded
// artifact is re-emitted on its own schedule, derived from a controller-wide
// rate that ramps toward the configured maximum under urgency and decays
// toward the minimum when idle.
//
// The controller decides only when artifacts are re-delivered, never what
// they contain, so no protocol safety property can depend on it. Its own
// safety property is the rate bound: the current rate never leaves
// [MinRate, MaxRate] at any observation point.
package flood

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/riffcc/pact/model/pact"
	"github.com/riffcc/pact/module"
)

// Outbound is one artifact due for retransmission.
type Outbound struct {
	ArtifactID pact.Identifier
	Payload    interface{}
}

type entry struct {
	payload    interface{}
	limiter    *rate.Limiter
	superseded bool
}

// Controller maintains the outstanding-artifact set and the adaptive rate.
// Like the other synchronous cores it is not concurrency safe; the owning
// session serializes all access.
type Controller struct {
	log     zerolog.Logger
	metrics module.FloodMetrics

	minRate  float64
	maxRate  float64
	rampUp   float64
	rampDown float64

	current float64
	urgent  bool

	entries map[pact.Identifier]*entry
	order   []pact.Identifier
}

// NewController creates a controller idling at minRate. rampUp must be > 1
// and rampDown in (0, 1); the config layer validates this.
func NewController(log zerolog.Logger, metrics module.FloodMetrics, minRate, maxRate, rampUp, rampDown float64) *Controller {
	return &Controller{
		log:      log.With().Str("component", "flood_controller").Logger(),
		metrics:  metrics,
		minRate:  minRate,
		maxRate:  maxRate,
		rampUp:   rampUp,
		rampDown: rampDown,
		current:  minRate,
		entries:  make(map[pact.Identifier]*entry),
	}
}

// Add registers an artifact in the flood set. The artifact becomes due
// immediately and then follows the controller's rate. Adding an already
// known artifact, superseded or not, is a no-op: artifacts are never
// resurrected.
func (c *Controller) Add(artifactID pact.Identifier, payload interface{}) {
	if _, known := c.entries[artifactID]; known {
		return
	}
	c.entries[artifactID] = &entry{
		payload: payload,
		limiter: rate.NewLimiter(rate.Limit(c.current), 1),
	}
	c.order = append(c.order, artifactID)
	c.metrics.OutstandingArtifacts(c.outstanding())
}

// MarkSuperseded retires an artifact from the flood set. Unknown artifacts
// are ignored.
func (c *Controller) MarkSuperseded(artifactID pact.Identifier) {
	e, known := c.entries[artifactID]
	if !known || e.superseded {
		return
	}
	e.superseded = true
	e.payload = nil
	c.metrics.OutstandingArtifacts(c.outstanding())
}

// SupersedeAll retires every artifact at once; called on the terminal
// decision transition.
func (c *Controller) SupersedeAll() {
	for _, e := range c.entries {
		e.superseded = true
		e.payload = nil
	}
	c.metrics.OutstandingArtifacts(0)
}

// SetUrgency switches the target the rate moves toward on subsequent ticks:
// MaxRate while urgent, MinRate otherwise.
func (c *Controller) SetUrgency(urgent bool) {
	c.urgent = urgent
}

// Tick recomputes the rate by one multiplicative step and re-limits every
// schedule. Invoked on the session's fixed tick.
func (c *Controller) Tick(now time.Time) {
	if c.urgent {
		c.current = math.Min(c.current*c.rampUp, c.maxRate)
	} else {
		c.current = math.Max(c.current*c.rampDown, c.minRate)
	}
	// clamp regardless of the step direction so a misconfigured factor can
	// never push an observable rate outside the bounds
	c.current = math.Min(math.Max(c.current, c.minRate), c.maxRate)

	limit := rate.Limit(c.current)
	for _, e := range c.entries {
		if !e.superseded {
			e.limiter.SetLimitAt(now, limit)
		}
	}
	c.metrics.FloodRate(c.current)
}

// Due returns the artifacts whose schedules fire at the given instant, in
// insertion order.
func (c *Controller) Due(now time.Time) []Outbound {
	var due []Outbound
	for _, artifactID := range c.order {
		e := c.entries[artifactID]
		if e.superseded {
			continue
		}
		if e.limiter.AllowN(now, 1) {
			due = append(due, Outbound{ArtifactID: artifactID, Payload: e.payload})
		}
	}
	return due
}

// Rate returns the current rate in artifacts/second per outstanding
// artifact.
func (c *Controller) Rate() float64 {
	return c.current
}

// Outstanding returns the number of non-superseded artifacts.
func (c *Controller) Outstanding() int {
	return int(c.outstanding())
}

func (c *Controller) outstanding() uint {
	var n uint
	for _, e := range c.entries {
		if !e.superseded {
			n++
		}
	}
	return n
}

// ResidualFailureProbability bounds the chance that an artifact flooded for
// the given window was never delivered, assuming independent per-packet
// delivery probability p: (1-p)^k for k send attempts at the given rate.
func ResidualFailureProbability(p float64, sendRate float64, window time.Duration) float64 {
	if p <= 0 {
		return 1
	}
	if p >= 1 {
		return 0
	}
	attempts := sendRate * window.Seconds()
	if attempts < 0 {
		attempts = 0
	}
	return math.Pow(1-p, attempts)
}
