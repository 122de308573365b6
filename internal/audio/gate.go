package audio

import (
	"time"

	"github.com/charmbracelet/log"
)

// RouteKind classifies the active audio output route.
type RouteKind int

const (
	RouteUnknown RouteKind = iota
	RouteBuiltin
	RouteWired
	RouteWireless
)

// String returns the route name for logging.
func (k RouteKind) String() string {
	switch k {
	case RouteBuiltin:
		return "builtin"
	case RouteWired:
		return "wired"
	case RouteWireless:
		return "wireless"
	default:
		return "unknown"
	}
}

// RouteQuery reports which output route audio currently goes to.
// Implementations are platform-specific; a nil query disables gating.
type RouteQuery interface {
	Route() (RouteKind, error)
}

// Warmer plays a stretch of silence to wake a standby output device.
// *Device satisfies it.
type Warmer interface {
	PlaySilence(d time.Duration) error
}

// DefaultSettle is how much silence is needed to pull a typical wireless
// speaker out of standby before real speech starts.
const DefaultSettle = 150 * time.Millisecond

// Gate delays speech until the output route is ready to carry it.
// Wireless routes get a silent warm-up burst; every other route passes
// straight through.
type Gate struct {
	query  RouteQuery
	warmer Warmer
	settle time.Duration
	log    *log.Logger
}

// NewGate builds a gate. query may be nil, in which case EnsureReady is
// a no-op. settle <= 0 selects DefaultSettle.
func NewGate(query RouteQuery, warmer Warmer, settle time.Duration, logger *log.Logger) *Gate {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Gate{query: query, warmer: warmer, settle: settle, log: logger}
}

// EnsureReady warms the output route if it needs it. Failures to probe
// or warm the route are logged and swallowed: a missed warm-up clips a
// few milliseconds of speech, which is better than refusing to speak.
func (g *Gate) EnsureReady() {
	if g == nil || g.query == nil {
		return
	}
	route, err := g.query.Route()
	if err != nil {
		g.log.Debug("could not determine audio route", "error", err)
		return
	}
	if route != RouteWireless {
		return
	}
	if g.warmer == nil {
		return
	}
	g.log.Debug("warming wireless audio route", "settle", g.settle)
	if err := g.warmer.PlaySilence(g.settle); err != nil {
		g.log.Warn("audio route warm-up failed", "error", err)
	}
}
