package tracking

import "sync"

// MinLookaheadDistance is the smallest lookahead the tracker will run with.
// Radii below this collapse target selection onto the vehicle itself, so
// external updates are clamped rather than rejected.
const MinLookaheadDistance = 0.1

// Params is the runtime-tunable parameter bundle of the tracker. The
// steering gain is deliberately absent: it is a fixed property of the
// control law, not an operator knob.
type Params struct {
	TargetSpeed       float64 `json:"target_speed"`
	Kp                float64 `json:"kp"`
	Ki                float64 `json:"ki"`
	Kd                float64 `json:"kd"`
	LookaheadDistance float64 `json:"lookahead_distance"`
}

func (p Params) clamped() Params {
	if p.LookaheadDistance < MinLookaheadDistance {
		p.LookaheadDistance = MinLookaheadDistance
	}
	return p
}

// ParamStore is the hand-off point between operators tuning the tracker and
// the control path consuming the tuning. Writes coalesce: only the bundle
// present when a computation starts takes effect.
type ParamStore struct {
	// desired is the latest accepted bundle. It stays a desire until the
	// controller picks it up at the start of a computation.
	desired Params
	// dirty marks that desired has not been picked up yet.
	dirty bool
	// mux guards desired and dirty, where writes arrive from the admin API
	// and reads happen on the control path.
	mux *sync.Mutex
}

// NewParamStore returns a store holding the initial bundle, marked pending
// so the first computation picks it up.
func NewParamStore(initial Params) *ParamStore {
	return &ParamStore{
		desired: initial.clamped(),
		dirty:   true,
		mux:     &sync.Mutex{},
	}
}

// Set replaces the desired bundle, overwriting any bundle that has not been
// picked up yet. It returns the bundle as stored, which differs from the
// argument when the lookahead was clamped.
func (s *ParamStore) Set(p Params) Params {
	stored := p.clamped()
	s.mux.Lock()
	s.desired = stored
	s.dirty = true
	s.mux.Unlock()
	return stored
}

// Desired returns the latest accepted bundle whether or not the controller
// has picked it up.
func (s *ParamStore) Desired() Params {
	s.mux.Lock()
	desired := s.desired
	s.mux.Unlock()
	return desired
}

// TakePending returns the desired bundle and clears the pending mark. The
// second return reports whether a pickup was due; when false the controller
// keeps its active values.
func (s *ParamStore) TakePending() (Params, bool) {
	s.mux.Lock()
	pending := s.desired
	due := s.dirty
	s.dirty = false
	s.mux.Unlock()
	return pending, due
}
