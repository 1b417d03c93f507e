package engine

import (
	"time"

	"github.com/tkoivisto/peregrine/internal/board"
)

// Limits carries the external search constraints for one go command.
// Zero values mean unconstrained.
type Limits struct {
	Time      [2]time.Duration // remaining clock per color
	Inc       [2]time.Duration // increment per color
	MovesToGo int              // moves to the next time control
	MoveTime  time.Duration    // fixed time for this move
	Depth     int
	Nodes     uint64
	Mate      int // search for mate in N
	Infinite  bool
}

// TimeControl translates Limits into two deadlines. The soft deadline
// is consulted between iterations: once past it, starting another depth
// is pointless. The hard deadline is polled inside the tree and aborts
// the search outright. Best move stability scales the soft deadline up
// or down within the hard bound.
type TimeControl struct {
	start     time.Time
	soft      time.Duration
	hard      time.Duration
	baseSoft  time.Duration
	limited   bool
	nodeLimit uint64
	overhead  time.Duration
}

// NewTimeControl allocates time for one search. overhead is subtracted
// from the clock to absorb transport latency.
func NewTimeControl(limits Limits, us board.Color, overhead time.Duration) *TimeControl {
	tc := &TimeControl{start: time.Now(), nodeLimit: limits.Nodes, overhead: overhead}

	switch {
	case limits.MoveTime > 0:
		tc.limited = true
		tc.soft = limits.MoveTime - overhead
		tc.hard = limits.MoveTime - overhead
	case limits.Time[us] > 0 && !limits.Infinite:
		tc.limited = true
		remaining := limits.Time[us] - overhead
		if remaining < time.Millisecond {
			remaining = time.Millisecond
		}
		mtg := limits.MovesToGo
		if mtg == 0 || mtg > 40 {
			mtg = 40
		}
		base := remaining/time.Duration(mtg) + limits.Inc[us]*3/4
		tc.soft = base
		tc.hard = min(base*4, remaining/2)
		if tc.soft > tc.hard {
			tc.soft = tc.hard
		}
	}
	if tc.limited {
		if tc.soft < time.Millisecond {
			tc.soft = time.Millisecond
		}
		if tc.hard < 5*time.Millisecond {
			tc.hard = 5 * time.Millisecond
		}
	}
	tc.baseSoft = tc.soft
	return tc
}

// Elapsed returns time spent since the search started.
func (tc *TimeControl) Elapsed() time.Duration {
	return time.Since(tc.start)
}

// HardStop reports whether the search must abort now.
func (tc *TimeControl) HardStop(nodes uint64) bool {
	if tc.nodeLimit > 0 && nodes >= tc.nodeLimit {
		return true
	}
	return tc.limited && tc.Elapsed() >= tc.hard
}

// SoftStop reports whether another iteration should be started.
func (tc *TimeControl) SoftStop(nodes uint64) bool {
	if tc.nodeLimit > 0 && nodes >= tc.nodeLimit {
		return true
	}
	return tc.limited && tc.Elapsed() >= tc.soft
}

// UpdateStability rescales the soft deadline from how long the best
// move has been unchanged. A move that keeps surviving iterations needs
// less confirmation; a fresh one deserves extra thought.
func (tc *TimeControl) UpdateStability(stableDepths int) {
	if !tc.limited {
		return
	}
	var pct time.Duration
	switch {
	case stableDepths >= 8:
		pct = 55
	case stableDepths >= 4:
		pct = 75
	case stableDepths >= 2:
		pct = 90
	case stableDepths == 0:
		pct = 140
	default:
		pct = 100
	}
	tc.soft = tc.baseSoft * pct / 100
	if tc.soft > tc.hard {
		tc.soft = tc.hard
	}
}
