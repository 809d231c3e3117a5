package tune

import (
	"sort"
	"sync"
)

// Decision is the scheduler's verdict after a trial reports a metric.
type Decision int

const (
	// Continue lets the trial keep training.
	Continue Decision = iota
	// Stop halts the trial early; its resources go to better trials.
	Stop
)

// ASHA is a successive-halving early-stopping scheduler. Trials report
// their loss once per epoch; at geometrically spaced rungs only the best
// fraction of the losses seen so far at that rung survive. Lower loss is
// better. Safe for concurrent use by multiple trials.
type ASHA struct {
	// GracePeriod is the number of reports a trial is guaranteed to run
	// before it can be stopped.
	GracePeriod int
	// ReductionFactor sets both the rung spacing and the survivor
	// fraction at each rung.
	ReductionFactor int

	mu    sync.Mutex
	rungs map[int][]float64
}

// NewASHA builds a scheduler with the given grace period and reduction
// factor. Values below the usable minimum are clamped.
func NewASHA(gracePeriod, reductionFactor int) *ASHA {
	if gracePeriod < 1 {
		gracePeriod = 1
	}
	if reductionFactor < 2 {
		reductionFactor = 2
	}
	return &ASHA{
		GracePeriod:     gracePeriod,
		ReductionFactor: reductionFactor,
		rungs:           make(map[int][]float64),
	}
}

// Decide records a trial's loss at the given report step (1-based) and
// returns whether the trial should continue. Steps before the grace
// period and steps that fall between rungs always continue.
func (s *ASHA) Decide(step int, loss float64) Decision {
	if step < s.GracePeriod || !s.isRung(step) {
		return Continue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	losses := append(s.rungs[step], loss)
	s.rungs[step] = losses

	sorted := append([]float64(nil), losses...)
	sort.Float64s(sorted)

	// Keep the best 1/ReductionFactor of the losses seen at this rung,
	// always at least one.
	keep := len(sorted) / s.ReductionFactor
	if keep < 1 {
		keep = 1
	}
	cutoff := sorted[keep-1]
	if loss <= cutoff {
		return Continue
	}
	return Stop
}

// isRung reports whether step lies on a rung boundary
// (GracePeriod * ReductionFactor^k).
func (s *ASHA) isRung(step int) bool {
	r := s.GracePeriod
	for r < step {
		r *= s.ReductionFactor
	}
	return r == step
}
