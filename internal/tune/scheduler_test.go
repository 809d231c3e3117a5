package tune_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenonet/phenonet/internal/tune"
)

func TestASHANeverStopsBeforeGracePeriod(t *testing.T) {
	t.Parallel()

	sched := tune.NewASHA(10, 2)
	for step := 1; step < 10; step++ {
		// Even a terrible loss may not be stopped before the grace period.
		assert.Equal(t, tune.Continue, sched.Decide(step, 1e9), "step %d", step)
	}
}

func TestASHAStopsWorstAtRung(t *testing.T) {
	t.Parallel()

	sched := tune.NewASHA(10, 2)

	// First reporter at the rung always survives.
	require.Equal(t, tune.Continue, sched.Decide(10, 1.0))
	// A worse loss at the same rung is cut.
	require.Equal(t, tune.Stop, sched.Decide(10, 2.0))
	// A better one survives.
	require.Equal(t, tune.Continue, sched.Decide(10, 0.5))
}

func TestASHAIgnoresOffRungSteps(t *testing.T) {
	t.Parallel()

	sched := tune.NewASHA(10, 2)
	require.Equal(t, tune.Continue, sched.Decide(10, 1.0))

	// Steps between rungs (10, 20, 40, ...) never stop a trial.
	for _, step := range []int{11, 15, 19, 21, 39} {
		assert.Equal(t, tune.Continue, sched.Decide(step, 1e9), "step %d", step)
	}

	// The next rung compares independently of the previous one.
	require.Equal(t, tune.Continue, sched.Decide(20, 5.0))
	require.Equal(t, tune.Stop, sched.Decide(20, 6.0))
}

func TestASHAClampsDegenerateParameters(t *testing.T) {
	t.Parallel()

	sched := tune.NewASHA(0, 1)
	assert.Equal(t, 1, sched.GracePeriod)
	assert.Equal(t, 2, sched.ReductionFactor)
}
