package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleState_TryStart(t *testing.T) {
	var state CycleState

	assert.True(t, state.TryStart("a"))
	assert.False(t, state.TryStart("b"))

	running, current, last := state.Snapshot()
	assert.True(t, running)
	assert.Equal(t, "a", current)
	assert.Nil(t, last)

	state.Finish(CycleResult{ID: "a", Outcome: CycleCompleted, EndedAt: time.Now()})

	running, current, last = state.Snapshot()
	assert.False(t, running)
	assert.Empty(t, current)
	require.NotNil(t, last)
	assert.Equal(t, CycleCompleted, last.Outcome)

	assert.True(t, state.TryStart("c"))
}

func TestCycleState_ConcurrentTryStart(t *testing.T) {
	var state CycleState
	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if state.TryStart("x") {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started)
}

func TestCycleResult_ErrorCount(t *testing.T) {
	r := CycleResult{
		Reconcile:  ReconcileReport{Errors: 2},
		Decisions:  DecisionReport{Errors: 1},
		Enrichment: EnrichmentReport{Failed: 3},
	}
	assert.Equal(t, 6, r.ErrorCount())
}
