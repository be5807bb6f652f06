// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package reputation

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyTracker(t *testing.T) {
	var tr Tracker
	assert.Equal(t, 0.0, tr.Score())
	assert.False(t, tr.Validated())
}

// After every update the score equals successful/total and stays in [0,1].
func TestUpdateLaw(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	tr := new(Tracker)

	var successful, total uint32
	for i := 0; i < 1000; i++ {
		ok := r.Intn(3) != 0
		tr.Update(ok)

		total++
		if ok {
			successful++
		}

		s, n := tr.Counters()
		require.Equal(t, successful, s)
		require.Equal(t, total, n)
		require.LessOrEqual(t, s, n)

		score := tr.Score()
		require.InDelta(t, float64(successful)/float64(total), score, 1e-12)
		require.GreaterOrEqual(t, score, 0.0)
		require.LessOrEqual(t, score, 1.0)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	tr := new(Tracker)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(ok bool) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				tr.Update(ok)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	s, n := tr.Counters()
	assert.Equal(t, uint32(2000), s)
	assert.Equal(t, uint32(4000), n)
	assert.Equal(t, 0.5, tr.Score())
}

func TestRestore(t *testing.T) {
	tr := NewTracker(3, 4)
	assert.Equal(t, 0.75, tr.Score())

	// successes never exceed the total
	tr = NewTracker(9, 4)
	s, n := tr.Counters()
	assert.Equal(t, uint32(4), s)
	assert.Equal(t, uint32(4), n)
}

func TestSaturation(t *testing.T) {
	tr := NewTracker(^uint32(0)-1, ^uint32(0))
	before := tr.Score()

	tr.Update(false)
	assert.Equal(t, before, tr.Score())
}
