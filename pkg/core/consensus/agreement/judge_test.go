// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package agreement

import (
	"math/rand"
	"testing"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidence(t *testing.T) {
	p := batch.MockProof(4, 0.25)
	assert.Equal(t, 0.0, CalculateConfidence(p))

	batch.MockVote(p, 0)
	batch.MockVote(p, 1)
	assert.Equal(t, 0.5, CalculateConfidence(p))

	batch.MockVote(p, 2)
	assert.Equal(t, 0.75, CalculateConfidence(p))

	p.Witnesses.ReliabilityScores = nil
	assert.Equal(t, 0.0, CalculateConfidence(p))

	p = batch.MockProof(4, 0.25)
	p.WitnessSignatures = nil
	assert.Equal(t, 0.0, CalculateConfidence(p))

	assert.Equal(t, 0.0, CalculateConfidence(nil))
}

func TestConfidenceBounds(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		n := r.Intn(8)
		p := batch.MockProof(n, 0)
		for j := 0; j < n; j++ {
			p.Witnesses.ReliabilityScores[j] = r.Float64()
			if r.Intn(2) == 0 {
				batch.MockVote(p, j)
			}
		}

		// shapes that disagree in length
		if n > 0 && r.Intn(4) == 0 {
			p.WitnessSignatures = p.WitnessSignatures[:r.Intn(n)]
		}

		c := CalculateConfidence(p)
		require.GreaterOrEqual(t, c, 0.0)
		require.LessOrEqual(t, c, 1.0)
	}
}

func TestReadiness(t *testing.T) {
	p := batch.MockProof(4, 0.25)
	batch.MockVote(p, 0)
	batch.MockVote(p, 1)
	assert.False(t, IsReadyForConsensus(p))

	batch.MockVote(p, 2)
	assert.True(t, IsReadyForConsensus(p))
	assert.True(t, HasReachedConsensus(p))

	// an out of range confidence makes the payload incomplete, quorum or not
	p.ZKP.VerificationConfidence = 1.2
	assert.True(t, p.Witnesses.HasQuorum())
	assert.False(t, p.ZKP.IsComplete())
	assert.False(t, IsReadyForConsensus(p))

	// structure is checked first
	p = batch.MockProof(4, 0.25)
	for i := 0; i < 4; i++ {
		batch.MockVote(p, i)
	}
	p.Metrics.EnhancementFactor = 0
	assert.False(t, IsReadyForConsensus(p))
}
