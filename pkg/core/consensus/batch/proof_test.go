// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProofValidity(t *testing.T) {
	tt := []struct {
		name   string
		mutate func(*Proof)
		valid  bool
	}{
		{"mock", func(*Proof) {}, true},
		{"no timestamp", func(p *Proof) { p.Timestamp = 0 }, false},
		{"no transactions", func(p *Proof) { p.TransactionCount = 0 }, false},
		{"no batch hash", func(p *Proof) { p.BatchHash = nil }, false},
		{"no proof data", func(p *Proof) { p.ProofData = []byte{} }, false},
		{"no signature slots", func(p *Proof) { p.WitnessSignatures = nil }, false},
		{"no committee", func(p *Proof) {
			p.Witnesses.SelectedWitnesses = nil
			p.Witnesses.ReliabilityScores = nil
			p.Witnesses.VerificationTimes = nil
		}, false},
		{"short reliability", func(p *Proof) { p.Witnesses.ReliabilityScores = p.Witnesses.ReliabilityScores[1:] }, false},
		{"short times", func(p *Proof) { p.Witnesses.VerificationTimes = p.Witnesses.VerificationTimes[1:] }, false},
		{"low threshold", func(p *Proof) { p.Witnesses.QuorumThreshold = 0.6 }, false},
		{"no tx size", func(p *Proof) { p.Metrics.AvgTxSize = 0 }, false},
		{"no generation time", func(p *Proof) { p.Metrics.ProofGenerationTime = 0 }, false},
		{"no verification time", func(p *Proof) { p.Metrics.VerificationTime = 0 }, false},
		{"too deep", func(p *Proof) { p.Metrics.RecursiveDepth = 6 }, false},
		{"weak enhancement", func(p *Proof) { p.Metrics.EnhancementFactor = 0.9 }, false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			p := MockProof(4, 0.25)
			tc.mutate(p)
			assert.Equal(t, tc.valid, p.IsValid())
		})
	}

	var nilProof *Proof
	assert.False(t, nilProof.IsValid())
}

func TestZKPCompleteness(t *testing.T) {
	z := MockProof(1, 1).ZKP
	assert.True(t, z.IsComplete())

	z.VerificationConfidence = 1.2
	assert.False(t, z.IsComplete())

	z.VerificationConfidence = -0.1
	assert.False(t, z.IsComplete())

	z = MockProof(1, 1).ZKP
	z.Challenge = nil
	assert.False(t, z.IsComplete())

	// the recursive proof is optional
	z = MockProof(1, 1).ZKP
	z.RecursiveProof = nil
	assert.True(t, z.IsComplete())
}

// Four witnesses of reliability 0.25 with a 0.75 threshold need three votes.
func TestWeightedQuorum(t *testing.T) {
	p := MockProof(4, 0.25)
	MockVote(p, 0)
	MockVote(p, 1)
	assert.False(t, p.Witnesses.HasQuorum())

	MockVote(p, 2)
	assert.True(t, p.Witnesses.HasQuorum())
}

// A single highly reliable witness can carry the quorum.
func TestReliabilityWeighting(t *testing.T) {
	p := MockProof(4, 0.1)
	p.Witnesses.ReliabilityScores[3] = 0.9
	MockVote(p, 3)

	// 0.9 / 1.2
	assert.True(t, p.Witnesses.HasQuorum())
}

func TestQuorumMonotonicity(t *testing.T) {
	p := MockProof(4, 0.25)
	for i := 0; i < 3; i++ {
		MockVote(p, i)
	}
	require.True(t, p.Witnesses.HasQuorum())

	// counting an already verified witness again changes nothing
	for i := 0; i < 3; i++ {
		MockVote(p, i)
		assert.True(t, p.Witnesses.HasQuorum())
	}

	MockVote(p, 3)
	assert.True(t, p.Witnesses.HasQuorum())
}

func TestQuorumEdgeCases(t *testing.T) {
	assert.False(t, WitnessData{}.HasQuorum())

	p := MockProof(3, 0)
	for i := 0; i < 3; i++ {
		MockVote(p, i)
	}

	// no weight at all
	assert.False(t, p.Witnesses.HasQuorum())
}

func TestProofCopy(t *testing.T) {
	p := MockProof(2, 0.5)
	c := p.Copy()
	MockVote(c, 0)

	assert.Equal(t, 0, p.Votes())
	assert.Equal(t, 1, c.Votes())
	assert.True(t, p.SameBatch(c))
	assert.Equal(t, 1, p.Witnesses.IndexOf("w1"))
	assert.Equal(t, -1, p.Witnesses.IndexOf("w9"))
}
