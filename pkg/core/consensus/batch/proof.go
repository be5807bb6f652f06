// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package batch

import (
	"bytes"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
)

// ZKPData is the structural part of the proof payload.
type ZKPData struct {
	Commitment     []byte `json:"commitment"`
	Challenge      []byte `json:"challenge"`
	Response       []byte `json:"response"`
	RecursiveProof []byte `json:"recursive_proof"`

	VerificationConfidence float64 `json:"verification_confidence"`
}

// IsComplete is true when commitment, challenge and response are set and the
// confidence lies in [0,1].
func (z ZKPData) IsComplete() bool {
	return len(z.Commitment) > 0 &&
		len(z.Challenge) > 0 &&
		len(z.Response) > 0 &&
		z.VerificationConfidence >= 0 && z.VerificationConfidence <= 1
}

// WitnessData is the committee of a batch and its vote bookkeeping. The
// three slices are index-aligned.
type WitnessData struct {
	SelectedWitnesses []string  `json:"selected_witnesses"`
	ReliabilityScores []float64 `json:"reliability_scores"`
	// VerificationTimes holds the unix nanoseconds of each accepted vote, 0
	// while the witness has not voted.
	VerificationTimes []int64 `json:"verification_times"`

	QuorumThreshold float64 `json:"quorum_threshold"`
	HasConsensus    bool    `json:"has_consensus"`
}

// IndexOf returns the position of nodeID in the committee, or -1.
func (w WitnessData) IndexOf(nodeID string) int {
	for i, id := range w.SelectedWitnesses {
		if id == nodeID {
			return i
		}
	}

	return -1
}

// HasQuorum reports whether the reliability of the witnesses that voted
// reaches QuorumThreshold of the reliability of the whole committee.
func (w WitnessData) HasQuorum() bool {
	if len(w.SelectedWitnesses) == 0 || len(w.ReliabilityScores) == 0 ||
		len(w.ReliabilityScores) != len(w.VerificationTimes) {
		return false
	}

	var total, verified float64
	for i, r := range w.ReliabilityScores {
		total += r
		if w.VerificationTimes[i] > 0 {
			verified += r
		}
	}

	return total > 0 && verified/total >= w.QuorumThreshold
}

// Metrics are the performance numbers of a single batch. Times are in
// milliseconds.
type Metrics struct {
	AvgTxSize           float64 `json:"avg_tx_size"`
	FormationTime       float64 `json:"formation_time"`
	ProofGenerationTime float64 `json:"proof_generation_time"`
	VerificationTime    float64 `json:"verification_time"`
	RecursiveDepth      int     `json:"recursive_depth"`
	EnhancementFactor   float64 `json:"enhancement_factor"`
	// Entropy is the Shannon entropy of the batch bytes, in bits.
	Entropy float64 `json:"entropy"`
}

// IsValid checks the ranges of the batch metrics.
func (m Metrics) IsValid() bool {
	return m.AvgTxSize > 0 &&
		m.ProofGenerationTime > 0 &&
		m.VerificationTime > 0 &&
		m.RecursiveDepth <= consensus.MaxRecursiveLayers &&
		m.EnhancementFactor >= 1.0
}

// Proof is the unit of consensus. It is immutable after generation except
// for the vote bookkeeping: WitnessSignatures and the verification times and
// HasConsensus of Witnesses.
type Proof struct {
	Timestamp        int64  `json:"timestamp"`
	TransactionCount int    `json:"transaction_count"`
	BatchHash        []byte `json:"batch_hash"`
	ProofData        []byte `json:"proof_data"`

	// WitnessSignatures is index-aligned with Witnesses.SelectedWitnesses.
	// An empty entry is a missing vote.
	WitnessSignatures [][]byte `json:"witness_signatures"`

	ZKP       ZKPData     `json:"zkp_data"`
	Witnesses WitnessData `json:"witness_data"`
	Metrics   Metrics     `json:"metrics"`
}

// IsValid checks the structure of the proof.
func (p *Proof) IsValid() bool {
	if p == nil {
		return false
	}

	w := p.Witnesses
	return p.Timestamp > 0 &&
		p.TransactionCount > 0 &&
		len(p.BatchHash) > 0 &&
		len(p.ProofData) > 0 &&
		len(p.WitnessSignatures) > 0 &&
		len(w.SelectedWitnesses) > 0 &&
		len(w.SelectedWitnesses) == len(w.ReliabilityScores) &&
		len(w.SelectedWitnesses) == len(w.VerificationTimes) &&
		w.QuorumThreshold >= consensus.MinConsensusThreshold &&
		p.Metrics.IsValid()
}

// Votes is the number of non-empty signatures.
func (p *Proof) Votes() int {
	n := 0
	for _, sig := range p.WitnessSignatures {
		if len(sig) > 0 {
			n++
		}
	}

	return n
}

// SameBatch reports whether p and other are proofs of the same batch.
func (p *Proof) SameBatch(other *Proof) bool {
	return other != nil && bytes.Equal(p.BatchHash, other.BatchHash)
}

// Copy returns a deep copy of p.
func (p *Proof) Copy() *Proof {
	c := *p
	c.BatchHash = copyBytes(p.BatchHash)
	c.ProofData = copyBytes(p.ProofData)

	c.WitnessSignatures = make([][]byte, len(p.WitnessSignatures))
	for i, sig := range p.WitnessSignatures {
		c.WitnessSignatures[i] = copyBytes(sig)
	}

	c.ZKP.Commitment = copyBytes(p.ZKP.Commitment)
	c.ZKP.Challenge = copyBytes(p.ZKP.Challenge)
	c.ZKP.Response = copyBytes(p.ZKP.Response)
	c.ZKP.RecursiveProof = copyBytes(p.ZKP.RecursiveProof)

	c.Witnesses.SelectedWitnesses = append([]string(nil), p.Witnesses.SelectedWitnesses...)
	c.Witnesses.ReliabilityScores = append([]float64(nil), p.Witnesses.ReliabilityScores...)
	c.Witnesses.VerificationTimes = append([]int64(nil), p.Witnesses.VerificationTimes...)
	return &c
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	c := make([]byte, len(b))
	copy(c, b)
	return c
}
