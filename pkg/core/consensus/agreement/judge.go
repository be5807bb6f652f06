// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package agreement

import "github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"

// CalculateConfidence is the reliability-weighted fraction of the committee
// that signed p. It is 0 when either the signatures or the reliability
// scores are missing.
func CalculateConfidence(p *batch.Proof) float64 {
	if p == nil {
		return 0
	}

	sigs := p.WitnessSignatures
	scores := p.Witnesses.ReliabilityScores
	if len(sigs) == 0 || len(scores) == 0 {
		return 0
	}

	var total, signed float64
	for i, r := range scores {
		total += r
		if i < len(sigs) && len(sigs[i]) > 0 {
			signed += r
		}
	}

	if total <= 0 {
		return 0
	}

	c := signed / total
	if c > 1 {
		return 1
	}

	return c
}

// IsReadyForConsensus holds when p is structurally valid, its proof payload
// is complete, the committee reached quorum and the signed confidence
// reaches the quorum threshold.
func IsReadyForConsensus(p *batch.Proof) bool {
	return p.IsValid() &&
		p.ZKP.IsComplete() &&
		p.Witnesses.HasQuorum() &&
		CalculateConfidence(p) >= p.Witnesses.QuorumThreshold
}

// HasReachedConsensus is IsReadyForConsensus.
func HasReachedConsensus(p *batch.Proof) bool {
	return IsReadyForConsensus(p)
}
