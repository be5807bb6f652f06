// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package batch

import "fmt"

// MockProof returns a structurally valid proof over a committee of n
// witnesses of equal reliability, without votes.
func MockProof(n int, reliability float64) *Proof {
	p := &Proof{
		Timestamp:         1,
		TransactionCount:  10,
		BatchHash:         []byte{1, 2, 3},
		ProofData:         []byte{4, 5, 6},
		WitnessSignatures: make([][]byte, n),
		ZKP: ZKPData{
			Commitment:             []byte{1},
			Challenge:              []byte{2},
			Response:               []byte{3},
			VerificationConfidence: 1,
		},
		Witnesses: WitnessData{
			SelectedWitnesses: make([]string, n),
			ReliabilityScores: make([]float64, n),
			VerificationTimes: make([]int64, n),
			QuorumThreshold:   0.75,
		},
		Metrics: Metrics{
			AvgTxSize:           32,
			ProofGenerationTime: 1,
			VerificationTime:    1,
			RecursiveDepth:      2,
			EnhancementFactor:   1,
		},
	}

	for i := 0; i < n; i++ {
		p.Witnesses.SelectedWitnesses[i] = fmt.Sprintf("w%d", i)
		p.Witnesses.ReliabilityScores[i] = reliability
	}

	return p
}

// MockVote marks witness i of p as voted with a placeholder signature.
func MockVote(p *Proof, i int) {
	p.WitnessSignatures[i] = []byte{0xAA, byte(i)}
	p.Witnesses.VerificationTimes[i] = int64(i + 1)
}
