// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package consensus

// Phase is the lifecycle state of a single batch.
type Phase uint8

// Batch phases. ConsensusReached and TimedOut are terminal.
const (
	Collecting Phase = iota
	ProofGenerated
	Voting
	ConsensusReached
	TimedOut
)

// Terminal reports whether no further transition is possible out of p.
func (p Phase) Terminal() bool {
	return p == ConsensusReached || p == TimedOut
}

func (p Phase) String() string {
	switch p {
	case Collecting:
		return "collecting"
	case ProofGenerated:
		return "proof_generated"
	case Voting:
		return "voting"
	case ConsensusReached:
		return "consensus_reached"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}
