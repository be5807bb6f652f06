// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package consensus

import "context"

// ProofOutput is what a ProofOracle produces for a batch.
type ProofOutput struct {
	ProofData []byte

	Commitment     []byte
	Challenge      []byte
	Response       []byte
	RecursiveProof []byte

	// Confidence in [0,1]. A zero value is filled in by the caller through
	// VerifyProof.
	Confidence float64

	// EnhancementFactor is the scalar the oracle attaches to the proof. It is
	// never lower than 1.
	EnhancementFactor float64
}

// ProofOracle generates and checks the verification payload of a batch. The
// engine treats it as a black box.
type ProofOracle interface {
	// GenerateProof builds the proof over txs, whose content hash is
	// batchHash. layers is the requested recursion depth.
	GenerateProof(ctx context.Context, txs [][]byte, batchHash []byte, layers int) (ProofOutput, error)

	// VerifyProof returns the confidence in [0,1] that proofData attests
	// batchHash.
	VerifyProof(ctx context.Context, proofData, batchHash []byte) (float64, error)
}

// SignatureVerifier checks a witness signature over msg against the
// witness public key. It returns nil iff the signature is valid.
type SignatureVerifier interface {
	Verify(publicKey, msg, signature []byte) error
}
