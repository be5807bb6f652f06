// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package zkproof

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"

	"github.com/dusk-network/dusk-crypto/hash"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/pkg/errors"
)

// NonceSize is the length of the blinding nonce carried in the proof data.
const NonceSize = 32

// HashOracle is a commit-challenge-response ProofOracle built on SHA3-256. It
// binds a random nonce to the batch hash; it attests integrity, not
// knowledge.
type HashOracle struct {
	enhancement float64
	entropy     io.Reader
}

// Option configures a HashOracle.
type Option func(*HashOracle)

// WithEnhancement sets the enhancement factor attached to every proof.
// Values below 1 are ignored.
func WithEnhancement(f float64) Option {
	return func(o *HashOracle) {
		if f >= 1 {
			o.enhancement = f
		}
	}
}

// WithEntropy replaces crypto/rand as the nonce source.
func WithEntropy(r io.Reader) Option {
	return func(o *HashOracle) {
		o.entropy = r
	}
}

// NewHashOracle creates a HashOracle.
func NewHashOracle(opts ...Option) *HashOracle {
	o := &HashOracle{enhancement: 1, entropy: rand.Reader}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// GenerateProof implements consensus.ProofOracle.
func (o *HashOracle) GenerateProof(ctx context.Context, txs [][]byte, batchHash []byte, layers int) (consensus.ProofOutput, error) {
	if err := ctx.Err(); err != nil {
		return consensus.ProofOutput{}, errors.Wrap(consensus.ErrOracle, err.Error())
	}

	if len(txs) == 0 || len(batchHash) == 0 {
		return consensus.ProofOutput{}, errors.Wrap(consensus.ErrOracle, "nothing to prove")
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(o.entropy, nonce); err != nil {
		return consensus.ProofOutput{}, errors.Wrap(consensus.ErrOracle, err.Error())
	}

	digest, err := sha3(nonce, batchHash)
	if err != nil {
		return consensus.ProofOutput{}, err
	}

	commitment, err := sha3(nonce)
	if err != nil {
		return consensus.ProofOutput{}, err
	}

	challenge, err := sha3(commitment, batchHash)
	if err != nil {
		return consensus.ProofOutput{}, err
	}

	response, err := sha3(nonce, challenge)
	if err != nil {
		return consensus.ProofOutput{}, err
	}

	var recursive []byte
	if layers > 0 {
		recursive = response
		for i := 0; i < layers; i++ {
			if recursive, err = sha3(recursive, challenge); err != nil {
				return consensus.ProofOutput{}, err
			}
		}
	}

	return consensus.ProofOutput{
		ProofData:         append(nonce, digest...),
		Commitment:        commitment,
		Challenge:         challenge,
		Response:          response,
		RecursiveProof:    recursive,
		Confidence:        1,
		EnhancementFactor: o.enhancement,
	}, nil
}

// VerifyProof implements consensus.ProofOracle. The confidence is either 1 or
// 0; malformed proof data is an error.
func (o *HashOracle) VerifyProof(ctx context.Context, proofData, batchHash []byte) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(consensus.ErrOracle, err.Error())
	}

	if len(proofData) != NonceSize+32 {
		return 0, errors.Wrap(consensus.ErrOracle, "malformed proof data")
	}

	digest, err := sha3(proofData[:NonceSize], batchHash)
	if err != nil {
		return 0, err
	}

	if !bytes.Equal(digest, proofData[NonceSize:]) {
		return 0, nil
	}

	return 1, nil
}

func sha3(parts ...[]byte) ([]byte, error) {
	h, err := hash.Sha3256(bytes.Join(parts, nil))
	if err != nil {
		return nil, errors.Wrap(consensus.ErrOracle, err.Error())
	}

	return h, nil
}
