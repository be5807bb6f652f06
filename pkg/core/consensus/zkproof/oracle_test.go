// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package zkproof

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	txs       = [][]byte{{1}, {2}, {3}}
	batchHash = bytes.Repeat([]byte{7}, 32)
)

func TestGenerateAndVerify(t *testing.T) {
	o := NewHashOracle(WithEnhancement(1.5))

	out, err := o.GenerateProof(context.Background(), txs, batchHash, 3)
	require.NoError(t, err)

	assert.Len(t, out.ProofData, NonceSize+32)
	assert.NotEmpty(t, out.Commitment)
	assert.NotEmpty(t, out.Challenge)
	assert.NotEmpty(t, out.Response)
	assert.NotEmpty(t, out.RecursiveProof)
	assert.Equal(t, 1.5, out.EnhancementFactor)

	c, err := o.VerifyProof(context.Background(), out.ProofData, batchHash)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c)

	// bound to the batch hash
	c, err = o.VerifyProof(context.Background(), out.ProofData, []byte("other"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, c)
}

func TestNoRecursion(t *testing.T) {
	out, err := NewHashOracle().GenerateProof(context.Background(), txs, batchHash, 0)
	require.NoError(t, err)
	assert.Nil(t, out.RecursiveProof)
	assert.Equal(t, 1.0, out.EnhancementFactor)
}

func TestDeterministicEntropy(t *testing.T) {
	seed := bytes.Repeat([]byte{9}, NonceSize*2)
	a, err := NewHashOracle(WithEntropy(bytes.NewReader(seed))).GenerateProof(context.Background(), txs, batchHash, 2)
	require.NoError(t, err)
	b, err := NewHashOracle(WithEntropy(bytes.NewReader(seed))).GenerateProof(context.Background(), txs, batchHash, 2)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestOracleErrors(t *testing.T) {
	o := NewHashOracle()

	_, err := o.GenerateProof(context.Background(), nil, batchHash, 1)
	assert.True(t, errors.Is(err, consensus.ErrOracle))

	_, err = o.VerifyProof(context.Background(), []byte{1, 2}, batchHash)
	assert.True(t, errors.Is(err, consensus.ErrOracle))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.GenerateProof(ctx, txs, batchHash, 1)
	assert.True(t, errors.Is(err, consensus.ErrOracle))
}
