// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package batch

import (
	"errors"
	"testing"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	txs [][]byte
}

func (s *sliceSource) Drain(max int) [][]byte {
	if max > len(s.txs) {
		max = len(s.txs)
	}

	out := s.txs[:max]
	s.txs = s.txs[max:]
	return out
}

func txs(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i), byte(i * 7), 0x42}
	}

	return out
}

func TestAssemble(t *testing.T) {
	src := &sliceSource{txs: txs(10)}
	a := NewAssembler(src)

	b, err := a.Assemble(4)
	require.NoError(t, err)
	assert.Len(t, b.Transactions, 4)
	assert.Len(t, b.Hash, 32)
	assert.Equal(t, 3.0, b.AvgTxSize)
	assert.Greater(t, b.Entropy, 0.0)

	b, err = a.Assemble(100)
	require.NoError(t, err)
	assert.Len(t, b.Transactions, 6)

	_, err = a.Assemble(100)
	assert.True(t, errors.Is(err, consensus.ErrEmptyBatch))
}

func TestHashOrderDependent(t *testing.T) {
	set := txs(5)

	h1, err := Hash(set)
	require.NoError(t, err)

	h2, err := Hash(txs(5))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	swapped := txs(5)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	h3, err := Hash(swapped)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	single, err := Hash(txs(1))
	require.NoError(t, err)
	assert.NotEmpty(t, single)

	_, err = Hash(nil)
	assert.True(t, errors.Is(err, consensus.ErrEmptyBatch))
}

func TestHashBindsCount(t *testing.T) {
	odd := txs(3)
	h1, err := Hash(odd)
	require.NoError(t, err)

	// the tree pads an odd level with its last leaf
	padded := append(txs(3), odd[2])
	h2, err := Hash(padded)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	h3, err := Hash(txs(1))
	require.NoError(t, err)
	h4, err := Hash(append(txs(1), txs(1)[0]))
	require.NoError(t, err)
	assert.NotEqual(t, h3, h4)
}

func TestEntropy(t *testing.T) {
	// one symbol only
	assert.Equal(t, 0.0, Entropy([][]byte{{7, 7, 7, 7}}))
	// two equally likely symbols
	assert.InDelta(t, 1.0, Entropy([][]byte{{0, 1}, {1, 0}}), 1e-9)
	// every byte value once
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	assert.InDelta(t, 8.0, Entropy([][]byte{all}), 1e-9)

	assert.Equal(t, 0.0, Entropy(nil))
}
