// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package batch

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/dusk-network/dusk-crypto/hash"
	"github.com/dusk-network/dusk-crypto/merkletree"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

var log = logger.WithFields(logger.Fields{"process": "batch"})

// Source hands out pending transactions in admission order.
type Source interface {
	Drain(max int) [][]byte
}

// Batch is a drained set of transactions with its support data.
type Batch struct {
	Transactions [][]byte
	Hash         []byte

	AvgTxSize     float64
	Entropy       float64
	FormationTime time.Duration
}

// Assembler forms batches out of a Source.
type Assembler struct {
	src Source
}

// NewAssembler creates an Assembler draining src.
func NewAssembler(src Source) *Assembler {
	return &Assembler{src: src}
}

// Assemble drains up to size transactions and hashes them. It returns
// consensus.ErrEmptyBatch when nothing is pending.
func (a *Assembler) Assemble(size int) (*Batch, error) {
	start := time.Now()

	txs := a.src.Drain(size)
	if len(txs) == 0 {
		return nil, consensus.ErrEmptyBatch
	}

	root, err := Hash(txs)
	if err != nil {
		return nil, err
	}

	var total int
	for _, tx := range txs {
		total += len(tx)
	}

	b := &Batch{
		Transactions:  txs,
		Hash:          root,
		AvgTxSize:     float64(total) / float64(len(txs)),
		Entropy:       Entropy(txs),
		FormationTime: time.Since(start),
	}

	log.WithFields(logger.Fields{
		"transactions": len(txs),
		"avg_tx_size":  b.AvgTxSize,
	}).Debug("batch assembled")
	return b, nil
}

// Hash is the SHA3-256 digest of the transaction count followed by the
// Merkle root over the SHA3-256 digests of txs, in order.
func Hash(txs [][]byte) ([]byte, error) {
	if len(txs) == 0 {
		return nil, consensus.ErrEmptyBatch
	}

	payloads := make([]merkletree.Payload, len(txs))
	for i, tx := range txs {
		p, err := newSHA3Payload(tx)
		if err != nil {
			return nil, err
		}

		payloads[i] = p
	}

	tree, err := merkletree.NewTree(payloads)
	if err != nil {
		return nil, errors.Wrap(err, "could not build batch tree")
	}

	buf := make([]byte, 4, 4+len(tree.MerkleRoot))
	binary.BigEndian.PutUint32(buf, uint32(len(txs)))
	return hash.Sha3256(append(buf, tree.MerkleRoot...))
}

// Entropy is the Shannon entropy, in bits, of the byte distribution over
// all of txs.
func Entropy(txs [][]byte) float64 {
	var counts [256]float64
	var total float64
	for _, tx := range txs {
		for _, b := range tx {
			counts[b]++
		}

		total += float64(len(tx))
	}

	if total == 0 {
		return 0
	}

	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = c / total
	}

	return stat.Entropy(p) / math.Ln2
}

// sha3Payload is a transaction digest usable as a Merkle leaf.
type sha3Payload struct {
	hash []byte
}

func newSHA3Payload(tx []byte) (sha3Payload, error) {
	h, err := hash.Sha3256(tx)
	if err != nil {
		return sha3Payload{}, err
	}

	return sha3Payload{h}, nil
}

// CalculateHash implements merkletree.Payload.
func (s sha3Payload) CalculateHash() ([]byte, error) {
	return s.hash, nil
}

// Equals implements merkletree.Payload.
func (s sha3Payload) Equals(other interface{}) bool {
	o, ok := other.(sha3Payload)
	if !ok {
		return false
	}

	return bytes.Equal(s.hash, o.hash)
}
