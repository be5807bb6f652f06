// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package coordinator

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/agreement"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"
)

// Verify checks a batch proof independently of live voting. The proof is
// accepted iff it is structurally valid, its proof data attests its batch
// hash, every signature it carries verifies against the registered key of
// its witness and it is ready for consensus.
//
// Signatures are verified in NumParallelVerifiers concurrent shards, and the
// whole check is bounded by MaxBatchVerificationTime. The returned error
// wraps consensus.ErrInvalidProof, consensus.ErrVerification or
// consensus.ErrTimeout.
func (c *Coordinator) Verify(ctx context.Context, p *batch.Proof) error {
	start := time.Now()
	err := c.verify(ctx, p)
	c.metrics.RecordVerification(err == nil, time.Since(start))

	if err != nil {
		log.WithError(err).Debug("batch proof rejected")
	}

	return err
}

func (c *Coordinator) verify(ctx context.Context, p *batch.Proof) error {
	if !p.IsValid() || len(p.WitnessSignatures) != len(p.Witnesses.SelectedWitnesses) {
		return errors.Wrap(consensus.ErrInvalidProof, "malformed proof")
	}

	if !agreement.IsReadyForConsensus(p) {
		return errors.Wrap(consensus.ErrInvalidProof, "no consensus")
	}

	digest := proofDigest(p)
	if c.verified.Contains(digest) {
		c.metrics.RecordProofOptimization()
		return nil
	}

	if local, _, ok := c.Proof(p.BatchHash); ok && !bytes.Equal(local.ProofData, p.ProofData) {
		c.metrics.RecordConflict()
		log.WithField("batch", hex.EncodeToString(local.BatchHash)).Warn("conflicting proof for a known batch")
		return errors.Wrap(consensus.ErrInvalidProof, "conflicting proof")
	}

	conf := c.conf.Config()
	if conf.MaxBatchVerificationTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.MaxBatchVerificationTime)
		defer cancel()
	}

	confidence, err := c.oracle.VerifyProof(ctx, p.ProofData, p.BatchHash)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(consensus.ErrTimeout, err.Error())
		}

		return errors.Wrap(consensus.ErrInvalidProof, err.Error())
	}

	if confidence <= 0 {
		return errors.Wrap(consensus.ErrInvalidProof, "proof data does not attest the batch")
	}

	if err := c.verifySignatures(ctx, p, conf.NumParallelVerifiers); err != nil {
		return err
	}

	c.verified.Add(digest, struct{}{})
	return nil
}

// verifySignatures fans the non-empty signatures of p out to shards and
// returns once every shard is done.
func (c *Coordinator) verifySignatures(ctx context.Context, p *batch.Proof, shards int) error {
	n := len(p.WitnessSignatures)
	if shards <= 0 {
		shards = 1
	}

	size := (n + shards - 1) / shards
	if size == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}

		lo := lo
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return errors.Wrap(consensus.ErrTimeout, err.Error())
				}

				if err := c.verifySignature(p, i); err != nil {
					return err
				}
			}

			return nil
		})
	}

	err := g.Wait()
	if err != nil && ctx.Err() != nil && !errors.Is(err, consensus.ErrVerification) {
		return errors.Wrap(consensus.ErrTimeout, ctx.Err().Error())
	}

	return err
}

func (c *Coordinator) verifySignature(p *batch.Proof, i int) error {
	sig := p.WitnessSignatures[i]
	if len(sig) == 0 {
		return nil
	}

	id := p.Witnesses.SelectedWitnesses[i]
	w, ok := c.registry.Get(id)
	if !ok {
		return errors.Wrapf(consensus.ErrVerification, "unknown witness %s", id)
	}

	if err := c.verifier.Verify(w.PublicKey, p.BatchHash, sig); err != nil {
		log.WithFields(logger.Fields{
			"witness": id,
			"index":   i,
		}).Debug("signature does not verify")

		if errors.Is(err, consensus.ErrVerification) {
			return err
		}

		return errors.Wrap(consensus.ErrVerification, err.Error())
	}

	return nil
}

// proofDigest identifies p together with its signatures and the whole of
// its committee bookkeeping, so that a cached success never covers a proof
// whose signatures are credited to other witnesses.
func proofDigest(p *batch.Proof) string {
	h := sha3.New256()
	writeField(h, p.BatchHash)
	writeField(h, p.ProofData)

	for _, sig := range p.WitnessSignatures {
		writeField(h, sig)
	}

	wd := p.Witnesses
	for i, id := range wd.SelectedWitnesses {
		writeField(h, []byte(id))
		writeUint64(h, math.Float64bits(wd.ReliabilityScores[i]))
		writeUint64(h, uint64(wd.VerificationTimes[i]))
	}

	writeUint64(h, math.Float64bits(wd.QuorumThreshold))
	writeUint64(h, math.Float64bits(p.ZKP.VerificationConfidence))
	return string(h.Sum(nil))
}

// writeField writes b length-prefixed, keeping field boundaries unambiguous.
func writeField(w io.Writer, b []byte) {
	writeUint64(w, uint64(len(b)))
	_, _ = w.Write(b)
}

func writeUint64(w io.Writer, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, _ = w.Write(buf[:])
}
