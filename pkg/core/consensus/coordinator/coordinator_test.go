// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package coordinator

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/committee"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/metrics"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/zkproof"
	"github.com/dusk-network/dusk-pobpc/pkg/core/mempool"
	"github.com/dusk-network/dusk-pobpc/pkg/crypto/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticConfig consensus.BatchConfig

func (s staticConfig) Config() consensus.BatchConfig {
	return consensus.BatchConfig(s)
}

type outcomes struct {
	lock   sync.Mutex
	phases []consensus.Phase
}

func (o *outcomes) RecordOutcome(_ *batch.Proof, phase consensus.Phase, _ time.Duration) error {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.phases = append(o.phases, phase)
	return nil
}

func (o *outcomes) recorded() []consensus.Phase {
	o.lock.Lock()
	defer o.lock.Unlock()
	return append([]consensus.Phase(nil), o.phases...)
}

type harness struct {
	c        *Coordinator
	queue    *mempool.Ingress
	registry *committee.Registry
	metrics  *metrics.Aggregator
	keys     map[string]*signer.Keys
	outcomes *outcomes
}

func newHarness(t *testing.T, conf consensus.BatchConfig, witnesses int, oracle consensus.ProofOracle, opts ...Option) *harness {
	registry, err := committee.NewRegistry(committee.WithSeed(1))
	require.NoError(t, err)

	h := &harness{
		queue:    mempool.NewIngress(64),
		registry: registry,
		metrics:  metrics.New(),
		keys:     make(map[string]*signer.Keys),
		outcomes: new(outcomes),
	}

	for i := 0; i < witnesses; i++ {
		id := fmt.Sprintf("w%d", i)
		keys, err := signer.GenerateKeys(signer.SchemeEd25519, rand.Reader)
		require.NoError(t, err)
		require.NoError(t, registry.Register(id, keys.PublicKey))
		h.keys[id] = keys
	}

	if oracle == nil {
		oracle = zkproof.NewHashOracle()
	}

	opts = append([]Option{WithOutcomeRecorder(h.outcomes)}, opts...)
	h.c, err = New(staticConfig(conf), h.queue, registry, oracle, signer.Ed25519{}, h.metrics, opts...)
	require.NoError(t, err)

	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) addTransactions(t *testing.T, n int) {
	for i := 0; i < n; i++ {
		require.NoError(t, h.queue.Add([]byte(fmt.Sprintf("tx-%d-%d", i, time.Now().UnixNano()))))
	}
}

func (h *harness) sign(t *testing.T, id string, p *batch.Proof) []byte {
	sig, err := h.keys[id].Sign(p.BatchHash)
	require.NoError(t, err)
	return sig
}

func TestGenerateEmptyBatch(t *testing.T) {
	h := newHarness(t, consensus.DefaultBatchConfig(), 4, nil)

	_, err := h.c.Generate(context.Background())
	assert.True(t, errors.Is(err, consensus.ErrEmptyBatch))
	assert.Equal(t, uint64(0), h.metrics.Snapshot().TotalBatches)
}

func TestGenerate(t *testing.T) {
	h := newHarness(t, consensus.DefaultBatchConfig(), 4, nil)
	h.addTransactions(t, 10)

	p, err := h.c.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, p.TransactionCount)
	assert.NotEmpty(t, p.BatchHash)
	assert.True(t, p.IsValid())
	assert.True(t, p.ZKP.IsComplete())
	assert.Equal(t, []string{"w0", "w1", "w2", "w3"}, p.Witnesses.SelectedWitnesses)
	assert.Equal(t, []int64{0, 0, 0, 0}, p.Witnesses.VerificationTimes)
	assert.Equal(t, 0.75, p.Witnesses.QuorumThreshold)
	assert.Equal(t, 0, p.Votes())
	for _, r := range p.Witnesses.ReliabilityScores {
		assert.Equal(t, 0.8, r)
	}

	_, phase, ok := h.c.Proof(p.BatchHash)
	require.True(t, ok)
	assert.Equal(t, consensus.Voting, phase)

	s := h.metrics.Snapshot()
	assert.Equal(t, uint64(1), s.TotalBatches)
	assert.Equal(t, uint64(10), s.TotalTransactions)
	assert.Equal(t, 4.0, s.Witness.AvgWitnessCount)

	// timestamps only grow
	h.addTransactions(t, 1)
	p2, err := h.c.Generate(context.Background())
	require.NoError(t, err)
	assert.Greater(t, p2.Timestamp, p.Timestamp)
}

func TestVotingReachesConsensus(t *testing.T) {
	h := newHarness(t, consensus.DefaultBatchConfig(), 4, nil)
	h.addTransactions(t, 10)

	p, err := h.c.Generate(context.Background())
	require.NoError(t, err)

	for _, id := range []string{"w0", "w1"} {
		assert.True(t, h.c.SubmitVote(id, h.sign(t, id, p), p))
	}

	assert.False(t, p.Witnesses.HasQuorum())
	assert.False(t, h.c.SubmitVote("w1", h.sign(t, "w1", p), p), "repeated vote")

	assert.True(t, h.c.SubmitVote("w2", h.sign(t, "w2", p), p))
	assert.True(t, p.Witnesses.HasQuorum())
	assert.True(t, p.Witnesses.HasConsensus)
	assert.Equal(t, 3, p.Votes())

	_, phase, _ := h.c.Proof(p.BatchHash)
	assert.Equal(t, consensus.ConsensusReached, phase)

	// closed
	assert.False(t, h.c.SubmitVote("w3", h.sign(t, "w3", p), p))

	w, _ := h.registry.Get("w0")
	assert.Equal(t, 1.0, w.Reliability())

	s := h.metrics.Snapshot()
	assert.Equal(t, uint64(1), s.Batch.FinalizedBatches)
	assert.Equal(t, 0.75, s.WitnessParticipation)
	assert.Equal(t, []consensus.Phase{consensus.ConsensusReached}, h.outcomes.recorded())
}

func TestRejectedVotes(t *testing.T) {
	h := newHarness(t, consensus.DefaultBatchConfig(), 5, nil)
	h.addTransactions(t, 3)

	p, err := h.c.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Witnesses.SelectedWitnesses, 4)

	member := p.Witnesses.SelectedWitnesses[0]
	var outsider string
	for id := range h.keys {
		if p.Witnesses.IndexOf(id) < 0 {
			outsider = id
		}
	}

	// outside the committee
	assert.False(t, h.c.SubmitVote(outsider, h.sign(t, outsider, p), p))

	// signed by someone else
	assert.False(t, h.c.SubmitVote(member, h.sign(t, outsider, p), p))
	w, _ := h.registry.Get(member)
	successful, total := w.Counters()
	assert.Equal(t, uint32(0), successful)
	assert.Equal(t, uint32(1), total)
	assert.Equal(t, uint64(1), h.metrics.Snapshot().Witness.MaliciousAttempts)

	// unknown batch
	other := p.Copy()
	other.BatchHash = []byte{9, 9, 9}
	assert.False(t, h.c.SubmitVote(member, h.sign(t, member, other), other))

	assert.False(t, h.c.SubmitVote(member, nil, p))
	assert.False(t, h.c.SubmitVote(member, []byte{1}, nil))
}

func TestTimeout(t *testing.T) {
	conf := consensus.DefaultBatchConfig()
	conf.BatchTimeout = 30 * time.Millisecond
	h := newHarness(t, conf, 4, nil)
	h.addTransactions(t, 2)

	p, err := h.c.Generate(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, phase, _ := h.c.Proof(p.BatchHash)
		return phase == consensus.TimedOut
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, h.c.SubmitVote("w0", h.sign(t, "w0", p), p))

	w, _ := h.registry.Get("w0")
	_, total := w.Counters()
	assert.Equal(t, uint32(0), total)

	require.Eventually(t, func() bool {
		return len(h.outcomes.recorded()) == 1
	}, time.Second, 5*time.Millisecond)

	s := h.metrics.Snapshot()
	assert.Equal(t, uint64(4), s.Witness.WitnessTimeouts)
	assert.Equal(t, uint64(1), s.Batch.FailedBatches)
}

func TestRoundEviction(t *testing.T) {
	conf := consensus.DefaultBatchConfig()
	conf.BatchTimeout = 50 * time.Millisecond
	h := newHarness(t, conf, 4, nil, WithRoundCacheSize(1))

	h.addTransactions(t, 1)
	first, err := h.c.Generate(context.Background())
	require.NoError(t, err)

	h.addTransactions(t, 1)
	_, err = h.c.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, h.c.Rounds())
	assert.False(t, h.c.SubmitVote("w0", h.sign(t, "w0", first), first))

	// the evicted round times out at once, the live one on its timer
	assert.Equal(t, []consensus.Phase{consensus.TimedOut}, h.outcomes.recorded())
	require.Eventually(t, func() bool {
		return len(h.outcomes.recorded()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []consensus.Phase{consensus.TimedOut, consensus.TimedOut}, h.outcomes.recorded())
	assert.Equal(t, uint64(2), h.metrics.Snapshot().Batch.FailedBatches)
}

func TestRoundReplaced(t *testing.T) {
	h := newHarness(t, consensus.DefaultBatchConfig(), 4, nil)

	require.NoError(t, h.queue.Add([]byte("same tx")))
	first, err := h.c.Generate(context.Background())
	require.NoError(t, err)

	require.NoError(t, h.queue.Add([]byte("same tx")))
	second, err := h.c.Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, first.BatchHash, second.BatchHash)

	assert.Equal(t, 1, h.c.Rounds())
	assert.Equal(t, []consensus.Phase{consensus.TimedOut}, h.outcomes.recorded())

	_, phase, ok := h.c.Proof(second.BatchHash)
	require.True(t, ok)
	assert.Equal(t, consensus.Voting, phase)
}

type brokenOracle struct {
	zkproof.HashOracle
	generate error
	verify   float64
}

func (b *brokenOracle) GenerateProof(ctx context.Context, txs [][]byte, hash []byte, layers int) (consensus.ProofOutput, error) {
	if b.generate != nil {
		return consensus.ProofOutput{}, b.generate
	}

	return b.HashOracle.GenerateProof(ctx, txs, hash, layers)
}

func (b *brokenOracle) VerifyProof(context.Context, []byte, []byte) (float64, error) {
	return b.verify, nil
}

func TestOracleFailure(t *testing.T) {
	oracle := &brokenOracle{HashOracle: *zkproof.NewHashOracle(), generate: errors.New("prover down")}
	h := newHarness(t, consensus.DefaultBatchConfig(), 4, oracle)
	h.addTransactions(t, 3)

	_, err := h.c.Generate(context.Background())
	assert.True(t, errors.Is(err, consensus.ErrOracle))
	assert.Equal(t, uint64(1), h.metrics.Snapshot().Batch.FailedBatches)

	// a proof its own oracle does not attest is discarded too
	oracle.generate = nil
	h.addTransactions(t, 3)
	_, err = h.c.Generate(context.Background())
	assert.True(t, errors.Is(err, consensus.ErrOracle))
	assert.Equal(t, uint64(2), h.metrics.Snapshot().Batch.FailedBatches)
}
