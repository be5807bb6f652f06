// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package coordinator

import (
	"context"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/agreement"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/committee"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/metrics"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
)

var log = logger.WithFields(logger.Fields{"process": "coordinator"})

const (
	// DefaultRoundCacheSize is the number of batch rounds kept in memory.
	DefaultRoundCacheSize = 256
	// DefaultVerificationCacheSize is the number of verified proofs
	// remembered by VerifyBatchProof.
	DefaultVerificationCacheSize = 1024
)

// ConfigSource provides the batch configuration in force.
type ConfigSource interface {
	Config() consensus.BatchConfig
}

// Queue is the pending transaction queue batches are drained from.
type Queue interface {
	batch.Source
	Len() int
	Cap() int
}

// OutcomeRecorder stores the terminal outcome of a batch.
type OutcomeRecorder interface {
	RecordOutcome(p *batch.Proof, phase consensus.Phase, elapsed time.Duration) error
}

// Coordinator forms batches, runs the voting round of each of them and
// checks proofs received from elsewhere.
type Coordinator struct {
	conf      ConfigSource
	queue     Queue
	assembler *batch.Assembler
	registry  *committee.Registry
	oracle    consensus.ProofOracle
	verifier  consensus.SignatureVerifier
	metrics   *metrics.Aggregator
	recorder  OutcomeRecorder

	roundCacheSize        int
	verificationCacheSize int

	// hex batch hash -> *agreement.Round
	rounds *lru.Cache
	// proof digest -> struct{}
	verified *lru.Cache

	lastTimestamp int64
	closing       int32
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithOutcomeRecorder stores terminal rounds in r.
func WithOutcomeRecorder(r OutcomeRecorder) Option {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

// WithRoundCacheSize bounds the number of rounds kept in memory. An evicted
// round that is still voting times out.
func WithRoundCacheSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.roundCacheSize = n
		}
	}
}

// WithVerificationCacheSize bounds the number of remembered verifications.
func WithVerificationCacheSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.verificationCacheSize = n
		}
	}
}

// New creates a Coordinator.
func New(conf ConfigSource, queue Queue, registry *committee.Registry, oracle consensus.ProofOracle,
	verifier consensus.SignatureVerifier, agg *metrics.Aggregator, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		conf:                  conf,
		queue:                 queue,
		assembler:             batch.NewAssembler(queue),
		registry:              registry,
		oracle:                oracle,
		verifier:              verifier,
		metrics:               agg,
		roundCacheSize:        DefaultRoundCacheSize,
		verificationCacheSize: DefaultVerificationCacheSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	var err error
	c.rounds, err = lru.NewWithEvict(c.roundCacheSize, func(_, v interface{}) {
		r := v.(*agreement.Round)
		if atomic.LoadInt32(&c.closing) == 0 {
			r.Expire()
		}
		r.Stop()
	})
	if err != nil {
		return nil, err
	}

	if c.verified, err = lru.New(c.verificationCacheSize); err != nil {
		return nil, err
	}

	return c, nil
}

// Generate drains a batch from the queue, proves it, draws its committee and
// opens its voting round. The returned proof is a copy; the round keeps the
// canonical one.
func (c *Coordinator) Generate(ctx context.Context) (*batch.Proof, error) {
	conf := c.conf.Config()

	b, err := c.assembler.Assemble(conf.BatchSize)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := c.oracle.GenerateProof(ctx, b.Transactions, b.Hash, conf.RecursiveZKPLayers)
	genTime := time.Since(start)
	if err != nil {
		c.metrics.RecordFailedBatch()
		log.WithError(err).Error("proof generation failed")
		return nil, oracleError(err)
	}

	start = time.Now()
	confidence, err := c.oracle.VerifyProof(ctx, out.ProofData, b.Hash)
	verifyTime := time.Since(start)
	if err != nil || confidence <= 0 {
		c.metrics.RecordVerification(false, verifyTime)
		c.metrics.RecordFailedBatch()
		if err == nil {
			err = errors.New("proof rejected by its own oracle")
		}

		log.WithError(err).Error("proof self-verification failed")
		return nil, oracleError(err)
	}
	c.metrics.RecordVerification(true, verifyTime)

	if out.Confidence > 0 {
		confidence = out.Confidence
	}

	enhancement := out.EnhancementFactor
	if enhancement < 1 {
		enhancement = 1
	}

	selected := c.registry.Select(conf, committee.Load{
		QueueDepth:    c.queue.Len(),
		QueueCapacity: c.queue.Cap(),
	})

	floor := conf.MinReliability()
	ids := make([]string, len(selected))
	scores := make([]float64, len(selected))
	var reliability float64
	for i, w := range selected {
		ids[i] = w.NodeID
		scores[i] = w.EffectiveReliability(floor)
		reliability += scores[i]
	}

	if len(selected) > 0 {
		reliability /= float64(len(selected))
	}

	p := &batch.Proof{
		Timestamp:         c.timestamp(),
		TransactionCount:  len(b.Transactions),
		BatchHash:         b.Hash,
		ProofData:         out.ProofData,
		WitnessSignatures: make([][]byte, len(selected)),
		ZKP: batch.ZKPData{
			Commitment:             out.Commitment,
			Challenge:              out.Challenge,
			Response:               out.Response,
			RecursiveProof:         out.RecursiveProof,
			VerificationConfidence: confidence,
		},
		Witnesses: batch.WitnessData{
			SelectedWitnesses: ids,
			ReliabilityScores: scores,
			VerificationTimes: make([]int64, len(selected)),
			QuorumThreshold:   conf.ConsensusThreshold,
		},
		Metrics: batch.Metrics{
			AvgTxSize:           b.AvgTxSize,
			FormationTime:       ms(b.FormationTime),
			ProofGenerationTime: ms(genTime),
			VerificationTime:    ms(verifyTime),
			RecursiveDepth:      conf.RecursiveZKPLayers,
			EnhancementFactor:   enhancement,
			Entropy:             b.Entropy,
		},
	}

	r := agreement.NewRound(agreement.ListenerFunc(c.onTransition))
	if err := r.SetProof(p); err != nil {
		return nil, err
	}

	key := hex.EncodeToString(p.BatchHash)
	old, replaced := c.rounds.Peek(key)
	c.rounds.Add(key, r)
	if replaced {
		old.(*agreement.Round).Expire()
	}

	if err := r.StartVoting(conf.BatchTimeout); err != nil {
		return nil, err
	}

	c.metrics.RecordBatch(metrics.BatchSample{
		Transactions:        p.TransactionCount,
		Bytes:               int(b.AvgTxSize * float64(p.TransactionCount)),
		FormationTime:       b.FormationTime,
		ProofGenerationTime: genTime,
		Witnesses:           len(selected),
		AvgReliability:      reliability,
		ProofSize:           len(p.ProofData),
		RecursiveDepth:      conf.RecursiveZKPLayers,
		EnhancementFactor:   enhancement,
	})

	log.WithFields(logger.Fields{
		"batch":        key,
		"transactions": p.TransactionCount,
		"witnesses":    len(selected),
	}).Info("batch proof generated")
	return r.Proof(), nil
}

// SubmitVote accepts the signature of witnessID over the batch hash of p.
// Votes from outside the committee, votes for unknown or closed batches and
// repeated votes are ignored. A signature that does not verify lowers the
// reliability of the witness. On success the vote bookkeeping of p is
// refreshed from the round.
func (c *Coordinator) SubmitVote(witnessID string, sig []byte, p *batch.Proof) bool {
	if p == nil || len(sig) == 0 {
		return false
	}

	r, ok := c.Round(p.BatchHash)
	if !ok {
		log.WithField("witness", witnessID).Debug("vote for an unknown batch")
		return false
	}

	canonical := r.Proof()
	idx := canonical.Witnesses.IndexOf(witnessID)
	if idx < 0 || r.Phase() != consensus.Voting || r.HasVoted(idx) {
		return false
	}

	w, ok := c.registry.Get(witnessID)
	if !ok {
		return false
	}

	l := log.WithFields(logger.Fields{
		"witness": witnessID,
		"batch":   hex.EncodeToString(canonical.BatchHash),
	})

	if err := c.verifier.Verify(w.PublicKey, canonical.BatchHash, sig); err != nil {
		c.metrics.RecordMaliciousVote()
		if err := c.registry.UpdateReliability(witnessID, false); err != nil {
			l.WithError(err).Error("could not update reliability")
		}

		l.WithError(err).Warn("vote rejected")
		return false
	}

	now := time.Now()
	if !r.RecordVote(idx, sig, now) {
		return false
	}

	if err := c.registry.UpdateReliability(witnessID, true); err != nil {
		l.WithError(err).Error("could not update reliability")
	}

	c.metrics.RecordVote(now.Sub(time.Unix(0, canonical.Timestamp)))
	l.Debug("vote accepted")

	mirror(p, r.Proof())
	return true
}

// Round returns the voting round of the batch with the given hash.
func (c *Coordinator) Round(batchHash []byte) (*agreement.Round, bool) {
	v, ok := c.rounds.Get(hex.EncodeToString(batchHash))
	if !ok {
		return nil, false
	}

	return v.(*agreement.Round), true
}

// Proof returns a copy of the proof of the batch with the given hash, and
// the phase of its round.
func (c *Coordinator) Proof(batchHash []byte) (*batch.Proof, consensus.Phase, bool) {
	r, ok := c.Round(batchHash)
	if !ok {
		return nil, consensus.Collecting, false
	}

	return r.Proof(), r.Phase(), true
}

// Rounds is the number of rounds in memory.
func (c *Coordinator) Rounds() int {
	return c.rounds.Len()
}

// Close stops the timers of every round in memory and forgets them. Rounds
// still voting keep their phase.
func (c *Coordinator) Close() {
	atomic.StoreInt32(&c.closing, 1)
	c.rounds.Purge()
	c.verified.Purge()
}

func (c *Coordinator) onTransition(r *agreement.Round, from, to consensus.Phase) {
	if !to.Terminal() {
		return
	}

	p := r.Proof()
	elapsed := r.Elapsed()
	votes := p.Votes()
	size := len(p.Witnesses.SelectedWitnesses)

	l := log.WithFields(logger.Fields{
		"batch":   r.Key(),
		"votes":   votes,
		"members": size,
		"elapsed": elapsed,
	})

	switch to {
	case consensus.ConsensusReached:
		c.metrics.RecordConsensus(elapsed, p.TransactionCount, votes, size)
		l.Info("consensus reached")
	case consensus.TimedOut:
		c.metrics.RecordTimeout(size - votes)
		l.Warn("batch timed out")
	}

	if c.recorder == nil {
		return
	}

	if err := c.recorder.RecordOutcome(p, to, elapsed); err != nil {
		l.WithError(err).Error("could not record batch outcome")
	}
}

// timestamp returns unix nanoseconds, strictly increasing across calls.
func (c *Coordinator) timestamp() int64 {
	for {
		last := atomic.LoadInt64(&c.lastTimestamp)
		now := time.Now().UnixNano()
		if now <= last {
			now = last + 1
		}

		if atomic.CompareAndSwapInt64(&c.lastTimestamp, last, now) {
			return now
		}
	}
}

func mirror(dst, src *batch.Proof) {
	dst.WitnessSignatures = src.WitnessSignatures
	dst.Witnesses.VerificationTimes = src.Witnesses.VerificationTimes
	dst.Witnesses.HasConsensus = src.Witnesses.HasConsensus
}

func oracleError(err error) error {
	if errors.Is(err, consensus.ErrOracle) {
		return err
	}

	return errors.Wrap(consensus.ErrOracle, err.Error())
}

func ms(d time.Duration) float64 {
	v := float64(d) / float64(time.Millisecond)
	if v < 1e-6 {
		return 1e-6
	}

	return v
}
