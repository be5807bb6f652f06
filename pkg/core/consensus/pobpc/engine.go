// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package pobpc

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/agreement"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/capi"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/committee"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/coordinator"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/metrics"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/zkproof"
	"github.com/dusk-network/dusk-pobpc/pkg/core/mempool"
	"github.com/dusk-network/dusk-pobpc/pkg/crypto/signer"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
)

var log = logger.WithFields(logger.Fields{"process": "pobpc"})

// Engine owns the state of the batch consensus: the witness registry, the
// ingress queue, the metrics and the voting rounds. It is safe for
// concurrent use.
type Engine struct {
	conf atomic.Value

	ingress     *mempool.Ingress
	registry    *committee.Registry
	metrics     *metrics.Aggregator
	coordinator *coordinator.Coordinator

	oracle   consensus.ProofOracle
	verifier consensus.SignatureVerifier

	ledger       *capi.Ledger
	witnessStore *committee.Store
	metricsStore *metrics.Store

	strategy        committee.CountStrategy
	coordinatorOpts []coordinator.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithOracle replaces the default HashOracle.
func WithOracle(o consensus.ProofOracle) Option {
	return func(e *Engine) {
		e.oracle = o
	}
}

// WithVerifier replaces the default Ed25519 signature verifier.
func WithVerifier(v consensus.SignatureVerifier) Option {
	return func(e *Engine) {
		e.verifier = v
	}
}

// WithIngress replaces the default ingress queue.
func WithIngress(i *mempool.Ingress) Option {
	return func(e *Engine) {
		e.ingress = i
	}
}

// WithRegistry replaces the default in-memory witness registry.
func WithRegistry(r *committee.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithCountStrategy decides the committee size in adaptive selection mode.
func WithCountStrategy(s committee.CountStrategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithLedger records the outcome of every batch in l. The engine closes it.
func WithLedger(l *capi.Ledger) Option {
	return func(e *Engine) {
		e.ledger = l
	}
}

// WithWitnessStore persists the witnesses in s. The engine closes it.
func WithWitnessStore(s *committee.Store) Option {
	return func(e *Engine) {
		e.witnessStore = s
	}
}

// WithMetricsStore restores the metrics from s and saves them back on Save
// and Close. The engine closes it.
func WithMetricsStore(s *metrics.Store) Option {
	return func(e *Engine) {
		e.metricsStore = s
	}
}

// WithCoordinatorOptions passes options to the batch coordinator.
func WithCoordinatorOptions(opts ...coordinator.Option) Option {
	return func(e *Engine) {
		e.coordinatorOpts = append(e.coordinatorOpts, opts...)
	}
}

// New creates an Engine. An invalid configuration is rejected with
// consensus.ErrInvalidConfig.
func New(c consensus.BatchConfig, opts ...Option) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{metrics: metrics.New()}
	e.conf.Store(c)

	for _, opt := range opts {
		opt(e)
	}

	if e.ingress == nil {
		e.ingress = mempool.NewIngress(0)
	}

	if e.oracle == nil {
		e.oracle = zkproof.NewHashOracle()
	}

	if e.verifier == nil {
		e.verifier = signer.Ed25519{}
	}

	if e.registry == nil {
		var ropts []committee.Option
		if e.witnessStore != nil {
			ropts = append(ropts, committee.WithStore(e.witnessStore))
		}

		if e.strategy != nil {
			ropts = append(ropts, committee.WithCountStrategy(e.strategy))
		}

		r, err := committee.NewRegistry(ropts...)
		if err != nil {
			return nil, err
		}

		e.registry = r
	}

	if e.metricsStore != nil {
		start := time.Now()
		if err := e.metrics.Load(e.metricsStore); err != nil {
			return nil, errors.Wrap(err, "could not restore metrics")
		}

		e.metrics.RecordSync(time.Since(start))
	}

	copts := e.coordinatorOpts
	if e.ledger != nil {
		copts = append([]coordinator.Option{coordinator.WithOutcomeRecorder(e.ledger)}, copts...)
	}

	var err error
	e.coordinator, err = coordinator.New(e, e.ingress, e.registry, e.oracle, e.verifier, e.metrics, copts...)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"witness_count": c.WitnessCount,
		"batch_size":    c.BatchSize,
		"threshold":     c.ConsensusThreshold,
	}).Info("engine started")
	return e, nil
}

// AddTransaction admits tx to the ingress queue without blocking. It fails
// with an error wrapping consensus.ErrCapacity when the queue is full or
// being drained.
func (e *Engine) AddTransaction(tx []byte) error {
	return e.ingress.Add(tx)
}

// GenerateBatchProof forms a batch from the pending transactions and opens
// its voting round. It fails with consensus.ErrEmptyBatch when nothing is
// pending and with consensus.ErrOracle when the batch cannot be proven.
func (e *Engine) GenerateBatchProof(ctx context.Context) (*batch.Proof, error) {
	return e.coordinator.Generate(ctx)
}

// VerifyBatchProof checks a proof independently of live voting.
func (e *Engine) VerifyBatchProof(ctx context.Context, p *batch.Proof) error {
	return e.coordinator.Verify(ctx, p)
}

// RegisterWitness adds a witness with no validation history.
func (e *Engine) RegisterWitness(nodeID string, publicKey []byte) error {
	return e.registry.Register(nodeID, publicKey)
}

// SelectWitnesses draws a committee with the current configuration and
// queue load.
func (e *Engine) SelectWitnesses() []committee.Info {
	selected := e.registry.Select(e.Config(), committee.Load{
		QueueDepth:    e.ingress.Len(),
		QueueCapacity: e.ingress.Cap(),
	})

	infos := make([]committee.Info, len(selected))
	for i, w := range selected {
		infos[i] = w.Info()
	}

	return infos
}

// SubmitWitnessVote records the vote of witnessID on the batch of p. It
// returns false when the vote is not accepted.
func (e *Engine) SubmitWitnessVote(witnessID string, signature []byte, p *batch.Proof) bool {
	return e.coordinator.SubmitVote(witnessID, signature, p)
}

// HasReachedConsensus reports whether p is ready for consensus.
func (e *Engine) HasReachedConsensus(p *batch.Proof) bool {
	return agreement.HasReachedConsensus(p)
}

// CalculateConsensusConfidence is the reliability-weighted share of the
// committee of p that signed it.
func (e *Engine) CalculateConsensusConfidence(p *batch.Proof) float64 {
	return agreement.CalculateConfidence(p)
}

// Metrics returns a snapshot of the engine metrics.
func (e *Engine) Metrics() metrics.Snapshot {
	return e.metrics.Snapshot()
}

// HealthScore is the health score of the current metrics.
func (e *Engine) HealthScore() float64 {
	return e.metrics.HealthScore()
}

// ResetMetrics zeroes every metric.
func (e *Engine) ResetMetrics() {
	e.metrics.Reset()
}

// Config returns the configuration in force.
func (e *Engine) Config() consensus.BatchConfig {
	return e.conf.Load().(consensus.BatchConfig)
}

// UpdateConfig replaces the configuration. Batches already voting keep the
// parameters they were formed with.
func (e *Engine) UpdateConfig(c consensus.BatchConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}

	e.conf.Store(c)
	log.Info("configuration updated")
	return nil
}

// Witnesses lists the registered witnesses.
func (e *Engine) Witnesses() []committee.Info {
	return e.registry.Witnesses()
}

// Proof returns the proof and phase of a batch still held in memory.
func (e *Engine) Proof(batchHash []byte) (*batch.Proof, consensus.Phase, bool) {
	return e.coordinator.Proof(batchHash)
}

// Ledger is the outcome ledger, nil when none is configured.
func (e *Engine) Ledger() *capi.Ledger {
	return e.ledger
}

// Pending is the number of transactions waiting for a batch.
func (e *Engine) Pending() int {
	return e.ingress.Len()
}

// Save persists the witnesses and the metrics to their stores, if any.
func (e *Engine) Save() error {
	if err := e.registry.Save(); err != nil {
		return errors.Wrap(err, "could not save witnesses")
	}

	if e.metricsStore != nil {
		if err := e.metrics.Save(e.metricsStore); err != nil {
			return errors.Wrap(err, "could not save metrics")
		}
	}

	return nil
}

// Close stops every voting round, saves the state and closes the stores.
func (e *Engine) Close() error {
	e.coordinator.Close()

	err := e.Save()
	for _, c := range e.closers() {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}

	log.Info("engine stopped")
	return err
}

func (e *Engine) closers() []func() error {
	var closers []func() error
	if e.ledger != nil {
		closers = append(closers, e.ledger.Close)
	}

	if e.witnessStore != nil {
		closers = append(closers, e.witnessStore.Close)
	}

	if e.metricsStore != nil {
		closers = append(closers, e.metricsStore.Close)
	}

	return closers
}
