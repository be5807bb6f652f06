// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package metrics aggregates the process-wide consensus metrics. Every field
// is an independent atomic: a Snapshot may mix values read at slightly
// different instants.
package metrics

import (
	"sync/atomic"
	"time"

	logger "github.com/sirupsen/logrus"
)

var log = logger.WithFields(logger.Fields{"process": "metrics"})

type batchGroup struct {
	avgBatchSize        gauge
	formationTime       gauge
	proofGenerationTime gauge
	failedBatches       counter
	finalizedBatches    counter
	batchSuccessRate    gauge
}

type witnessGroup struct {
	avgWitnessCount     gauge
	witnessResponseTime gauge
	witnessTimeouts     counter
	witnessReliability  gauge
	maliciousAttempts   counter
	votes               counter
}

type zkpGroup struct {
	avgProofSize        gauge
	verifications       counter
	verificationsPassed counter
	verificationSuccess gauge
	recursiveDepthAvg   gauge
	proofOptimizations  counter
	quantumSpeedup      gauge
}

type networkGroup struct {
	consensusLatency  gauge
	networkThroughput gauge
	networkConflicts  counter
	bandwidthUsage    counter
	syncTime          gauge
}

// Aggregator holds the consensus metrics of the node.
type Aggregator struct {
	totalBatches         counter
	totalTransactions    counter
	avgBatchTime         gauge
	avgVerificationTime  gauge
	witnessParticipation gauge

	batch   batchGroup
	witness witnessGroup
	zkp     zkpGroup
	network networkGroup
}

// New returns an Aggregator in its initial state.
func New() *Aggregator {
	a := new(Aggregator)
	a.Reset()
	return a
}

// Reset brings every metric back to its initial value.
func (a *Aggregator) Reset() {
	for _, word := range a.fields() {
		atomic.StoreUint64(word, 0)
	}

	// ratios start at their ideal value
	a.batch.batchSuccessRate.store(1)
	a.witness.witnessReliability.store(1)
	a.zkp.verificationSuccess.store(1)
	a.zkp.recursiveDepthAvg.store(1)
	a.zkp.quantumSpeedup.store(1)

	log.Debug("metrics reset")
}

// BatchSample describes a generated batch proof.
type BatchSample struct {
	Transactions        int
	Bytes               int
	FormationTime       time.Duration
	ProofGenerationTime time.Duration
	Witnesses           int
	AvgReliability      float64
	ProofSize           int
	RecursiveDepth      int
	EnhancementFactor   float64
}

// RecordBatch accounts for a generated batch proof.
func (a *Aggregator) RecordBatch(s BatchSample) {
	n := a.totalBatches.inc()
	a.totalTransactions.add(uint64(s.Transactions))

	a.avgBatchTime.average(ms(s.FormationTime+s.ProofGenerationTime), n)
	a.batch.avgBatchSize.average(float64(s.Transactions), n)
	a.batch.formationTime.average(ms(s.FormationTime), n)
	a.batch.proofGenerationTime.average(ms(s.ProofGenerationTime), n)

	a.witness.avgWitnessCount.average(float64(s.Witnesses), n)
	if s.Witnesses > 0 {
		a.witness.witnessReliability.average(s.AvgReliability, n)
	}

	a.zkp.avgProofSize.average(float64(s.ProofSize), n)
	a.zkp.recursiveDepthAvg.average(float64(s.RecursiveDepth), n)
	a.zkp.quantumSpeedup.average(s.EnhancementFactor, n)

	a.network.bandwidthUsage.add(uint64(s.Bytes + s.ProofSize))
}

// RecordFailedBatch accounts for a batch discarded by the proof oracle or
// closed without consensus.
func (a *Aggregator) RecordFailedBatch() {
	failed := a.batch.failedBatches.inc()
	a.updateSuccessRate(a.batch.finalizedBatches.load(), failed)
}

// RecordTimeout accounts for a batch that timed out with absent committee
// members missing.
func (a *Aggregator) RecordTimeout(absent int) {
	a.witness.witnessTimeouts.add(uint64(absent))
	a.RecordFailedBatch()
}

// RecordConsensus accounts for a batch reaching consensus after latency,
// with votes signatures out of a committee of size members.
func (a *Aggregator) RecordConsensus(latency time.Duration, transactions, votes, size int) {
	finalized := a.batch.finalizedBatches.inc()
	a.updateSuccessRate(finalized, a.batch.failedBatches.load())

	a.network.consensusLatency.average(ms(latency), finalized)
	if size > 0 {
		a.witnessParticipation.average(float64(votes)/float64(size), finalized)
	}

	if latency > 0 {
		a.network.networkThroughput.average(float64(transactions)/latency.Seconds(), finalized)
	}
}

// RecordVote accounts for an accepted vote received after response.
func (a *Aggregator) RecordVote(response time.Duration) {
	n := a.witness.votes.inc()
	a.witness.witnessResponseTime.average(ms(response), n)
}

// RecordMaliciousVote accounts for a vote whose signature did not verify.
func (a *Aggregator) RecordMaliciousVote() {
	a.witness.maliciousAttempts.inc()
}

// RecordVerification accounts for a proof verification of duration d.
func (a *Aggregator) RecordVerification(ok bool, d time.Duration) {
	n := a.zkp.verifications.inc()
	passed := a.zkp.verificationsPassed.load()
	if ok {
		passed = a.zkp.verificationsPassed.inc()
	}

	a.zkp.verificationSuccess.store(float64(passed) / float64(n))
	a.avgVerificationTime.average(ms(d), n)
}

// RecordProofOptimization accounts for a verification answered from cache.
func (a *Aggregator) RecordProofOptimization() {
	a.zkp.proofOptimizations.inc()
}

// RecordConflict accounts for a proof that contradicts the local view of a
// batch.
func (a *Aggregator) RecordConflict() {
	a.network.networkConflicts.inc()
}

// RecordSync accounts for the time spent restoring persisted state.
func (a *Aggregator) RecordSync(d time.Duration) {
	a.network.syncTime.store(ms(d))
}

func (a *Aggregator) updateSuccessRate(finalized, failed uint64) {
	if finalized+failed == 0 {
		return
	}

	a.batch.batchSuccessRate.store(float64(finalized) / float64(finalized+failed))
}

// Snapshot reads every metric.
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		TotalBatches:         a.totalBatches.load(),
		TotalTransactions:    a.totalTransactions.load(),
		AvgBatchTime:         a.avgBatchTime.load(),
		AvgVerificationTime:  a.avgVerificationTime.load(),
		WitnessParticipation: a.witnessParticipation.load(),
		Batch: BatchMetrics{
			AvgBatchSize:        a.batch.avgBatchSize.load(),
			BatchFormationTime:  a.batch.formationTime.load(),
			ProofGenerationTime: a.batch.proofGenerationTime.load(),
			FailedBatches:       a.batch.failedBatches.load(),
			FinalizedBatches:    a.batch.finalizedBatches.load(),
			BatchSuccessRate:    a.batch.batchSuccessRate.load(),
		},
		Witness: WitnessMetrics{
			AvgWitnessCount:     a.witness.avgWitnessCount.load(),
			WitnessResponseTime: a.witness.witnessResponseTime.load(),
			WitnessTimeouts:     a.witness.witnessTimeouts.load(),
			WitnessReliability:  a.witness.witnessReliability.load(),
			MaliciousAttempts:   a.witness.maliciousAttempts.load(),
		},
		ZKP: ZKPMetrics{
			AvgProofSize:        a.zkp.avgProofSize.load(),
			VerificationSuccess: a.zkp.verificationSuccess.load(),
			RecursiveDepthAvg:   a.zkp.recursiveDepthAvg.load(),
			ProofOptimizations:  a.zkp.proofOptimizations.load(),
			QuantumSpeedup:      a.zkp.quantumSpeedup.load(),
		},
		Network: NetworkMetrics{
			ConsensusLatency:  a.network.consensusLatency.load(),
			NetworkThroughput: a.network.networkThroughput.load(),
			NetworkConflicts:  a.network.networkConflicts.load(),
			BandwidthUsage:    a.network.bandwidthUsage.load(),
			SyncTime:          a.network.syncTime.load(),
		},
	}
}

// HealthScore is Snapshot().HealthScore().
func (a *Aggregator) HealthScore() float64 {
	return a.Snapshot().HealthScore()
}

// fields maps the persisted name of every metric to its storage.
func (a *Aggregator) fields() map[string]*uint64 {
	return map[string]*uint64{
		"total_batches":         &a.totalBatches.v,
		"total_transactions":    &a.totalTransactions.v,
		"avg_batch_time":        &a.avgBatchTime.bits,
		"avg_verification_time": &a.avgVerificationTime.bits,
		"witness_participation": &a.witnessParticipation.bits,

		"batch.avg_batch_size":          &a.batch.avgBatchSize.bits,
		"batch.batch_formation_time":    &a.batch.formationTime.bits,
		"batch.proof_generation_time":   &a.batch.proofGenerationTime.bits,
		"batch.failed_batches":          &a.batch.failedBatches.v,
		"batch.finalized_batches":       &a.batch.finalizedBatches.v,
		"batch.batch_success_rate":      &a.batch.batchSuccessRate.bits,
		"witness.avg_witness_count":     &a.witness.avgWitnessCount.bits,
		"witness.witness_response_time": &a.witness.witnessResponseTime.bits,
		"witness.witness_timeouts":      &a.witness.witnessTimeouts.v,
		"witness.witness_reliability":   &a.witness.witnessReliability.bits,
		"witness.malicious_attempts":    &a.witness.maliciousAttempts.v,
		"witness.votes":                 &a.witness.votes.v,
		"zkp.avg_proof_size":            &a.zkp.avgProofSize.bits,
		"zkp.verifications":             &a.zkp.verifications.v,
		"zkp.verifications_passed":      &a.zkp.verificationsPassed.v,
		"zkp.verification_success":      &a.zkp.verificationSuccess.bits,
		"zkp.recursive_depth_avg":       &a.zkp.recursiveDepthAvg.bits,
		"zkp.proof_optimizations":       &a.zkp.proofOptimizations.v,
		"zkp.quantum_speedup":           &a.zkp.quantumSpeedup.bits,
		"network.consensus_latency":     &a.network.consensusLatency.bits,
		"network.network_throughput":    &a.network.networkThroughput.bits,
		"network.network_conflicts":     &a.network.networkConflicts.v,
		"network.bandwidth_usage":       &a.network.bandwidthUsage.v,
		"network.sync_time":             &a.network.syncTime.bits,
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
