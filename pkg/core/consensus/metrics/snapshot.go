// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package metrics

import "math"

// BatchMetrics is the batch group of a Snapshot. Times are in milliseconds.
type BatchMetrics struct {
	AvgBatchSize        float64 `json:"avg_batch_size"`
	BatchFormationTime  float64 `json:"batch_formation_time"`
	ProofGenerationTime float64 `json:"proof_generation_time"`
	FailedBatches       uint64  `json:"failed_batches"`
	FinalizedBatches    uint64  `json:"finalized_batches"`
	BatchSuccessRate    float64 `json:"batch_success_rate"`
}

// WitnessMetrics is the witness group of a Snapshot.
type WitnessMetrics struct {
	AvgWitnessCount     float64 `json:"avg_witness_count"`
	WitnessResponseTime float64 `json:"witness_response_time"`
	WitnessTimeouts     uint64  `json:"witness_timeouts"`
	WitnessReliability  float64 `json:"witness_reliability"`
	MaliciousAttempts   uint64  `json:"malicious_attempts"`
}

// ZKPMetrics is the proof group of a Snapshot.
type ZKPMetrics struct {
	AvgProofSize        float64 `json:"avg_proof_size"`
	VerificationSuccess float64 `json:"verification_success"`
	RecursiveDepthAvg   float64 `json:"recursive_depth_avg"`
	ProofOptimizations  uint64  `json:"proof_optimizations"`
	QuantumSpeedup      float64 `json:"quantum_speedup"`
}

// NetworkMetrics is the network group of a Snapshot.
type NetworkMetrics struct {
	ConsensusLatency  float64 `json:"consensus_latency"`
	NetworkThroughput float64 `json:"network_throughput"`
	NetworkConflicts  uint64  `json:"network_conflicts"`
	BandwidthUsage    uint64  `json:"bandwidth_usage"`
	SyncTime          float64 `json:"sync_time"`
}

// Snapshot is a copy of the metrics at about one instant.
type Snapshot struct {
	TotalBatches         uint64  `json:"total_batches"`
	TotalTransactions    uint64  `json:"total_transactions"`
	AvgBatchTime         float64 `json:"avg_batch_time"`
	AvgVerificationTime  float64 `json:"avg_verification_time"`
	WitnessParticipation float64 `json:"witness_participation"`

	Batch   BatchMetrics   `json:"batch"`
	Witness WitnessMetrics `json:"witness"`
	ZKP     ZKPMetrics     `json:"zkp"`
	Network NetworkMetrics `json:"network"`
}

// HealthScore combines the four groups with equal weights. It is a
// diagnostic signal and never gates consensus.
func (s Snapshot) HealthScore() float64 {
	total := float64(s.TotalBatches)

	batchScore := s.Batch.BatchSuccessRate *
		(1 - math.Min(1, float64(s.Batch.FailedBatches)/math.Max(1, total)))

	witnessScore := s.Witness.WitnessReliability *
		(1 - math.Min(1, float64(s.Witness.WitnessTimeouts)/math.Max(1, s.Witness.AvgWitnessCount)))

	zkpScore := s.ZKP.VerificationSuccess * s.ZKP.QuantumSpeedup /
		math.Max(1, s.ZKP.RecursiveDepthAvg)

	networkScore := (1 - math.Min(1, s.Network.ConsensusLatency/1000)) *
		(1 - math.Min(1, float64(s.Network.NetworkConflicts)/math.Max(1, total)))

	return 0.25*batchScore + 0.25*witnessScore + 0.25*zkpScore + 0.25*networkScore
}
