// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package consensus

import (
	"time"

	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	"github.com/pkg/errors"
)

const (
	// MinWitnessCount is the smallest committee that tolerates one faulty
	// witness.
	MinWitnessCount = 3
	// MinConsensusThreshold is the lowest accepted quorum fraction.
	MinConsensusThreshold = 0.66
	// MaxCircuitDepth bounds QuantumCircuitDepth.
	MaxCircuitDepth = 100
	// MinReliabilityPercent is the exclusive lower bound of MinWitnessReliability.
	MinReliabilityPercent = 50
	// MaxRecursiveLayers bounds RecursiveZKPLayers and the recursive depth of
	// a proof.
	MaxRecursiveLayers = 5
)

// BatchConfig holds the parameters of batch formation and voting. A config
// is immutable once handed to the engine; a new one is swapped in as a whole
// and applies from the next batch.
type BatchConfig struct {
	MaxTransactions      int     `json:"max_transactions"`
	WitnessCount         int     `json:"witness_count"`
	ConsensusThreshold   float64 `json:"consensus_threshold"`
	UseQuantumProofs     bool    `json:"use_quantum_proofs"`
	BatchSize            int     `json:"batch_size"`
	NumParallelVerifiers int     `json:"num_parallel_verifiers"`
	QuantumCircuitDepth  int     `json:"quantum_circuit_depth"`

	EnableErrorCorrection bool          `json:"enable_error_correction"`
	BatchTimeout          time.Duration `json:"batch_timeout"`

	WitnessSelectionEntropy float64 `json:"witness_selection_entropy"`
	// MinWitnessReliability is a percentage in (50,100].
	MinWitnessReliability float64 `json:"min_witness_reliability"`

	MaxBatchVerificationTime time.Duration `json:"max_batch_verification_time"`
	AdaptiveWitnessSelection bool          `json:"adaptive_witness_selection"`
	RecursiveZKPLayers       int           `json:"recursive_zkp_layers"`

	// WitnessActivityTimeout excludes idle witnesses from selection. Zero
	// disables the check.
	WitnessActivityTimeout time.Duration `json:"witness_activity_timeout"`
}

// DefaultBatchConfig returns a valid configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxTransactions:          1000,
		WitnessCount:             4,
		ConsensusThreshold:       0.75,
		UseQuantumProofs:         true,
		BatchSize:                256,
		NumParallelVerifiers:     8,
		QuantumCircuitDepth:      32,
		EnableErrorCorrection:    true,
		BatchTimeout:             time.Second,
		WitnessSelectionEntropy:  1.0,
		MinWitnessReliability:    80,
		MaxBatchVerificationTime: 500 * time.Millisecond,
		AdaptiveWitnessSelection: true,
		RecursiveZKPLayers:       2,
		WitnessActivityTimeout:   10 * time.Minute,
	}
}

// IsValid reports whether every parameter is within its accepted range.
func (c BatchConfig) IsValid() bool {
	return c.MaxTransactions > 0 &&
		c.WitnessCount >= MinWitnessCount &&
		c.ConsensusThreshold >= MinConsensusThreshold && c.ConsensusThreshold <= 1.0 &&
		c.BatchSize > 0 && c.BatchSize <= c.MaxTransactions &&
		c.NumParallelVerifiers > 0 &&
		c.QuantumCircuitDepth > 0 && c.QuantumCircuitDepth <= MaxCircuitDepth &&
		c.MinWitnessReliability > MinReliabilityPercent && c.MinWitnessReliability <= 100 &&
		c.RecursiveZKPLayers > 0 && c.RecursiveZKPLayers <= MaxRecursiveLayers
}

// Validate returns ErrInvalidConfig wrapped with the first violated
// constraint, or nil.
func (c BatchConfig) Validate() error {
	switch {
	case c.MaxTransactions <= 0:
		return errors.Wrap(ErrInvalidConfig, "max_transactions must be positive")
	case c.WitnessCount < MinWitnessCount:
		return errors.Wrapf(ErrInvalidConfig, "witness_count must be at least %d", MinWitnessCount)
	case c.ConsensusThreshold < MinConsensusThreshold || c.ConsensusThreshold > 1.0:
		return errors.Wrapf(ErrInvalidConfig, "consensus_threshold must be in [%.2f,1]", MinConsensusThreshold)
	case c.BatchSize <= 0 || c.BatchSize > c.MaxTransactions:
		return errors.Wrap(ErrInvalidConfig, "batch_size must be in (0,max_transactions]")
	case c.NumParallelVerifiers <= 0:
		return errors.Wrap(ErrInvalidConfig, "num_parallel_verifiers must be positive")
	case c.QuantumCircuitDepth <= 0 || c.QuantumCircuitDepth > MaxCircuitDepth:
		return errors.Wrapf(ErrInvalidConfig, "quantum_circuit_depth must be in (0,%d]", MaxCircuitDepth)
	case c.MinWitnessReliability <= MinReliabilityPercent || c.MinWitnessReliability > 100:
		return errors.Wrapf(ErrInvalidConfig, "min_witness_reliability must be in (%d,100]", MinReliabilityPercent)
	case c.RecursiveZKPLayers <= 0 || c.RecursiveZKPLayers > MaxRecursiveLayers:
		return errors.Wrapf(ErrInvalidConfig, "recursive_zkp_layers must be in (0,%d]", MaxRecursiveLayers)
	}

	return nil
}

// MinReliability is MinWitnessReliability as a fraction.
func (c BatchConfig) MinReliability() float64 {
	return c.MinWitnessReliability / 100
}

// FromRegistry builds a BatchConfig from the consensus group of the loaded
// configuration. Unset values keep their default.
func FromRegistry(r cfg.Registry) BatchConfig {
	c := DefaultBatchConfig()
	cc := r.Consensus

	if cc.MaxTransactions != 0 {
		c.MaxTransactions = cc.MaxTransactions
	}
	if cc.WitnessCount != 0 {
		c.WitnessCount = cc.WitnessCount
	}
	if cc.ConsensusThreshold != 0 {
		c.ConsensusThreshold = cc.ConsensusThreshold
	}
	if cc.BatchSize != 0 {
		c.BatchSize = cc.BatchSize
	}
	if cc.NumParallelVerifiers != 0 {
		c.NumParallelVerifiers = cc.NumParallelVerifiers
	}
	if r.Performance.VerificationWorkers != 0 {
		c.NumParallelVerifiers = r.Performance.VerificationWorkers
	}
	if cc.QuantumCircuitDepth != 0 {
		c.QuantumCircuitDepth = cc.QuantumCircuitDepth
	}
	if cc.BatchTimeout != 0 {
		c.BatchTimeout = cc.BatchTimeout
	}
	if cc.WitnessSelectionEntropy != 0 {
		c.WitnessSelectionEntropy = cc.WitnessSelectionEntropy
	}
	if cc.MinWitnessReliability != 0 {
		c.MinWitnessReliability = cc.MinWitnessReliability
	}
	if cc.MaxBatchVerificationTime != 0 {
		c.MaxBatchVerificationTime = cc.MaxBatchVerificationTime
	}
	if cc.RecursiveZKPLayers != 0 {
		c.RecursiveZKPLayers = cc.RecursiveZKPLayers
	}
	if cc.WitnessActivityTimeout != 0 {
		c.WitnessActivityTimeout = cc.WitnessActivityTimeout
	}

	if cc.UseQuantumProofs != nil {
		c.UseQuantumProofs = *cc.UseQuantumProofs
	}
	if cc.EnableErrorCorrection != nil {
		c.EnableErrorCorrection = *cc.EnableErrorCorrection
	}
	if cc.AdaptiveWitnessSelection != nil {
		c.AdaptiveWitnessSelection = *cc.AdaptiveWitnessSelection
	}

	return c
}
