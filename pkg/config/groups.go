// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package config

import "time"

type generalConfiguration struct {
	Network string
}

type loggerConfiguration struct {
	Level  string
	Output string
	Format string
}

// pkg/core/consensus package configs. Zero values and unset switches fall
// back to consensus.DefaultBatchConfig.
type consensusConfiguration struct {
	MaxTransactions          int
	WitnessCount             int
	ConsensusThreshold       float64
	UseQuantumProofs         *bool
	BatchSize                int
	NumParallelVerifiers     int
	QuantumCircuitDepth      int
	EnableErrorCorrection    *bool
	BatchTimeout             time.Duration
	WitnessSelectionEntropy  float64
	MinWitnessReliability    float64
	MaxBatchVerificationTime time.Duration
	AdaptiveWitnessSelection *bool
	RecursiveZKPLayers       int

	// WitnessActivityTimeout excludes witnesses idle for longer from selection.
	WitnessActivityTimeout time.Duration
	// BatchInterval is the period of the node batch loop.
	BatchInterval time.Duration

	RoundCacheSize        int
	VerificationCacheSize int
}

// pkg/core/mempool ingress configs.
type ingressConfiguration struct {
	Capacity int

	// Admission rate limit. Disabled when Rate is empty.
	Rate  string
	Burst int

	// Rejects transactions already pending in the queue.
	Dedupe         bool
	DedupeCapacity uint
}

// Stores of the node. Empty dirs keep the corresponding state in memory.
type databaseConfiguration struct {
	WitnessDir string
	MetricsDir string
	LedgerFile string
}

// pkg/api package configs.
type apiConfiguration struct {
	Enabled bool
	Address string

	// MaxRequestLimit is the number of requests per second allowed per client.
	MaxRequestLimit float64

	// MinHealthScore below which /healthcheck reports a failure.
	MinHealthScore float64
}

// witnessConfiguration is a statically configured witness.
type witnessConfiguration struct {
	ID        string
	PublicKey string
	Scheme    string
}

// Performance parameters.
type performanceConfiguration struct {
	// VerificationWorkers overrides consensus.numparallelverifiers when set.
	VerificationWorkers int
}
