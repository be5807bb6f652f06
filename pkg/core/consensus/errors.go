// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package consensus

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig is returned when a BatchConfig fails validation.
	ErrInvalidConfig = errors.New("invalid batch config")
	// ErrCapacity is returned when a transaction cannot be admitted.
	ErrCapacity = errors.New("ingress capacity exceeded")
	// ErrEmptyBatch is returned when a batch is requested with nothing pending.
	ErrEmptyBatch = errors.New("no pending transactions")
	// ErrVerification is returned when a witness signature does not verify.
	ErrVerification = errors.New("signature verification failed")
	// ErrTimeout is returned when a batch or a verification ran out of time.
	ErrTimeout = errors.New("timeout")
	// ErrOracle is returned when the proof oracle fails.
	ErrOracle = errors.New("proof oracle failure")
	// ErrInvalidProof is returned when a batch proof is rejected.
	ErrInvalidProof = errors.New("invalid batch proof")
)
