// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package reputation keeps the validation record of a witness.
package reputation

import "sync/atomic"

// Tracker counts successful and total validations of a single witness. Both
// counters live in one word so that every update and every read sees a
// consistent pair: the high half is the total, the low half the successes.
// The zero value is ready to use.
type Tracker struct {
	state uint64
}

// NewTracker restores a Tracker from persisted counters. successful is
// capped at total.
func NewTracker(successful, total uint32) *Tracker {
	if successful > total {
		successful = total
	}

	return &Tracker{state: pack(successful, total)}
}

// Update records the outcome of a validation.
func (t *Tracker) Update(success bool) {
	for {
		old := atomic.LoadUint64(&t.state)
		s, n := unpack(old)
		if n == ^uint32(0) {
			// saturated, the ratio no longer moves
			return
		}

		n++
		if success {
			s++
		}

		if atomic.CompareAndSwapUint64(&t.state, old, pack(s, n)) {
			return
		}
	}
}

// Counters returns the successful and total validations.
func (t *Tracker) Counters() (successful, total uint32) {
	return unpack(atomic.LoadUint64(&t.state))
}

// Score is successful/total, or 0 without any validation.
func (t *Tracker) Score() float64 {
	s, n := t.Counters()
	if n == 0 {
		return 0
	}

	return float64(s) / float64(n)
}

// Validated reports whether at least one validation was recorded.
func (t *Tracker) Validated() bool {
	_, n := t.Counters()
	return n > 0
}

func pack(successful, total uint32) uint64 {
	return uint64(total)<<32 | uint64(successful)
}

func unpack(v uint64) (successful, total uint32) {
	return uint32(v), uint32(v >> 32)
}
