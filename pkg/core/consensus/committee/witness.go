// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package committee

import (
	"sync/atomic"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/reputation"
)

// Witness is a registered participant whose signature on a batch counts
// toward quorum. NodeID and PublicKey never change after registration.
type Witness struct {
	NodeID    string
	PublicKey []byte

	tracker *reputation.Tracker

	// unix nanoseconds
	lastActive int64
}

func newWitness(nodeID string, pubKey []byte, tracker *reputation.Tracker, lastActive time.Time) *Witness {
	pk := make([]byte, len(pubKey))
	copy(pk, pubKey)

	return &Witness{
		NodeID:     nodeID,
		PublicKey:  pk,
		tracker:    tracker,
		lastActive: lastActive.UnixNano(),
	}
}

// Reliability is successful/total validations, 0 without history.
func (w *Witness) Reliability() float64 {
	return w.tracker.Score()
}

// EffectiveReliability is the weight used for selection and quorum. A
// witness without any validation is on probation and counts with the
// floor value.
func (w *Witness) EffectiveReliability(floor float64) float64 {
	if !w.tracker.Validated() {
		return floor
	}

	return w.tracker.Score()
}

// Counters returns the successful and total validations.
func (w *Witness) Counters() (successful, total uint32) {
	return w.tracker.Counters()
}

// LastActive is the last time the witness was registered, selected or
// voted.
func (w *Witness) LastActive() time.Time {
	return time.Unix(0, atomic.LoadInt64(&w.lastActive))
}

// Touch moves LastActive forward to now. It never moves it back.
func (w *Witness) Touch(now time.Time) {
	ts := now.UnixNano()
	for {
		old := atomic.LoadInt64(&w.lastActive)
		if ts <= old || atomic.CompareAndSwapInt64(&w.lastActive, old, ts) {
			return
		}
	}
}

// IsActive reports whether the witness was active within timeout. A
// non-positive timeout treats every witness as active.
func (w *Witness) IsActive(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}

	return now.Sub(w.LastActive()) <= timeout
}

// Info is a point-in-time copy of a Witness.
type Info struct {
	NodeID                string    `json:"node_id"`
	PublicKey             []byte    `json:"public_key"`
	ReliabilityScore      float64   `json:"reliability_score"`
	SuccessfulValidations uint32    `json:"successful_validations"`
	TotalValidations      uint32    `json:"total_validations"`
	LastActive            time.Time `json:"last_active"`
}

// Info returns a snapshot of the witness.
func (w *Witness) Info() Info {
	s, n := w.tracker.Counters()

	var score float64
	if n > 0 {
		score = float64(s) / float64(n)
	}

	return Info{
		NodeID:                w.NodeID,
		PublicKey:             w.PublicKey,
		ReliabilityScore:      score,
		SuccessfulValidations: s,
		TotalValidations:      n,
		LastActive:            w.LastActive(),
	}
}
