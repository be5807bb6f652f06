// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package agreement

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
)

var log = logger.WithFields(logger.Fields{"process": "agreement"})

// ErrInvalidTransition is returned when a phase change is not allowed from
// the current phase.
var ErrInvalidTransition = errors.New("invalid phase transition")

var transitions = map[consensus.Phase][]consensus.Phase{
	consensus.Collecting:     {consensus.ProofGenerated},
	consensus.ProofGenerated: {consensus.Voting},
	consensus.Voting:         {consensus.ConsensusReached, consensus.TimedOut},
}

func allowed(from, to consensus.Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}

	return false
}

// Listener is notified of every phase change of a Round. It is called
// outside of the Round lock, in transition order.
type Listener interface {
	OnTransition(r *Round, from, to consensus.Phase)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(r *Round, from, to consensus.Phase)

// OnTransition implements Listener.
func (f ListenerFunc) OnTransition(r *Round, from, to consensus.Phase) {
	f(r, from, to)
}

// Round drives a single batch through
// Collecting -> ProofGenerated -> Voting -> ConsensusReached | TimedOut.
// Terminal rounds never change again.
type Round struct {
	// notifyLock keeps listener calls in transition order
	notifyLock sync.Mutex

	lock      sync.Mutex
	phase     consensus.Phase
	proof     *batch.Proof
	createdAt time.Time
	votingAt  time.Time
	closedAt  time.Time
	timer     *time.Timer

	listener Listener
}

// NewRound creates a Round in the Collecting phase.
func NewRound(listener Listener) *Round {
	return &Round{
		phase:     consensus.Collecting,
		createdAt: time.Now(),
		listener:  listener,
	}
}

// Phase is the current phase.
func (r *Round) Phase() consensus.Phase {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.phase
}

// Key is the hex batch hash, empty before the proof is set.
func (r *Round) Key() string {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.proof == nil {
		return ""
	}

	return hex.EncodeToString(r.proof.BatchHash)
}

// Proof returns a copy of the proof of the round, nil before it is set.
func (r *Round) Proof() *batch.Proof {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.proof == nil {
		return nil
	}

	return r.proof.Copy()
}

// Elapsed is the time spent between the start of the round and its
// terminal transition, or now when still open.
func (r *Round) Elapsed() time.Duration {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closedAt.IsZero() {
		return time.Since(r.createdAt)
	}

	return r.closedAt.Sub(r.createdAt)
}

// SetProof attaches the generated proof and moves to ProofGenerated.
func (r *Round) SetProof(p *batch.Proof) error {
	r.notifyLock.Lock()
	defer r.notifyLock.Unlock()

	r.lock.Lock()
	from := r.phase
	if err := r.transition(consensus.ProofGenerated); err != nil {
		r.lock.Unlock()
		return err
	}

	r.proof = p
	r.lock.Unlock()

	r.notify(from, consensus.ProofGenerated)
	return nil
}

// StartVoting moves to Voting. When timeout is positive, the round times out
// unless consensus is reached before it elapses.
func (r *Round) StartVoting(timeout time.Duration) error {
	r.notifyLock.Lock()
	defer r.notifyLock.Unlock()

	r.lock.Lock()
	from := r.phase
	if err := r.transition(consensus.Voting); err != nil {
		r.lock.Unlock()
		return err
	}

	r.votingAt = time.Now()
	if timeout > 0 {
		r.timer = time.AfterFunc(timeout, r.Expire)
	}
	r.lock.Unlock()

	r.notify(from, consensus.Voting)
	return nil
}

// HasVoted reports whether the committee member at index already voted.
func (r *Round) HasVoted(index int) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.proof == nil || index < 0 || index >= len(r.proof.Witnesses.VerificationTimes) {
		return false
	}

	return r.proof.Witnesses.VerificationTimes[index] > 0
}

// RecordVote stores a verified vote of the committee member at index and
// re-evaluates consensus. Votes are only recorded while Voting and once per
// member; a vote reaching consensus closes the round. It returns whether the vote was
// recorded.
func (r *Round) RecordVote(index int, sig []byte, at time.Time) bool {
	r.notifyLock.Lock()
	defer r.notifyLock.Unlock()

	r.lock.Lock()
	if r.phase != consensus.Voting || index < 0 || index >= len(r.proof.WitnessSignatures) ||
		index >= len(r.proof.Witnesses.VerificationTimes) ||
		r.proof.Witnesses.VerificationTimes[index] > 0 {
		r.lock.Unlock()
		return false
	}

	ts := at.UnixNano()
	if ts <= 0 {
		ts = 1
	}

	r.proof.WitnessSignatures[index] = sig
	r.proof.Witnesses.VerificationTimes[index] = ts

	ready := IsReadyForConsensus(r.proof)
	r.proof.Witnesses.HasConsensus = ready
	if !ready {
		r.lock.Unlock()
		return true
	}

	_ = r.transition(consensus.ConsensusReached)
	r.close()
	r.lock.Unlock()

	r.notify(consensus.Voting, consensus.ConsensusReached)
	return true
}

// Expire times the round out if it is still Voting.
func (r *Round) Expire() {
	r.notifyLock.Lock()
	defer r.notifyLock.Unlock()

	r.lock.Lock()
	if r.phase != consensus.Voting {
		r.lock.Unlock()
		return
	}

	_ = r.transition(consensus.TimedOut)
	r.close()
	r.lock.Unlock()

	r.notify(consensus.Voting, consensus.TimedOut)
}

// Stop releases the timer of the round without changing its phase.
func (r *Round) Stop() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
}

// transition must be called with the lock held.
func (r *Round) transition(to consensus.Phase) error {
	if !allowed(r.phase, to) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", r.phase, to)
	}

	r.phase = to
	return nil
}

// close must be called with the lock held.
func (r *Round) close() {
	r.closedAt = time.Now()
	if r.timer != nil {
		r.timer.Stop()
	}
}

func (r *Round) notify(from, to consensus.Phase) {
	log.WithFields(logger.Fields{
		"from": from.String(),
		"to":   to.String(),
	}).Trace("phase transition")

	if r.listener != nil {
		r.listener.OnTransition(r, from, to)
	}
}
