// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package committee

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/reputation"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
)

var log = logger.WithFields(logger.Fields{"process": "committee"})

var (
	// ErrWitnessExists is returned when a node id is registered twice.
	ErrWitnessExists = errors.New("witness already registered")
	// ErrEmptyPublicKey is returned when a witness has no public key.
	ErrEmptyPublicKey = errors.New("empty public key")
	// ErrEmptyNodeID is returned when a witness has no node id.
	ErrEmptyNodeID = errors.New("empty node id")
	// ErrUnknownWitness is returned for node ids that were never registered.
	ErrUnknownWitness = errors.New("unknown witness")
)

// Registry holds every known witness. The lock only guards membership;
// reliability counters are updated atomically per witness, so updates for
// different witnesses never contend.
type Registry struct {
	lock      sync.RWMutex
	witnesses map[string]*Witness
	// registration order
	order []string

	randLock sync.Mutex
	rand     *rand.Rand

	strategy CountStrategy
	store    *Store
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithSeed makes selection reproducible.
func WithSeed(seed int64) Option {
	return func(r *Registry) {
		r.rand = rand.New(rand.NewSource(seed))
	}
}

// WithCountStrategy sets the strategy consulted in adaptive mode.
func WithCountStrategy(s CountStrategy) Option {
	return func(r *Registry) {
		r.strategy = s
	}
}

// WithStore persists witnesses and their counters.
func WithStore(s *Store) Option {
	return func(r *Registry) {
		r.store = s
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a Registry. When a Store is set, the witnesses it
// holds are restored.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		witnesses: make(map[string]*Witness),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.store != nil {
		records, err := r.store.FetchWitnesses()
		if err != nil {
			return nil, errors.Wrap(err, "could not restore witnesses")
		}

		for _, rec := range records {
			tr := reputation.NewTracker(rec.Successful, rec.Total)
			w := newWitness(rec.NodeID, rec.PublicKey, tr, rec.LastActive)
			r.witnesses[w.NodeID] = w
			r.order = append(r.order, w.NodeID)
		}

		log.WithField("witnesses", len(records)).Info("witnesses restored")
	}

	return r, nil
}

// Register adds a witness with no validation history.
func (r *Registry) Register(nodeID string, pubKey []byte) error {
	if len(nodeID) == 0 {
		return ErrEmptyNodeID
	}

	if len(pubKey) == 0 {
		return errors.Wrap(ErrEmptyPublicKey, nodeID)
	}

	r.lock.Lock()
	if _, ok := r.witnesses[nodeID]; ok {
		r.lock.Unlock()
		return errors.Wrap(ErrWitnessExists, nodeID)
	}

	w := newWitness(nodeID, pubKey, new(reputation.Tracker), r.now())
	r.witnesses[nodeID] = w
	r.order = append(r.order, nodeID)
	r.lock.Unlock()

	r.persist(w)

	log.WithField("node_id", nodeID).Info("witness registered")
	return nil
}

// Get returns the witness registered as nodeID.
func (r *Registry) Get(nodeID string) (*Witness, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	w, ok := r.witnesses[nodeID]
	return w, ok
}

// Len is the number of registered witnesses.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.witnesses)
}

// UpdateReliability records the outcome of a validation by nodeID.
func (r *Registry) UpdateReliability(nodeID string, success bool) error {
	w, ok := r.Get(nodeID)
	if !ok {
		return errors.Wrap(ErrUnknownWitness, nodeID)
	}

	w.tracker.Update(success)
	if success {
		w.Touch(r.now())
	}

	r.persist(w)

	log.WithFields(logger.Fields{
		"node_id":     nodeID,
		"success":     success,
		"reliability": w.Reliability(),
	}).Debug("reliability updated")
	return nil
}

// Witnesses returns a snapshot of every witness in registration order.
func (r *Registry) Witnesses() []Info {
	all := r.all()
	infos := make([]Info, len(all))
	for i, w := range all {
		infos[i] = w.Info()
	}

	return infos
}

// Save persists every witness. It is a no-op without a Store.
func (r *Registry) Save() error {
	if r.store == nil {
		return nil
	}

	for _, w := range r.all() {
		if err := r.store.StoreWitness(w); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) all() []*Witness {
	r.lock.RLock()
	defer r.lock.RUnlock()

	all := make([]*Witness, len(r.order))
	for i, id := range r.order {
		all[i] = r.witnesses[id]
	}

	return all
}

func (r *Registry) persist(w *Witness) {
	if r.store == nil {
		return
	}

	if err := r.store.StoreWitness(w); err != nil {
		log.WithError(err).WithField("node_id", w.NodeID).Error("could not persist witness")
	}
}

func sortByNodeID(ws []*Witness) {
	sort.Slice(ws, func(i, j int) bool {
		return ws[i].NodeID < ws[j].NodeID
	})
}
