// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package mempool

import (
	"sync"
	"sync/atomic"
	"time"

	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/pkg/errors"
	cuckoo "github.com/seiflotfy/cuckoofilter"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var log = logger.WithFields(logger.Fields{"process": "mempool"})

var (
	// ErrFull is returned when every slot of the queue is taken.
	ErrFull = errors.Wrap(consensus.ErrCapacity, "ingress queue full")
	// ErrDraining is returned while a batch is being drained.
	ErrDraining = errors.Wrap(consensus.ErrCapacity, "ingress queue draining")
	// ErrRateLimited is returned when admissions exceed the configured rate.
	ErrRateLimited = errors.Wrap(consensus.ErrCapacity, "ingress rate exceeded")
	// ErrDuplicate is returned when the transaction is likely already pending.
	ErrDuplicate = errors.Wrap(consensus.ErrCapacity, "transaction already pending")
)

// Ingress is the bounded FIFO of transactions waiting for a batch. Add never
// blocks: it either admits the transaction or rejects it immediately.
type Ingress struct {
	queue chan []byte

	// set while Drain runs
	processing int32
	drainLock  sync.Mutex

	limiter *rate.Limiter

	// dedupe is a probabilistic filter of the pending transactions. A fresh
	// transaction is rejected as a duplicate with the false positive rate of
	// the filter.
	filterLock sync.Mutex
	filter     *cuckoo.Filter
}

// Option configures an Ingress.
type Option func(*Ingress)

// WithRateLimit admits at most one transaction every interval, with bursts
// of up to burst transactions.
func WithRateLimit(interval time.Duration, burst int) Option {
	return func(i *Ingress) {
		if burst <= 0 {
			burst = 1
		}

		i.limiter = rate.NewLimiter(rate.Every(interval), burst)
	}
}

// WithDedupe rejects transactions that are already pending.
func WithDedupe(capacity uint) Option {
	return func(i *Ingress) {
		i.filter = cuckoo.NewFilter(capacity)
	}
}

// NewIngress creates a queue holding up to capacity transactions.
func NewIngress(capacity int, opts ...Option) *Ingress {
	if capacity <= 0 {
		capacity = cfg.DefaultIngressCapacity
	}

	i := &Ingress{queue: make(chan []byte, capacity)}
	for _, opt := range opts {
		opt(i)
	}

	return i
}

// NewIngressFromConfig creates a queue from the ingress group of the loaded
// configuration.
func NewIngressFromConfig(r cfg.Registry) (*Ingress, error) {
	c := r.Ingress
	l := log.WithField("capacity", c.Capacity)

	var opts []Option
	if len(c.Rate) > 0 {
		interval, err := time.ParseDuration(c.Rate)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse ingress rate")
		}

		opts = append(opts, WithRateLimit(interval, c.Burst))
		l = l.WithField("rate", c.Rate).WithField("burst", c.Burst)
	}

	if c.Dedupe {
		opts = append(opts, WithDedupe(c.DedupeCapacity))
		l = l.WithField("dedupe_capacity", c.DedupeCapacity)
	}

	l.Info("ingress queue created")
	return NewIngress(c.Capacity, opts...), nil
}

// Add enqueues tx. Ownership of tx passes to the queue on success.
func (i *Ingress) Add(tx []byte) error {
	if atomic.LoadInt32(&i.processing) == 1 {
		return ErrDraining
	}

	if i.limiter != nil && !i.limiter.Allow() {
		return ErrRateLimited
	}

	if i.filter != nil {
		i.filterLock.Lock()
		if i.filter.Lookup(tx) {
			i.filterLock.Unlock()
			return ErrDuplicate
		}

		i.filter.Insert(tx)
		i.filterLock.Unlock()
	}

	select {
	case i.queue <- tx:
		log.WithField("size", len(tx)).Trace("transaction admitted")
		return nil
	default:
		i.forget(tx)
		return ErrFull
	}
}

// Drain removes up to max transactions in admission order. Admissions are
// rejected while it runs. Concurrent calls are served one after the other.
func (i *Ingress) Drain(max int) [][]byte {
	i.drainLock.Lock()
	defer i.drainLock.Unlock()

	atomic.StoreInt32(&i.processing, 1)
	defer atomic.StoreInt32(&i.processing, 0)

	txs := make([][]byte, 0, max)
loop:
	for len(txs) < max {
		select {
		case tx := <-i.queue:
			txs = append(txs, tx)
		default:
			break loop
		}
	}

	for _, tx := range txs {
		i.forget(tx)
	}

	return txs
}

// Len is the number of pending transactions.
func (i *Ingress) Len() int {
	return len(i.queue)
}

// Cap is the capacity of the queue.
func (i *Ingress) Cap() int {
	return cap(i.queue)
}

// Processing reports whether a drain is in flight.
func (i *Ingress) Processing() bool {
	return atomic.LoadInt32(&i.processing) == 1
}

func (i *Ingress) forget(tx []byte) {
	if i.filter == nil {
		return
	}

	i.filterLock.Lock()
	i.filter.Delete(tx)
	i.filterLock.Unlock()
}
