// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package metrics

import (
	"math"
	"sync/atomic"
)

// gauge is a float64 stored as its IEEE 754 bits.
type gauge struct {
	bits uint64
}

func (g *gauge) load() float64 {
	return math.Float64frombits(atomic.LoadUint64(&g.bits))
}

func (g *gauge) store(v float64) {
	atomic.StoreUint64(&g.bits, math.Float64bits(v))
}

// average folds sample x into a running mean over n samples.
func (g *gauge) average(x float64, n uint64) {
	if n == 0 {
		n = 1
	}

	for {
		old := atomic.LoadUint64(&g.bits)
		mean := math.Float64frombits(old)
		next := mean + (x-mean)/float64(n)
		if atomic.CompareAndSwapUint64(&g.bits, old, math.Float64bits(next)) {
			return
		}
	}
}

// counter is a monotonic uint64 between resets.
type counter struct {
	v uint64
}

func (c *counter) inc() uint64 {
	return atomic.AddUint64(&c.v, 1)
}

func (c *counter) add(d uint64) uint64 {
	return atomic.AddUint64(&c.v, d)
}

func (c *counter) load() uint64 {
	return atomic.LoadUint64(&c.v)
}

func (c *counter) store(v uint64) {
	atomic.StoreUint64(&c.v, v)
}
