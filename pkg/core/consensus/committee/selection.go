// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package committee

import (
	"math"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	logger "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// WitnessCount is the committee size for a batch under load. In adaptive
// mode the strategy may only raise the configured count; the result never
// exceeds the registered witnesses.
func (r *Registry) WitnessCount(c consensus.BatchConfig, load Load) int {
	registered := r.Len()
	load.Registered = registered

	n := c.WitnessCount
	if c.AdaptiveWitnessSelection && r.strategy != nil {
		if decided := r.strategy.DecideWitnessCount(load); decided > n {
			n = decided
		}
	}

	if n > registered {
		n = registered
	}

	return n
}

// Select draws the committee of a batch by reliability-weighted sampling
// without replacement among the eligible witnesses, i.e. those active
// within the configured timeout and whose effective reliability reaches
// the configured minimum. When fewer witnesses are eligible than required,
// all of them are returned.
//
// Each eligible witness i gets the weight w_i = r_i^e, with r_i its
// effective reliability and e the selection entropy clamped to [0,1], and
// the key k_i = ln(u_i)/w_i with u_i uniform in (0,1). The witnesses with
// the largest keys win (Efraimidis-Spirakis), which at e=1 is sampling
// proportional to reliability and at e=0 is uniform sampling.
//
// The committee is returned sorted by node id. Selection leaves the activity
// of its members untouched.
func (r *Registry) Select(c consensus.BatchConfig, load Load) []*Witness {
	n := r.WitnessCount(c, load)
	if n <= 0 {
		return nil
	}

	now := r.now()
	floor := c.MinReliability()

	eligible := make([]*Witness, 0, n)
	weights := make([]float64, 0, n)
	for _, w := range r.all() {
		if !w.IsActive(now, c.WitnessActivityTimeout) {
			continue
		}

		rel := w.EffectiveReliability(floor)
		if rel < floor || rel <= 0 {
			continue
		}

		eligible = append(eligible, w)
		weights = append(weights, math.Pow(rel, clampEntropy(c.WitnessSelectionEntropy)))
	}

	var selected []*Witness
	if len(eligible) <= n {
		selected = eligible
	} else {
		selected = r.sample(eligible, weights, n)
	}

	sortByNodeID(selected)

	log.WithFields(logger.Fields{
		"requested": n,
		"eligible":  len(eligible),
		"selected":  len(selected),
	}).Debug("committee selected")
	return selected
}

func (r *Registry) sample(candidates []*Witness, weights []float64, n int) []*Witness {
	keys := make([]float64, len(candidates))
	inds := make([]int, len(candidates))

	r.randLock.Lock()
	for i, w := range weights {
		u := r.rand.Float64()
		for u == 0 {
			u = r.rand.Float64()
		}

		keys[i] = math.Log(u) / w
	}
	r.randLock.Unlock()

	// ascending, the winners are at the tail
	floats.Argsort(keys, inds)

	selected := make([]*Witness, 0, n)
	for _, idx := range inds[len(inds)-n:] {
		selected = append(selected, candidates[idx])
	}

	return selected
}

func clampEntropy(e float64) float64 {
	if e < 0 || math.IsNaN(e) {
		return 0
	}

	if e > 1 {
		return 1
	}

	return e
}
