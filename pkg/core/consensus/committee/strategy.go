// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package committee

// Load describes the pressure on the node when a committee is drawn.
type Load struct {
	QueueDepth    int
	QueueCapacity int
	Registered    int
}

// CountStrategy decides how many witnesses a batch needs under the current
// load. Results below the configured witness count or above the number of
// registered witnesses are clamped by the Registry.
type CountStrategy interface {
	DecideWitnessCount(load Load) int
}

// StaticCount always asks for the same number of witnesses.
type StaticCount int

// DecideWitnessCount implements CountStrategy.
func (s StaticCount) DecideWitnessCount(Load) int {
	return int(s)
}

// CountStrategyFunc adapts a function to a CountStrategy.
type CountStrategyFunc func(load Load) int

// DecideWitnessCount implements CountStrategy.
func (f CountStrategyFunc) DecideWitnessCount(load Load) int {
	return f(load)
}
