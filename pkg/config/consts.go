// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package config

// A single point of constants definition
const (
	// NodeVersion is the version of the pobpc node.
	NodeVersion = "0.1.0"

	// DefaultIngressCapacity is the number of pending transactions the
	// ingress queue holds.
	DefaultIngressCapacity = 1024

	// DefaultAPIAddress is the bind address of the HTTP API.
	DefaultAPIAddress = "127.0.0.1:9490"

	// DefaultMinHealthScore is the lowest health score reported as healthy.
	DefaultMinHealthScore = 0.5
)
