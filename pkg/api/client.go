// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package api

import (
	"context"
	"strings"

	gqlclient "github.com/machinebox/graphql"
)

const statusQuery = `{
	metrics {
		totalBatches
		totalTransactions
		finalizedBatches
		failedBatches
		witnessTimeouts
		consensusLatency
		healthScore
		pending
	}
	witnesses {
		nodeId
		reliability
		successful
		total
	}
}`

// Status is what a running node reports through GraphQL.
type Status struct {
	Metrics struct {
		TotalBatches      int     `json:"totalBatches"`
		TotalTransactions int     `json:"totalTransactions"`
		FinalizedBatches  int     `json:"finalizedBatches"`
		FailedBatches     int     `json:"failedBatches"`
		WitnessTimeouts   int     `json:"witnessTimeouts"`
		ConsensusLatency  float64 `json:"consensusLatency"`
		HealthScore       float64 `json:"healthScore"`
		Pending           int     `json:"pending"`
	} `json:"metrics"`

	Witnesses []struct {
		NodeID      string  `json:"nodeId"`
		Reliability float64 `json:"reliability"`
		Successful  int     `json:"successful"`
		Total       int     `json:"total"`
	} `json:"witnesses"`
}

// Client queries the GraphQL endpoint of a node.
type Client struct {
	c *gqlclient.Client
}

// NewClient creates a Client for the node API at address, e.g.
// http://127.0.0.1:9490.
func NewClient(address string) *Client {
	if !strings.HasPrefix(address, "http") {
		address = "http://" + address
	}

	return &Client{c: gqlclient.NewClient(strings.TrimSuffix(address, "/") + "/graphql")}
}

// Status fetches the metrics and witnesses of the node.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var s Status
	err := c.c.Run(ctx, gqlclient.NewRequest(statusQuery), &s)
	return s, err
}
