// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/api"
	"github.com/urfave/cli"
)

// status prints the metrics and witnesses of a running node.
func status(ctx *cli.Context) error {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := api.NewClient(ctx.String(AddressFlag.Name)).Status(c)
	if err != nil {
		return err
	}

	m := s.Metrics
	fmt.Printf("health score:      %.3f\n", m.HealthScore)
	fmt.Printf("batches:           %d (%d finalized, %d failed)\n", m.TotalBatches, m.FinalizedBatches, m.FailedBatches)
	fmt.Printf("transactions:      %d (%d pending)\n", m.TotalTransactions, m.Pending)
	fmt.Printf("witness timeouts:  %d\n", m.WitnessTimeouts)
	fmt.Printf("consensus latency: %.2fms\n\n", m.ConsensusLatency)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WITNESS\tRELIABILITY\tSUCCESSFUL\tTOTAL")
	for _, wi := range s.Witnesses {
		_, _ = fmt.Fprintf(w, "%s\t%.3f\t%d\t%d\n", wi.NodeID, wi.Reliability, wi.Successful, wi.Total)
	}

	return w.Flush()
}
