// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package api

import (
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/capi"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/metrics"
	"github.com/go-chi/render"
)

// MetricsJSON is the body of GET /consensus/metrics.
type MetricsJSON struct {
	metrics.Snapshot
	HealthScore float64 `json:"health_score"`
	Pending     int     `json:"pending_transactions"`
}

// BatchJSON is the body of GET /consensus/batches/{hash}. Proof is only set
// while the batch is held in memory, Record once it is in the ledger.
type BatchJSON struct {
	BatchHash  string            `json:"batch_hash"`
	Phase      string            `json:"phase"`
	Confidence float64           `json:"confidence"`
	Proof      *batch.Proof      `json:"proof,omitempty"`
	Record     *capi.BatchRecord `json:"record,omitempty"`
}

func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, MetricsJSON{
		Snapshot:    s.node.Metrics(),
		HealthScore: s.node.HealthScore(),
		Pending:     s.node.Pending(),
	})
}

func (s *Server) getWitnesses(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.node.Witnesses())
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.node.Config())
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get(":hash")
	raw, err := hex.DecodeString(hash)
	if err != nil || len(raw) == 0 {
		http.Error(w, "invalid batch hash", http.StatusBadRequest)
		return
	}

	if p, phase, ok := s.node.Proof(raw); ok {
		render.JSON(w, r, BatchJSON{
			BatchHash:  hash,
			Phase:      phase.String(),
			Confidence: s.node.CalculateConsensusConfidence(p),
			Proof:      p,
		})
		return
	}

	ledger := s.node.Ledger()
	if ledger == nil {
		http.Error(w, "unknown batch", http.StatusNotFound)
		return
	}

	rec, err := ledger.Find(hash)
	if errors.Is(err, capi.ErrUnknownBatch) {
		http.Error(w, "unknown batch", http.StatusNotFound)
		return
	}

	if err != nil {
		log.WithError(err).Error("could not read the ledger")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, BatchJSON{
		BatchHash:  hash,
		Phase:      rec.Phase,
		Confidence: rec.Confidence,
		Record:     &rec,
	})
}
