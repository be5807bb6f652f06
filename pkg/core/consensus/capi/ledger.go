// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package capi

import (
	"encoding/hex"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/q"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/agreement"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
)

var log = logger.WithFields(logger.Fields{"process": "capi"})

// ErrUnknownBatch is returned when the ledger holds no record of a batch.
var ErrUnknownBatch = errors.New("unknown batch")

// Ledger stores the terminal outcome of every batch.
type Ledger struct {
	db *storm.DB
}

// OpenLedger opens or creates the ledger file at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := storm.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open ledger %s", path)
	}

	log.WithField("path", path).Info("ledger opened")
	return &Ledger{db: db}, nil
}

// RecordOutcome implements coordinator.OutcomeRecorder. A batch recorded
// twice keeps its first id.
func (l *Ledger) RecordOutcome(p *batch.Proof, phase consensus.Phase, elapsed time.Duration) error {
	rec := BatchRecord{
		BatchHash:    hex.EncodeToString(p.BatchHash),
		Timestamp:    p.Timestamp,
		Phase:        phase.String(),
		Transactions: p.TransactionCount,
		Confidence:   agreement.CalculateConfidence(p),
		Votes:        p.Votes(),
		Witnesses:    p.Witnesses.SelectedWitnesses,
		Elapsed:      float64(elapsed) / float64(time.Millisecond),
		RecordedAt:   time.Now(),
	}

	return l.save(&rec)
}

func (l *Ledger) save(rec *BatchRecord) error {
	err := l.db.Save(rec)
	if err != storm.ErrAlreadyExists {
		return err
	}

	var existing BatchRecord
	if err := l.db.One("BatchHash", rec.BatchHash, &existing); err != nil {
		return err
	}

	rec.ID = existing.ID
	return l.db.Update(rec)
}

// Find returns the record of the batch with the given hex hash.
func (l *Ledger) Find(batchHash string) (BatchRecord, error) {
	var rec BatchRecord
	err := l.db.One("BatchHash", batchHash, &rec)
	if err == storm.ErrNotFound {
		return rec, errors.Wrap(ErrUnknownBatch, batchHash)
	}

	return rec, err
}

// Recent returns up to limit records, newest first.
func (l *Ledger) Recent(limit int) ([]BatchRecord, error) {
	var recs []BatchRecord
	err := l.db.All(&recs, storm.Limit(limit), storm.Reverse())
	if err == storm.ErrNotFound {
		return nil, nil
	}

	return recs, err
}

// Count is the number of batches that closed in phase.
func (l *Ledger) Count(phase consensus.Phase) (int, error) {
	return l.db.Select(q.Eq("Phase", phase.String())).Count(&BatchRecord{})
}

// Close closes the ledger file.
func (l *Ledger) Close() error {
	return l.db.Close()
}
