// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package committee

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

// WitnessPrefix is the key prefix of witness records.
const WitnessPrefix = "witness"

// MemoryPath opens a Store without a backing file.
const MemoryPath = ":memory:"

// Record is the persisted form of a Witness.
type Record struct {
	NodeID     string    `json:"node_id"`
	PublicKey  []byte    `json:"public_key"`
	Successful uint32    `json:"successful"`
	Total      uint32    `json:"total"`
	LastActive time.Time `json:"last_active"`
}

// Store persists witnesses in a buntdb file with EverySecond sync policy.
type Store struct {
	db *buntdb.DB
}

// OpenStore opens or creates the store at path. MemoryPath keeps it in
// memory.
func OpenStore(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open witness store %s", path)
	}

	var config buntdb.Config
	if err := db.ReadConfig(&config); err != nil {
		_ = db.Close()
		return nil, err
	}

	// syncing is also done on Close
	config.SyncPolicy = buntdb.EverySecond
	config.AutoShrinkDisabled = false

	if err := db.SetConfig(config); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// GetKey composes the key of a witness record.
func GetKey(nodeID string) string {
	return fmt.Sprintf("%s:%s", WitnessPrefix, nodeID)
}

// StoreWitness writes the current state of w.
func (s *Store) StoreWitness(w *Witness) error {
	successful, total := w.Counters()
	rec := Record{
		NodeID:     w.NodeID,
		PublicKey:  w.PublicKey,
		Successful: successful,
		Total:      total,
		LastActive: w.LastActive(),
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(GetKey(w.NodeID), string(value), nil)
		return err
	})
}

// FetchWitness reads the record of nodeID.
func (s *Store) FetchWitness(nodeID string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(GetKey(nodeID))
		if err != nil {
			return err
		}

		return json.Unmarshal([]byte(value), &rec)
	})

	if err == buntdb.ErrNotFound {
		return rec, errors.Wrap(ErrUnknownWitness, nodeID)
	}

	return rec, err
}

// FetchWitnesses returns every record, ordered by key.
func (s *Store) FetchWitnesses() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *buntdb.Tx) error {
		var iterErr error
		err := tx.AscendKeys(WitnessPrefix+":*", func(key, value string) bool {
			if !strings.HasPrefix(key, WitnessPrefix+":") {
				return true
			}

			var rec Record
			if iterErr = json.Unmarshal([]byte(value), &rec); iterErr != nil {
				return false
			}

			records = append(records, rec)
			return true
		})
		if err != nil {
			return err
		}

		return iterErr
	})

	return records, err
}

// Close syncs and closes the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}
