// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package metrics

import (
	"encoding/binary"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var prefix = []byte("metrics:")

// ErrOpenStore is returned when the metrics store cannot be opened or created.
var ErrOpenStore = errors.New("could not open or create metrics store")

// Store persists the raw metric words in a leveldb database.
type Store struct {
	db *leveldb.DB
}

// OpenStore opens or creates the store at path, recovering it when
// corrupted.
func OpenStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)

	// Try to recover if corrupted.
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(path, nil)
	}

	if _, accessdenied := err.(*os.PathError); accessdenied {
		return nil, ErrOpenStore
	}

	if err != nil {
		return nil, errors.Wrap(err, "could not open metrics store")
	}

	return &Store{db: db}, nil
}

// OpenMemStore creates a store kept in memory.
func OpenMemStore() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(name string) []byte {
	return append(append([]byte{}, prefix...), name...)
}

// Save writes the raw value of every metric in a single batch.
func (a *Aggregator) Save(s *Store) error {
	b := new(leveldb.Batch)
	for name, word := range a.fields() {
		v := make([]byte, 8)
		binary.LittleEndian.PutUint64(v, atomic.LoadUint64(word))
		b.Put(key(name), v)
	}

	if err := s.db.Write(b, nil); err != nil {
		return errors.Wrap(err, "could not save metrics")
	}

	return nil
}

// Load restores the metrics saved in s. Metrics missing from the store keep
// their current value.
func (a *Aggregator) Load(s *Store) error {
	start := time.Now()

	for name, word := range a.fields() {
		v, err := s.db.Get(key(name), nil)
		if err == leveldb.ErrNotFound {
			continue
		}

		if err != nil {
			return errors.Wrapf(err, "could not load metric %s", name)
		}

		if len(v) != 8 {
			return errors.Errorf("malformed metric %s", name)
		}

		atomic.StoreUint64(word, binary.LittleEndian.Uint64(v))
	}

	a.RecordSync(time.Since(start))
	log.WithField("duration", time.Since(start)).Info("metrics restored")
	return nil
}
