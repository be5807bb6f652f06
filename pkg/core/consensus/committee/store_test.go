// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package committee

import (
	"errors"
	"testing"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/reputation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemStore(t *testing.T) *Store {
	s, err := OpenStore(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreWitness(t *testing.T) {
	s := openMemStore(t)

	at := time.Unix(1600000000, 0).UTC()
	w := newWitness("w0", []byte{1, 2, 3}, reputation.NewTracker(3, 4), at)
	require.NoError(t, s.StoreWitness(w))

	rec, err := s.FetchWitness("w0")
	require.NoError(t, err)
	assert.Equal(t, "w0", rec.NodeID)
	assert.Equal(t, []byte{1, 2, 3}, rec.PublicKey)
	assert.Equal(t, uint32(3), rec.Successful)
	assert.Equal(t, uint32(4), rec.Total)
	assert.True(t, at.Equal(rec.LastActive))

	// a second write replaces the record
	w.tracker.Update(false)
	require.NoError(t, s.StoreWitness(w))

	rec, err = s.FetchWitness("w0")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), rec.Successful)
	assert.Equal(t, uint32(5), rec.Total)
}

func TestFetchWitnesses(t *testing.T) {
	s := openMemStore(t)

	records, err := s.FetchWitnesses()
	require.NoError(t, err)
	assert.Empty(t, records)

	for _, id := range []string{"w2", "w0", "w1"} {
		w := newWitness(id, []byte(id), new(reputation.Tracker), time.Now())
		require.NoError(t, s.StoreWitness(w))
	}

	records, err = s.FetchWitnesses()
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, id := range []string{"w0", "w1", "w2"} {
		assert.Equal(t, id, records[i].NodeID)
	}

	_, err = s.FetchWitness("w3")
	assert.True(t, errors.Is(err, ErrUnknownWitness))
}

func TestGetKey(t *testing.T) {
	assert.Equal(t, "witness:w0", GetKey("w0"))
}
