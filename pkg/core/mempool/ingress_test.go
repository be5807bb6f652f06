// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package mempool

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(n uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return b
}

func TestFIFO(t *testing.T) {
	i := NewIngress(16)
	for n := uint32(0); n < 10; n++ {
		require.NoError(t, i.Add(tx(n)))
	}

	assert.Equal(t, 10, i.Len())

	txs := i.Drain(4)
	require.Len(t, txs, 4)
	for n, b := range txs {
		assert.Equal(t, tx(uint32(n)), b)
	}

	txs = i.Drain(100)
	require.Len(t, txs, 6)
	assert.Equal(t, tx(4), txs[0])
	assert.Empty(t, i.Drain(10))
}

func TestDefaultCapacity(t *testing.T) {
	i := NewIngress(0)
	assert.Equal(t, cfg.DefaultIngressCapacity, i.Cap())

	for n := 0; n < cfg.DefaultIngressCapacity; n++ {
		require.NoError(t, i.Add(tx(uint32(n))))
	}

	err := i.Add(tx(9999))
	assert.True(t, errors.Is(err, ErrFull))
	assert.True(t, errors.Is(err, consensus.ErrCapacity))
}

func TestRejectWhileDraining(t *testing.T) {
	i := NewIngress(4)
	atomic.StoreInt32(&i.processing, 1)

	err := i.Add(tx(1))
	assert.True(t, errors.Is(err, ErrDraining))
	assert.True(t, errors.Is(err, consensus.ErrCapacity))
	assert.True(t, i.Processing())

	atomic.StoreInt32(&i.processing, 0)
	assert.NoError(t, i.Add(tx(1)))
	assert.False(t, i.Processing())
}

func TestConcurrentDrain(t *testing.T) {
	i := NewIngress(64)
	for n := uint32(0); n < 64; n++ {
		require.NoError(t, i.Add(tx(n)))
	}

	var wg sync.WaitGroup
	counts := make([]int, 8)
	for g := range counts {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			counts[g] = len(i.Drain(8))
		}(g)
	}
	wg.Wait()

	// no drain comes back empty-handed while transactions are pending
	for _, n := range counts {
		assert.Equal(t, 8, n)
	}
	assert.Equal(t, 0, i.Len())
	assert.False(t, i.Processing())
}

func TestRateLimit(t *testing.T) {
	i := NewIngress(16, WithRateLimit(time.Hour, 2))

	require.NoError(t, i.Add(tx(1)))
	require.NoError(t, i.Add(tx(2)))
	assert.True(t, errors.Is(i.Add(tx(3)), ErrRateLimited))
}

func TestDedupe(t *testing.T) {
	i := NewIngress(16, WithDedupe(64))

	require.NoError(t, i.Add([]byte("tx-a")))
	assert.True(t, errors.Is(i.Add([]byte("tx-a")), ErrDuplicate))

	// drained transactions may be submitted again
	require.Len(t, i.Drain(16), 1)
	assert.NoError(t, i.Add([]byte("tx-a")))
}

func TestConcurrentProducers(t *testing.T) {
	i := NewIngress(1024)

	var wg sync.WaitGroup
	var admitted int64
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				if i.Add(tx(uint32(p*1000+n))) == nil {
					atomic.AddInt64(&admitted, 1)
				}
			}
		}(p)
	}

	drained := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		drained += len(i.Drain(64))
		select {
		case <-done:
			drained += len(i.Drain(2048))
			assert.Equal(t, int(atomic.LoadInt64(&admitted)), drained)
			return
		default:
		}
	}
}

func TestFromConfig(t *testing.T) {
	r := cfg.Get()
	r.Ingress.Capacity = 8
	r.Ingress.Rate = "1h"
	r.Ingress.Burst = 1

	i, err := NewIngressFromConfig(r)
	require.NoError(t, err)
	assert.Equal(t, 8, i.Cap())
	require.NoError(t, i.Add(tx(1)))
	assert.True(t, errors.Is(i.Add(tx(2)), ErrRateLimited))

	r.Ingress.Rate = "soon"
	_, err = NewIngressFromConfig(r)
	assert.Error(t, err)
}
