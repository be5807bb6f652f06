// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package signer

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	for _, scheme := range []string{SchemeEd25519, SchemeBLS} {
		t.Run(scheme, func(t *testing.T) {
			keys, err := GenerateKeys(scheme, rand.Reader)
			require.NoError(t, err)

			v, err := ForScheme(scheme)
			require.NoError(t, err)

			msg := []byte("batch hash")
			sig, err := keys.Sign(msg)
			require.NoError(t, err)

			assert.NoError(t, v.Verify(keys.PublicKey, msg, sig))

			err = v.Verify(keys.PublicKey, []byte("another hash"), sig)
			assert.True(t, errors.Is(err, consensus.ErrVerification))
		})
	}
}

func TestVerifyGarbage(t *testing.T) {
	err := Ed25519{}.Verify([]byte{1, 2, 3}, []byte("m"), []byte("s"))
	assert.True(t, errors.Is(err, consensus.ErrVerification))

	err = BLS{}.Verify([]byte{1, 2, 3}, []byte("m"), []byte("s"))
	assert.True(t, errors.Is(err, consensus.ErrVerification))
}

func TestForScheme(t *testing.T) {
	v, err := ForScheme("")
	require.NoError(t, err)
	assert.IsType(t, Ed25519{}, v)

	_, err = ForScheme("rsa")
	assert.True(t, errors.Is(err, ErrUnknownScheme))
}
