// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package signer

import (
	"io"
	"strings"

	"github.com/dusk-network/dusk-crypto/bls"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"
)

const (
	// SchemeEd25519 identifies Ed25519 witness keys.
	SchemeEd25519 = "ed25519"
	// SchemeBLS identifies BLS witness keys on bn256.
	SchemeBLS = "bls"
)

// ErrUnknownScheme is returned by ForScheme.
var ErrUnknownScheme = errors.New("unknown signature scheme")

// Ed25519 verifies Ed25519 witness signatures.
type Ed25519 struct{}

// Verify implements consensus.SignatureVerifier.
func (Ed25519) Verify(publicKey, msg, signature []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return errors.Wrap(consensus.ErrVerification, "malformed ed25519 public key")
	}

	if !ed25519.Verify(ed25519.PublicKey(publicKey), msg, signature) {
		return errors.Wrap(consensus.ErrVerification, "ed25519")
	}

	return nil
}

// BLS verifies compressed BLS witness signatures.
type BLS struct{}

// Verify implements consensus.SignatureVerifier.
func (BLS) Verify(publicKey, msg, signature []byte) error {
	pk := &bls.PublicKey{}
	if err := pk.Unmarshal(publicKey); err != nil {
		return errors.Wrap(consensus.ErrVerification, err.Error())
	}

	sig := &bls.Signature{}
	if err := sig.Decompress(signature); err != nil {
		return errors.Wrap(consensus.ErrVerification, err.Error())
	}

	apk := bls.NewApk(pk)
	if err := bls.Verify(apk, msg, sig); err != nil {
		return errors.Wrap(consensus.ErrVerification, err.Error())
	}

	return nil
}

// ForScheme returns the verifier registered under name.
func ForScheme(name string) (consensus.SignatureVerifier, error) {
	switch strings.ToLower(name) {
	case "", SchemeEd25519:
		return Ed25519{}, nil
	case SchemeBLS:
		return BLS{}, nil
	}

	return nil, errors.Wrap(ErrUnknownScheme, name)
}

// Keys is a witness key pair for one scheme.
type Keys struct {
	Scheme    string
	PublicKey []byte

	edSecret  ed25519.PrivateKey
	blsPublic *bls.PublicKey
	blsSecret *bls.SecretKey
}

// GenerateKeys creates a key pair for scheme, reading entropy from r. A nil r
// falls back to crypto/rand.
func GenerateKeys(scheme string, r io.Reader) (*Keys, error) {
	switch strings.ToLower(scheme) {
	case "", SchemeEd25519:
		pub, priv, err := ed25519.GenerateKey(r)
		if err != nil {
			return nil, err
		}

		return &Keys{Scheme: SchemeEd25519, PublicKey: []byte(pub), edSecret: priv}, nil
	case SchemeBLS:
		pub, priv, err := bls.GenKeyPair(r)
		if err != nil {
			return nil, err
		}

		return &Keys{Scheme: SchemeBLS, PublicKey: pub.Marshal(), blsPublic: pub, blsSecret: priv}, nil
	}

	return nil, errors.Wrap(ErrUnknownScheme, scheme)
}

// Sign signs msg with the secret half of k.
func (k *Keys) Sign(msg []byte) ([]byte, error) {
	if k.Scheme == SchemeBLS {
		sig, err := bls.Sign(k.blsSecret, k.blsPublic, msg)
		if err != nil {
			return nil, err
		}

		return sig.Compress(), nil
	}

	return ed25519.Sign(k.edSecret, msg), nil
}
