// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package pobpc

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"

	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/capi"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/committee"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/coordinator"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/metrics"
	"github.com/dusk-network/dusk-pobpc/pkg/core/mempool"
	"github.com/dusk-network/dusk-pobpc/pkg/crypto/signer"
	pkgerrors "github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
)

// WitnessFile is the name of the witness store inside database.witnessdir.
const WitnessFile = "witnesses.db"

// ErrMixedSchemes is returned when the configured witnesses do not share a
// signature scheme.
var ErrMixedSchemes = pkgerrors.New("witnesses use different signature schemes")

// NewFromConfig creates an Engine from the loaded configuration: it opens the
// configured stores, registers the configured witnesses and sizes the queue
// and caches. opts are applied after the configured ones.
func NewFromConfig(r cfg.Registry, opts ...Option) (*Engine, error) {
	c := consensus.FromRegistry(r)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ingress, err := mempool.NewIngressFromConfig(r)
	if err != nil {
		return nil, err
	}

	scheme, err := schemeOf(r)
	if err != nil {
		return nil, err
	}

	verifier, err := signer.ForScheme(scheme)
	if err != nil {
		return nil, err
	}

	s, err := openStores(r)
	if err != nil {
		return nil, err
	}

	configured := []Option{
		WithIngress(ingress),
		WithVerifier(verifier),
		WithCoordinatorOptions(
			coordinator.WithRoundCacheSize(r.Consensus.RoundCacheSize),
			coordinator.WithVerificationCacheSize(r.Consensus.VerificationCacheSize),
		),
	}
	configured = append(configured, s.options()...)

	e, err := New(c, append(configured, opts...)...)
	if err != nil {
		s.close()
		return nil, err
	}

	if err := registerWitnesses(e, r); err != nil {
		_ = e.Close()
		return nil, err
	}

	return e, nil
}

func registerWitnesses(e *Engine, r cfg.Registry) error {
	for _, w := range r.Witnesses {
		pk, err := hex.DecodeString(strings.TrimPrefix(w.PublicKey, "0x"))
		if err != nil {
			return pkgerrors.Wrapf(err, "public key of witness %s", w.ID)
		}

		err = e.RegisterWitness(w.ID, pk)
		if errors.Is(err, committee.ErrWitnessExists) {
			continue
		}

		if err != nil {
			return err
		}
	}

	log.WithField("witnesses", len(r.Witnesses)).Info("configured witnesses registered")
	return nil
}

func schemeOf(r cfg.Registry) (string, error) {
	scheme := ""
	for _, w := range r.Witnesses {
		s := strings.ToLower(w.Scheme)
		if s == "" {
			s = signer.SchemeEd25519
		}

		if scheme != "" && s != scheme {
			return "", ErrMixedSchemes
		}

		scheme = s
	}

	return scheme, nil
}

type stores struct {
	witnesses *committee.Store
	metrics   *metrics.Store
	ledger    *capi.Ledger
}

func openStores(r cfg.Registry) (s stores, err error) {
	d := r.Database
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	if d.WitnessDir != "" {
		if err = os.MkdirAll(d.WitnessDir, 0o700); err != nil {
			return s, err
		}

		if s.witnesses, err = committee.OpenStore(filepath.Join(d.WitnessDir, WitnessFile)); err != nil {
			return s, err
		}
	}

	if d.MetricsDir != "" {
		if s.metrics, err = metrics.OpenStore(d.MetricsDir); err != nil {
			return s, err
		}
	}

	if d.LedgerFile != "" {
		if err = os.MkdirAll(filepath.Dir(d.LedgerFile), 0o700); err != nil {
			return s, err
		}

		if s.ledger, err = capi.OpenLedger(d.LedgerFile); err != nil {
			return s, err
		}
	}

	log.WithFields(logger.Fields{
		"witnesses": d.WitnessDir,
		"metrics":   d.MetricsDir,
		"ledger":    d.LedgerFile,
	}).Debug("stores opened")
	return s, nil
}

func (s stores) options() []Option {
	var opts []Option
	if s.witnesses != nil {
		opts = append(opts, WithWitnessStore(s.witnesses))
	}

	if s.metrics != nil {
		opts = append(opts, WithMetricsStore(s.metrics))
	}

	if s.ledger != nil {
		opts = append(opts, WithLedger(s.ledger))
	}

	return opts
}

func (s stores) close() {
	if s.witnesses != nil {
		_ = s.witnesses.Close()
	}

	if s.metrics != nil {
		_ = s.metrics.Close()
	}

	if s.ledger != nil {
		_ = s.ledger.Close()
	}
}
