// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package main

import (
	"context"
	"errors"
	"time"

	"github.com/dusk-network/dusk-pobpc/pkg/api"
	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/pobpc"
	"github.com/sirupsen/logrus"
)

// DefaultBatchInterval is the batch loop period when none is configured.
const DefaultBatchInterval = time.Second

var logServer = logrus.WithField("process", "server")

// Server is the main process of the node
type Server struct {
	engine *pobpc.Engine
	api    *api.Server
	apiErr chan error

	cancel context.CancelFunc
	done   chan struct{}
}

// Setup creates the engine from the loaded configuration, starts the batch
// loop and serves the API.
func Setup() (*Server, error) {
	r := cfg.Get()

	e, err := pobpc.NewFromConfig(r)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		engine: e,
		apiErr: make(chan error, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	interval := r.Consensus.BatchInterval
	if interval <= 0 {
		interval = DefaultBatchInterval
	}

	go srv.batchLoop(ctx, interval)

	if r.API.Enabled {
		srv.api, err = api.NewHTTPServer(e)
		if err != nil {
			_ = srv.Close()
			return nil, err
		}

		go func() {
			srv.apiErr <- srv.api.Start()
		}()
	}

	return srv, nil
}

// batchLoop forms a batch from the pending transactions every interval.
func (s *Server) batchLoop(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p, err := s.engine.GenerateBatchProof(ctx)
		switch {
		case errors.Is(err, consensus.ErrEmptyBatch):
			continue
		case err != nil:
			logServer.WithError(err).Warn("batch not formed")
			continue
		}

		logServer.WithFields(logrus.Fields{
			"transactions": p.TransactionCount,
			"witnesses":    len(p.Witnesses.SelectedWitnesses),
		}).Debug("batch submitted for voting")
	}
}

// Close stops the batch loop and the API server and closes the engine.
func (s *Server) Close() error {
	s.cancel()
	<-s.done

	if s.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.api.Server.Shutdown(ctx); err != nil {
			logServer.WithError(err).Warn("API server shutdown")
		}
	}

	return s.engine.Close()
}
