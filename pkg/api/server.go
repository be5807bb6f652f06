// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth"
	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/batch"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/capi"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/committee"
	"github.com/dusk-network/dusk-pobpc/pkg/core/consensus/metrics"
	"github.com/etherlabsio/healthcheck"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/pat"
	"github.com/gorilla/rpc"
	"github.com/gorilla/rpc/json"
	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("process", "api")

// Node is the consensus engine as seen by the API.
type Node interface {
	AddTransaction(tx []byte) error
	GenerateBatchProof(ctx context.Context) (*batch.Proof, error)
	RegisterWitness(nodeID string, publicKey []byte) error
	SubmitWitnessVote(witnessID string, signature []byte, p *batch.Proof) bool
	CalculateConsensusConfidence(p *batch.Proof) float64

	Proof(batchHash []byte) (*batch.Proof, consensus.Phase, bool)
	Witnesses() []committee.Info
	Metrics() metrics.Snapshot
	HealthScore() float64
	Config() consensus.BatchConfig
	Pending() int
	Ledger() *capi.Ledger
}

// Server defines the HTTP server of the API
type Server struct {
	node   Node
	schema graphql.Schema

	Server *http.Server
}

// NewHTTPServer creates the API server of node, configured by the api group
// of the loaded configuration.
func NewHTTPServer(node Node) (*Server, error) {
	srv := Server{node: node}

	schema, err := newSchema(node)
	if err != nil {
		return nil, err
	}
	srv.schema = schema

	router, err := srv.InitRouting()
	if err != nil {
		return nil, err
	}

	var handler http.Handler = router
	if limit := cfg.Get().API.MaxRequestLimit; limit > 0 {
		handler = tollbooth.LimitHandler(tollbooth.NewLimiter(limit, nil), router)
	}

	srv.Server = &http.Server{
		Addr:         cfg.Get().API.Address,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return &srv, nil
}

// Start serves the API until the process receives a termination signal.
func (s *Server) Start() error {
	log.WithField("address", s.Server.Addr).Info("Starting API server")

	// graceful shutdown on SIGTERM/SIGUSR2
	return gracehttp.Serve(s.Server)
}

// InitRouting builds the router of the API.
func (s *Server) InitRouting() (*pat.Router, error) {
	r := pat.New()

	r.Handle("/healthcheck", healthcheck.Handler(
		// WithTimeout allows you to set a max overall timeout.
		healthcheck.WithTimeout(5*time.Second),

		healthcheck.WithChecker(
			"health", healthcheck.CheckerFunc(
				func(ctx context.Context) error {
					score := s.node.HealthScore()
					if min := cfg.Get().API.MinHealthScore; score < min {
						return fmt.Errorf("health score %.3f below %.3f", score, min)
					}

					return nil
				},
			),
		),
	))

	rpcServer := rpc.NewServer()
	rpcServer.RegisterCodec(json.NewCodec(), "application/json")
	rpcServer.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if err := rpcServer.RegisterService(&ConsensusService{node: s.node}, "Consensus"); err != nil {
		return nil, err
	}

	r.Post("/rpc", rpcServer.ServeHTTP)
	r.Post("/graphql", s.handleQuery)

	r.Get("/consensus/batches/{hash}", s.getBatch)
	r.Get("/consensus/witnesses", s.getWitnesses)
	r.Get("/consensus/metrics", s.getMetrics)
	r.Get("/consensus/config", s.getConfig)

	return r, nil
}
