// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package api

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownBatch is returned when a vote refers to a batch that is not
// held in memory.
var ErrUnknownBatch = errors.New("unknown batch")

// ConsensusService is the JSON-RPC service of the engine. Binary values are
// hex encoded.
type ConsensusService struct {
	node Node
}

// AddTransactionArgs are the arguments of Consensus.AddTransaction.
type AddTransactionArgs struct {
	Tx string `json:"tx"`
}

// AddTransactionReply is the reply of Consensus.AddTransaction.
type AddTransactionReply struct {
	Pending int `json:"pending"`
}

// AddTransaction admits a transaction to the ingress queue.
func (s *ConsensusService) AddTransaction(r *http.Request, args *AddTransactionArgs, reply *AddTransactionReply) error {
	tx, err := decodeHex(args.Tx)
	if err != nil {
		return err
	}

	if err := s.node.AddTransaction(tx); err != nil {
		return err
	}

	reply.Pending = s.node.Pending()
	return nil
}

// RegisterWitnessArgs are the arguments of Consensus.RegisterWitness.
type RegisterWitnessArgs struct {
	NodeID    string `json:"node_id"`
	PublicKey string `json:"public_key"`
}

// RegisterWitnessReply is the reply of Consensus.RegisterWitness.
type RegisterWitnessReply struct {
	Registered bool `json:"registered"`
}

// RegisterWitness adds a witness.
func (s *ConsensusService) RegisterWitness(r *http.Request, args *RegisterWitnessArgs, reply *RegisterWitnessReply) error {
	pk, err := decodeHex(args.PublicKey)
	if err != nil {
		return err
	}

	if err := s.node.RegisterWitness(args.NodeID, pk); err != nil {
		return err
	}

	reply.Registered = true
	return nil
}

// SubmitVoteArgs are the arguments of Consensus.SubmitVote.
type SubmitVoteArgs struct {
	NodeID    string `json:"node_id"`
	BatchHash string `json:"batch_hash"`
	Signature string `json:"signature"`
}

// SubmitVoteReply is the reply of Consensus.SubmitVote.
type SubmitVoteReply struct {
	Accepted     bool `json:"accepted"`
	HasConsensus bool `json:"has_consensus"`
}

// SubmitVote submits the vote of a witness on a batch held in memory. A
// rejected vote is not an error.
func (s *ConsensusService) SubmitVote(r *http.Request, args *SubmitVoteArgs, reply *SubmitVoteReply) error {
	hash, err := decodeHex(args.BatchHash)
	if err != nil {
		return err
	}

	sig, err := decodeHex(args.Signature)
	if err != nil {
		return err
	}

	p, _, ok := s.node.Proof(hash)
	if !ok {
		return errors.Wrap(ErrUnknownBatch, args.BatchHash)
	}

	reply.Accepted = s.node.SubmitWitnessVote(args.NodeID, sig, p)
	reply.HasConsensus = p.Witnesses.HasConsensus
	return nil
}

// GenerateBatchArgs are the arguments of Consensus.GenerateBatch.
type GenerateBatchArgs struct{}

// GenerateBatchReply is the reply of Consensus.GenerateBatch.
type GenerateBatchReply struct {
	BatchHash        string   `json:"batch_hash"`
	TransactionCount int      `json:"transaction_count"`
	Witnesses        []string `json:"witnesses"`
}

// GenerateBatch forms a batch from the pending transactions.
func (s *ConsensusService) GenerateBatch(r *http.Request, args *GenerateBatchArgs, reply *GenerateBatchReply) error {
	p, err := s.node.GenerateBatchProof(r.Context())
	if err != nil {
		return err
	}

	reply.BatchHash = hex.EncodeToString(p.BatchHash)
	reply.TransactionCount = p.TransactionCount
	reply.Witnesses = p.Witnesses.SelectedWitnesses
	return nil
}

func decodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex")
	}

	return b, nil
}
