// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/go-chi/render"
	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
)

const hashArg = "hash"

type data struct {
	Query     string                 `json:"query"`
	Operation string                 `json:"operationName,omitempty"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

var metricsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Metrics",
	Fields: graphql.Fields{
		"totalBatches":         &graphql.Field{Type: graphql.Int},
		"totalTransactions":    &graphql.Field{Type: graphql.Int},
		"finalizedBatches":     &graphql.Field{Type: graphql.Int},
		"failedBatches":        &graphql.Field{Type: graphql.Int},
		"witnessTimeouts":      &graphql.Field{Type: graphql.Int},
		"avgBatchTime":         &graphql.Field{Type: graphql.Float},
		"consensusLatency":     &graphql.Field{Type: graphql.Float},
		"witnessParticipation": &graphql.Field{Type: graphql.Float},
		"healthScore":          &graphql.Field{Type: graphql.Float},
		"pending":              &graphql.Field{Type: graphql.Int},
	},
})

var witnessType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Witness",
	Fields: graphql.Fields{
		"nodeId":      &graphql.Field{Type: graphql.String},
		"publicKey":   &graphql.Field{Type: graphql.String},
		"reliability": &graphql.Field{Type: graphql.Float},
		"successful":  &graphql.Field{Type: graphql.Int},
		"total":       &graphql.Field{Type: graphql.Int},
		"lastActive":  &graphql.Field{Type: graphql.String},
	},
})

var batchType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Batch",
	Fields: graphql.Fields{
		"hash":             &graphql.Field{Type: graphql.String},
		"phase":            &graphql.Field{Type: graphql.String},
		"transactionCount": &graphql.Field{Type: graphql.Int},
		"votes":            &graphql.Field{Type: graphql.Int},
		"confidence":       &graphql.Field{Type: graphql.Float},
		"witnesses":        &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

func newSchema(node Node) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"metrics": &graphql.Field{
				Type: metricsType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s := node.Metrics()
					return map[string]interface{}{
						"totalBatches":         int(s.TotalBatches),
						"totalTransactions":    int(s.TotalTransactions),
						"finalizedBatches":     int(s.Batch.FinalizedBatches),
						"failedBatches":        int(s.Batch.FailedBatches),
						"witnessTimeouts":      int(s.Witness.WitnessTimeouts),
						"avgBatchTime":         s.AvgBatchTime,
						"consensusLatency":     s.Network.ConsensusLatency,
						"witnessParticipation": s.WitnessParticipation,
						"healthScore":          s.HealthScore(),
						"pending":              node.Pending(),
					}, nil
				},
			},
			"witnesses": &graphql.Field{
				Type: graphql.NewList(witnessType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					infos := node.Witnesses()
					out := make([]map[string]interface{}, len(infos))
					for i, w := range infos {
						out[i] = map[string]interface{}{
							"nodeId":      w.NodeID,
							"publicKey":   hex.EncodeToString(w.PublicKey),
							"reliability": w.ReliabilityScore,
							"successful":  int(w.SuccessfulValidations),
							"total":       int(w.TotalValidations),
							"lastActive":  w.LastActive.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
						}
					}

					return out, nil
				},
			},
			"batch": &graphql.Field{
				Type: batchType,
				Args: graphql.FieldConfigArgument{
					hashArg: &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					hash, _ := p.Args[hashArg].(string)
					raw, err := hex.DecodeString(hash)
					if err != nil {
						return nil, errors.New("invalid batch hash")
					}

					proof, phase, ok := node.Proof(raw)
					if !ok {
						return nil, nil
					}

					return map[string]interface{}{
						"hash":             hash,
						"phase":            phase.String(),
						"transactionCount": proof.TransactionCount,
						"votes":            proof.Votes(),
						"confidence":       node.CalculateConsensusConfidence(proof),
						"witnesses":        proof.Witnesses.SelectedWitnesses,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// handleQuery to process graphQL query
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Body == nil {
		http.Error(w, "Must provide graphql query in request body", http.StatusBadRequest)
		return
	}

	// Read and close JSON request body
	body, err := ioutil.ReadAll(r.Body)
	defer func() {
		_ = r.Body.Close()
	}()
	if err != nil {
		msg := fmt.Sprintf("%d error request: %v", http.StatusBadRequest, err)
		log.Error(msg)
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	var req data
	if err := json.Unmarshal(body, &req); err != nil {
		msg := fmt.Sprintf("Unmarshal request: %v", err)
		log.Error(msg)
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	log.Tracef("Query: %s", req.Query)

	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.Operation,
		Context:        r.Context(),
	})

	if len(result.Errors) > 0 {
		log.Warnf("Execute query error(s): %v", result.Errors)
	}

	render.JSON(w, r, result)
}
