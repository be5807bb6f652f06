// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package capi

import "time"

// BatchRecord is the terminal outcome of a batch as kept in the ledger.
type BatchRecord struct {
	ID           int       `storm:"id,increment" json:"id"`
	BatchHash    string    `storm:"unique" json:"batch_hash"`
	Timestamp    int64     `storm:"index" json:"timestamp"`
	Phase        string    `storm:"index" json:"phase"`
	Transactions int       `json:"transactions"`
	Confidence   float64   `json:"confidence"`
	Votes        int       `json:"votes"`
	Witnesses    []string  `json:"witnesses"`
	Elapsed      float64   `json:"elapsed"`
	RecordedAt   time.Time `json:"recorded_at"`
}
