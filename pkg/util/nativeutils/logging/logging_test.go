// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetToLevel(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	SetToLevel("warn")
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	SetToLevel("not-a-level")
	assert.Equal(t, log.TraceLevel, log.GetLevel())
}

func TestInitLogJSON(t *testing.T) {
	r := cfg.Get()
	r.Logger.Level = "info"
	r.Logger.Format = "json"
	cfg.Mock(&r)

	defer func() {
		log.SetFormatter(&log.TextFormatter{})
		log.SetOutput(os.Stderr)
	}()

	var buf bytes.Buffer
	InitLog(&buf)

	log.WithField("process", "test").Info("hello")
	log.Debug("filtered")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["process"])
}
