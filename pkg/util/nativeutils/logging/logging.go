// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package logging

import (
	"io"

	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	log "github.com/sirupsen/logrus"
)

// InitLog applies the logger settings of the loaded configuration and
// redirects the standard logger to out.
func InitLog(out io.Writer) {
	if cfg.Get().Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	// apply logger level from configurations
	SetToLevel(cfg.Get().Logger.Level)
	log.SetOutput(out)
}

// SetToLevel sets the level of the standard logger. A malformed level falls
// back to Trace.
func SetToLevel(l string) {
	level, err := log.ParseLevel(l)
	if err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(log.TraceLevel)
		log.Warnf("Parse logger level from config err: %v", err)
	}
}
