// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package main

import (
	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	"github.com/urfave/cli"
)

var (
	// LogLevelFlag overrides logger.level.
	LogLevelFlag = cli.StringFlag{
		Name:  "loglevel",
		Usage: "log level (trace, debug, info, warn, error)",
	}
	// ConfigFlag flag to use configuration file.
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "pobpc.toml configuration file",
	}
	// AddressFlag is the API address of the node queried by status.
	AddressFlag = cli.StringFlag{
		Name:  "address",
		Usage: "API address of the node",
		Value: cfg.DefaultAPIAddress,
	}
)

var (
	// CLIFlags flags usable in a CLI context.
	CLIFlags = []cli.Flag{
		LogLevelFlag,
	}
	// GlobalFlags flags usable in a global context.
	GlobalFlags = []cli.Flag{
		ConfigFlag,
	}
)
