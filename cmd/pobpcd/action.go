// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cfg "github.com/dusk-network/dusk-pobpc/pkg/config"
	"github.com/dusk-network/dusk-pobpc/pkg/util/nativeutils/logging"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var log *logrus.Entry

func action(ctx *cli.Context) error {
	// check arguments
	if arguments := ctx.Args(); len(arguments) > 0 {
		return fmt.Errorf("failed to read command argument: %q", arguments[0])
	}

	var args []string
	if level := ctx.GlobalString(LogLevelFlag.Name); level != "" {
		args = append(args, "--logger.level="+level)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Loading all node configurations. Fail-fast if critical error occurs
	if err := cfg.Load(ctx.GlobalString(ConfigFlag.Name), args); err != nil {
		log.WithError(err).Fatal("Could not load config ")
	}

	// Set up logging.
	// Any subsystem should be initialized after config and logger loading
	var logFile *os.File

	output := cfg.Get().Logger.Output
	if output != "stdout" {
		var err error
		logFile, err = os.Create(output + ".log")
		if err != nil {
			log.Panic(err)
		}

		defer func() {
			_ = logFile.Close()
		}()
	} else {
		logFile = os.Stdout
	}

	logging.InitLog(logFile)

	log.WithField("file", cfg.Get().UsedConfigFile).Info("Loaded config file")
	log.WithField("network", cfg.Get().General.Network).Info("Selected network")

	srv, err := Setup()
	if err != nil {
		log.WithError(err).Error("could not start the node")
		return err
	}

	log.Info("initialization complete")

	// Wait until the interrupt signal is received from an OS signal or
	// the API server stops.
	select {
	case <-interrupt:
	case err := <-srv.apiErr:
		if err != nil {
			log.WithError(err).Error("API server stopped")
		}
	}

	if err := srv.Close(); err != nil {
		log.WithError(err).Error("could not shut down cleanly")
	}

	log.WithField("prefix", "main").Info("Terminated")
	return nil
}
