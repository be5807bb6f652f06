// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config package should avoid importing any pobpc packages in order to
// prevent any cyclic-dependancy issues

const (
	// current working dir
	searchPath1 = "."
	// home datadir
	searchPath2 = "$HOME/.pobpc/"

	// name for the config file. Does not include extension.
	configFileName = "pobpc"
)

var r *Registry

// Registry stores all loaded configurations according to the config order
// NB It should be cheap to be copied by value
type Registry struct {
	UsedConfigFile string

	// All configuration groups
	General     generalConfiguration
	Logger      loggerConfiguration
	Consensus   consensusConfiguration
	Ingress     ingressConfiguration
	Database    databaseConfiguration
	API         apiConfiguration
	Performance performanceConfiguration
	Witnesses   []witnessConfiguration
}

// Load makes an attempt to read and unmarshal any configs from flag, env and
// pobpc config file.
//
// It uses the following precedence order. Each item takes precedence over the item below it:
//   - flag
//   - env
//   - config
//   - default
//
// An empty confFile searches for pobpc.toml (or json/yaml) in the search
// paths. A missing config file is not an error, since every setting has a
// default. args are parsed as pflag overrides, e.g. `--logger.level=debug`.
func Load(confFile string, args []string) error {
	reg := new(Registry)
	v := viper.New()

	if err := reg.init(v, confFile, args); err != nil {
		return err
	}

	// Validation is done by the consumers (packages) as they will be the
	// best at knowing what they expect
	r = reg
	return nil
}

// Get returns registry by value in order to avoid further modifications after
// initial configuration loading
func Get() Registry {
	return *r
}

func (r *Registry) init(v *viper.Viper, confFile string, args []string) error {
	setDefaults(v)

	v.SetConfigName(configFileName)
	v.AddConfigPath(searchPath1)
	v.AddConfigPath(searchPath2)

	fs, err := loadFlags(v, args)
	if err != nil {
		return err
	}

	// confFile is overwritten by the one from command line
	if c, _ := fs.GetString("config"); len(c) > 0 {
		confFile = c
	}

	if len(confFile) > 0 {
		v.SetConfigFile(confFile)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || len(confFile) > 0 {
			return errors.Wrap(err, "error reading config file")
		}
	}

	if err := defineENV(v); err != nil {
		return err
	}

	// Unmarshal all configurations from all conf levels to the registry struct
	if err := v.Unmarshal(r); err != nil {
		return errors.Wrap(err, "unable to decode into struct")
	}

	r.UsedConfigFile = v.ConfigFileUsed()
	return nil
}

func loadFlags(v *viper.Viper, args []string) (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet("pobpc node", pflag.ContinueOnError)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", "pobpc node")
		fs.PrintDefaults()
	}

	// Define all supported flags.
	// All flags should be verified `loader_test.go/TestSupportedFlags`
	defineFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "unable to parse flags")
	}

	// Bind only the flags that were set, so that flag defaults do not shadow
	// values coming from the config file.
	//
	// e.g CLI argument `--logger.level="warn"` will overwrite the value from
	// `[logger] level = "info"` in the loaded config file
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}

		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = errors.Wrapf(err, "unable to bind flag %s", f.Name)
		}
	})

	return fs, bindErr
}

// define a set of flags as bindings to config file settings
// The settings that are needed to be passed frequently by CLI should be added here
func defineFlags(fs *pflag.FlagSet) {
	_ = fs.String("config", "", "Set path to the config file")
	_ = fs.StringP("logger.level", "l", "", "override logger.level settings in config file")
	_ = fs.StringP("logger.output", "o", "stdout", "specifies the log output")
	_ = fs.StringP("general.network", "n", "testnet", "override general.network settings in config file")
	_ = fs.StringP("api.address", "a", DefaultAPIAddress, "sets the API server address")
	_ = fs.IntP("consensus.witnesscount", "w", 0, "sets the number of witnesses selected per batch")
	_ = fs.IntP("consensus.batchsize", "b", 0, "sets the maximum number of transactions per batch")
}

// define a set of environment variables as bindings to config file settings
func defineENV(v *viper.Viper) error {
	bindings := map[string]string{
		"general.network":              "POBPC_GENERAL_NETWORK",
		"logger.level":                 "POBPC_LOGGER_LEVEL",
		"api.address":                  "POBPC_API_ADDRESS",
		"consensus.witnesscount":       "POBPC_CONSENSUS_WITNESSCOUNT",
		"consensus.batchtimeout":       "POBPC_CONSENSUS_BATCHTIMEOUT",
		"database.witnessdir":          "POBPC_DATABASE_WITNESSDIR",
		"database.metricsdir":          "POBPC_DATABASE_METRICSDIR",
		"database.ledgerfile":          "POBPC_DATABASE_LEDGERFILE",
		"ingress.rate":                 "POBPC_INGRESS_RATE",
		"consensus.consensusthreshold": "POBPC_CONSENSUS_CONSENSUSTHRESHOLD",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return errors.Wrapf(err, "unable to bind env %s", env)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	d := defaultRegistry()
	v.SetDefault("general.network", d.General.Network)
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.output", d.Logger.Output)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("ingress.capacity", d.Ingress.Capacity)
	v.SetDefault("ingress.burst", d.Ingress.Burst)
	v.SetDefault("ingress.dedupecapacity", d.Ingress.DedupeCapacity)
	v.SetDefault("api.enabled", d.API.Enabled)
	v.SetDefault("api.address", d.API.Address)
	v.SetDefault("api.maxrequestlimit", d.API.MaxRequestLimit)
	v.SetDefault("api.minhealthscore", d.API.MinHealthScore)
}

func defaultRegistry() *Registry {
	d := new(Registry)
	d.General.Network = "testnet"
	d.Logger.Level = "info"
	d.Logger.Output = "stdout"
	d.Logger.Format = "text"
	d.Ingress.Capacity = DefaultIngressCapacity
	d.Ingress.Burst = DefaultIngressCapacity
	d.Ingress.DedupeCapacity = 4 * DefaultIngressCapacity
	d.API.Enabled = true
	d.API.Address = DefaultAPIAddress
	d.API.MaxRequestLimit = 100
	d.API.MinHealthScore = DefaultMinHealthScore
	return d
}

// Mock should be used only in test packages. It could be useful when a unit
// test needs to be rerun with configs different from the default ones.
func Mock(m *Registry) {
	r = m
}

func init() {
	// By default Registry should be populated with the defaults. In that way,
	// consumers (packages) can use it on unit testing without loading a file
	r = defaultRegistry()
}
