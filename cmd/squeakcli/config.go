// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"go.mindeco.de/log"

	"github.com/squeaknode/go-squeak/internal/config-reader"
)

func readConfigAndEnv(logger log.Logger, configPath string) (config.SqueakCliConfig, error) {
	conf, _, err := config.ReadConfigSqueakCli(logger, configPath)
	if err != nil {
		return conf, err
	}
	if err := config.ReadEnvironmentVariables(&conf); err != nil {
		return conf, err
	}
	return conf, nil
}
