// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/komkom/toml"
	"go.mindeco.de/log"
	"go.mindeco.de/log/level"
)

type ConfigBool bool

type SqueakCliConfig struct {
	Network        string `json:"network,omitempty"`
	Repo           string `json:"repo,omitempty"`
	LogLevel       string `json:"loglevel,omitempty"`
	MetricsAddress string `json:"debuglis,omitempty"`
	Workers        uint   `json:"workers,omitempty"`

	NoStore ConfigBool `json:"nostore"`

	Presence map[string]interface{}
}

type MergedConfig struct {
	SqueakCli SqueakCliConfig `json:"squeakcli"`
}

func (config SqueakCliConfig) Has(flagname string) bool {
	_, ok := config.Presence[flagname]
	return ok
}

// ReadConfigSqueakCli reads the [squeakcli] section of the TOML file at configPath.
// A missing file is not an error, ok is false then.
func ReadConfigSqueakCli(logger log.Logger, configPath string) (conf SqueakCliConfig, ok bool, err error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	conf.Presence = make(map[string]interface{})

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			level.Info(logger).Log("event", "read config", "msg", "no config detected", "path", configPath)
			return conf, false, nil
		}
		return conf, false, eout(err, "read config file %s", configPath)
	}

	level.Info(logger).Log("event", "read config", "msg", "config detected", "path", configPath)

	// 1) first we unmarshal into struct for type checks
	var merged MergedConfig
	decoder := json.NewDecoder(toml.New(bytes.NewBuffer(data)))
	if err := decoder.Decode(&merged); err != nil {
		return conf, false, eout(err, "decode into struct")
	}

	// 2) then we unmarshal into a map for presence check (to make sure bools are treated correctly)
	presence := make(map[string]interface{})
	decoder = json.NewDecoder(toml.New(bytes.NewBuffer(data)))
	if err := decoder.Decode(&presence); err != nil {
		return conf, false, eout(err, "decode into presence map")
	}

	conf = merged.SqueakCli
	if section, isMap := presence["squeakcli"].(map[string]interface{}); isMap {
		conf.Presence = section
	} else {
		level.Warn(logger).Log("event", "read config", "msg", "no [squeakcli] detected in config file - I am not reading anything from the config file", "path", configPath)
		conf = SqueakCliConfig{Presence: make(map[string]interface{})}
	}

	if conf.Repo != "" {
		conf.Repo, err = expandPath(conf.Repo)
		if err != nil {
			return conf, false, err
		}
	}
	return conf, true, nil
}

// ReadEnvironmentVariables overrides config values with the SQUEAK_* variables that are set.
func ReadEnvironmentVariables(config *SqueakCliConfig) error {
	if config.Presence == nil {
		config.Presence = make(map[string]interface{})
	}

	if val := os.Getenv("SQUEAK_NETWORK"); val != "" {
		config.Network = val
		config.Presence["network"] = true
	}
	if val := os.Getenv("SQUEAK_REPO"); val != "" {
		p, err := expandPath(val)
		if err != nil {
			return err
		}
		config.Repo = p
		config.Presence["repo"] = true
	}
	if val := os.Getenv("SQUEAK_LOG_LEVEL"); val != "" {
		config.LogLevel = val
		config.Presence["loglevel"] = true
	}
	if val := os.Getenv("SQUEAK_METRICS_ADDRESS"); val != "" {
		config.MetricsAddress = val
		config.Presence["debuglis"] = true
	}
	if val := os.Getenv("SQUEAK_NO_STORE"); val != "" {
		var b ConfigBool
		if err := b.UnmarshalJSON([]byte(`"` + val + `"`)); err != nil {
			return eout(err, "parsing SQUEAK_NO_STORE")
		}
		config.NoStore = b
		config.Presence["nostore"] = true
	}
	return nil
}

// ensure the following type of path expansions take place:
// * ~/.squeak      => /home/<user>/.squeak
// * .squeak        => /home/<user>/.squeak
// * /stuff/.squeak => /stuff/.squeak
func expandPath(p string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eout(err, "could not get user home directory")
	}

	if strings.HasPrefix(p, "~") {
		p = strings.Replace(p, "~", home, 1)
	}

	// not relative path, not absolute path =>
	// place relative to home dir "~/<here>"
	if !filepath.IsAbs(p) {
		p = filepath.Join(home, p)
	}

	return p, nil
}

func (booly ConfigBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(booly))
}

func (booly *ConfigBool) UnmarshalJSON(b []byte) error {
	// unmarshal into interface{} first, as a bool can't be unmarshaled into a string
	var v interface{}
	err := json.Unmarshal(b, &v)
	if err != nil {
		return eout(err, "unmarshal config bool")
	}

	// 1. the config value is a proper boolean, or
	// 2. the config value is a boolish string (e.g. "true" or "1")
	var temp bool
	if val, ok := v.(bool); ok {
		temp = val
	} else if s, ok := v.(string); ok {
		temp = booleanIsTrue(s)
		if !temp {
			// catch strings that cause a false value, but which aren't boolish
			if s != "false" && s != "0" && s != "no" && s != "off" {
				return errors.New("non-boolean string found when unmarshaling boolish values")
			}
		}
	}
	*booly = (ConfigBool)(temp)

	return nil
}

func booleanIsTrue(s string) bool {
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func eout(err error, msg string, args ...interface{}) error {
	if err != nil {
		msg = fmt.Sprintf(msg, args...)
		return fmt.Errorf("config: %s (%w)", msg, err)
	}
	return nil
}
