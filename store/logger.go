// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package store

import (
	"fmt"
	"strings"

	"go.mindeco.de/log"
	"go.mindeco.de/log/level"
)

// badgerLogger forwards badger's printf style logging to a structured logger
type badgerLogger struct {
	log.Logger
}

func (l badgerLogger) format(format string, args ...interface{}) string {
	s := fmt.Sprintf(format, args...)
	return strings.TrimRight(s, "\n")
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	level.Error(l.Logger).Log("msg", l.format(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	level.Warn(l.Logger).Log("msg", l.format(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	level.Debug(l.Logger).Log("msg", l.format(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	level.Debug(l.Logger).Log("msg", l.format(format, args...))
}
