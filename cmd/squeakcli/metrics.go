// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"net/http"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mindeco.de/log/level"
)

var (
	checkedSqueaks metrics.Counter = discard.NewCounter()
	storedSqueaks  metrics.Counter = discard.NewCounter()
)

func startDebug(debugAddr string) {
	if debugAddr == "" {
		return
	}

	checkedSqueaks = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "squeak",
		Subsystem: "validator",
		Name:      "checked_total",
	}, []string{"result"})

	storedSqueaks = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "squeak",
		Subsystem: "store",
		Name:      "stored_total",
	}, []string{"key"})

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		level.Info(logger).Log("starting", "metrics", "addr", debugAddr)
		err := http.ListenAndServe(debugAddr, mux)
		if err != nil {
			level.Error(logger).Log("event", "metrics server failed", "err", err)
		}
	}()
}
