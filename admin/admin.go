// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package admin runs the side HTTP server for /metrics, /live and pprof.
package admin

import (
	"runtime"
)

// Init configures runtime profiling for the pprof handlers that
// are enabled. Call it once before SetupServer.
func Init() error {
	if pprofProfileEnabled("block", pprofHandlers["block"]) {
		runtime.SetBlockProfileRate(1)
	}
	if pprofProfileEnabled("mutex", pprofHandlers["mutex"]) {
		runtime.SetMutexProfileFraction(1)
	}
	return nil
}
