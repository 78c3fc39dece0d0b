//go:build !unix

package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/five82/tailbut/internal/state"
)

func dumpStatsOnSignal(*state.Store, *log.Entry) (stop func()) {
	return func() {}
}
