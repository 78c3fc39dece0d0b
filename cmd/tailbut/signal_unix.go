//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/five82/tailbut/internal/state"
)

// dumpStatsOnSignal logs the counters whenever SIGUSR1 arrives.
func dumpStatsOnSignal(stats *state.Store, logger *log.Entry) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ch:
				logStats(logger.WithField("signal", "SIGUSR1"), stats.Snapshot())
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
