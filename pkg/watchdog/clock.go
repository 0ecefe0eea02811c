package watchdog

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Clock abstracts time for the heartbeat loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock.
func RealClock() Clock {
	return realClock{}
}

// ShutdownSignals are the signals that end the heartbeat loop.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// NotifyContext returns a context canceled on the first ShutdownSignals
// delivery.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, ShutdownSignals...)
}
