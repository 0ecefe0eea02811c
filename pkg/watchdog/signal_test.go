//go:build unix

package watchdog

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

func TestSIGTERMInterruptsWait(t *testing.T) {
	ctx, stop := NotifyContext(context.Background())
	defer stop()

	beat := make(chan struct{}, 1)
	ctrl := &recordingController{clock: RealClock()}
	ctrl.onHeartbeat = func(int) {
		select {
		case beat <- struct{}{}:
		default:
		}
	}

	cfg := protocol.WatchdogConfig{IntervalSeconds: 255}
	d, err := New(ctrl, Config{Watchdog: cfg, Logger: quietLogger()})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-beat:
	case <-time.After(5 * time.Second):
		t.Fatal("no heartbeat")
	}
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not stop on SIGTERM")
	}
	assert.Equal(t, []string{"heartbeat", "stop", "close"}, ctrl.Calls())
}
