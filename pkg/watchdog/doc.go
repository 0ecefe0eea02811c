// Package watchdog runs the host side of the PowerUSB watchdog.
//
// A Driver optionally re-arms the device watchdog with a known
// configuration and then sends a heartbeat once per period until its
// context is canceled. Whichever way Run ends (cancellation, signal or a
// failed transfer) the shutdown sequence runs exactly once: the device
// watchdog is stopped first and the device is released second. Leaving the
// watchdog armed without a heartbeat source would power-cycle the protected
// machine.
//
//	ctx, stop := watchdog.NotifyContext(context.Background())
//	defer stop()
//
//	drv, err := watchdog.New(dev, watchdog.Config{
//	    Watchdog: protocol.DefaultWatchdogConfig(),
//	    Init:     true,
//	})
//	if err != nil {
//	    return err
//	}
//	return drv.Run(ctx)
package watchdog
