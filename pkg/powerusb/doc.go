// Package powerusb is the command-level API of a PowerUSB power strip.
//
// A Device wraps an open channel (see transport.Channel) and exposes the
// outlet, current and watchdog operations as typed methods:
//
//	ch, err := transport.Open(bus, transport.ChannelConfig{})
//	if err != nil {
//	    return err
//	}
//	dev := powerusb.New(ch, powerusb.Config{})
//	defer dev.Close()
//
//	if err := dev.SetPort(protocol.Port1, protocol.On, false); err != nil {
//	    return err
//	}
//	status, err := dev.WatchdogStatus()
//
// Device holds no state of its own beyond the channel; every call is one
// synchronous exchange with the strip. Calls must not be issued
// concurrently from several goroutines unless the underlying Conn
// serializes them (transport.Channel does).
package powerusb
