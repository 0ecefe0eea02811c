package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pwrusb/pwrusb-go/pkg/log"
	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// DefaultTimeout is the per-transfer timeout for bulk reads and writes.
const DefaultTimeout = 200 * time.Millisecond

// ChannelConfig configures a Channel.
type ChannelConfig struct {
	// Timeout bounds every bulk transfer (default: 200ms).
	Timeout time.Duration

	// ProtocolLogger receives frame and lifecycle capture events (optional).
	ProtocolLogger log.Logger
}

// Channel owns one claimed PowerUSB device handle.
//
// Every Send and Query runs under one mutex so that a transfer is never
// interleaved with another transfer or with Close.
type Channel struct {
	mu      sync.Mutex
	dev     Device
	closed  bool
	timeout time.Duration
	logger  log.Logger
	session string
	label   string
}

// Open finds the first PowerUSB device on bus, opens it and claims its
// control interface.
func Open(bus Bus, config ChannelConfig) (*Channel, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	c := &Channel{
		timeout: config.Timeout,
		logger:  log.OrNoop(config.ProtocolLogger),
		session: uuid.New().String(),
	}

	infos, err := bus.Devices()
	if err != nil {
		return nil, c.fail("enumerate", fmt.Errorf("%w: %w", protocol.ErrOpen, err))
	}
	var (
		info  DeviceInfo
		found bool
	)
	for _, i := range infos {
		if i.Matches(protocol.VendorID, protocol.ProductID) {
			info, found = i, true
			break
		}
	}
	if !found {
		return nil, c.fail("enumerate", fmt.Errorf("%w: no device with id %04x:%04x",
			protocol.ErrDeviceNotFound, protocol.VendorID, protocol.ProductID))
	}
	c.label = info.String()

	dev, err := bus.OpenDevice(info)
	if err != nil {
		return nil, c.fail("open", fmt.Errorf("%w: %s: %w", protocol.ErrOpen, info, err))
	}
	if err := dev.Claim(protocol.Interface); err != nil {
		_ = dev.Release()
		return nil, c.fail("claim", fmt.Errorf("%w: interface %d: %w", protocol.ErrClaim, protocol.Interface, err))
	}
	c.dev = dev

	c.logState("", "OPEN", "")
	return c, nil
}

// SessionID returns the capture session identifier of this channel.
func (c *Channel) SessionID() string {
	return c.session
}

// Device returns the bus description of the claimed device.
func (c *Channel) Device() string {
	return c.label
}

// Send pads cmd to a full frame and writes it to the OUT endpoint.
func (c *Channel) Send(cmd []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(cmd)
}

// Query sends cmd, reads one frame from the IN endpoint and returns its
// first n bytes.
func (c *Channel) Query(cmd []byte, n int) ([]byte, error) {
	if n < 0 || n > protocol.FrameSize {
		return nil, fmt.Errorf("%w: expected length %d out of range 0..%d", protocol.ErrInvalidArgument, n, protocol.FrameSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sendLocked(cmd); err != nil {
		return nil, err
	}

	buf := make([]byte, protocol.FrameSize)
	got, err := c.dev.BulkRead(protocol.EndpointIn, buf, c.timeout)
	if err != nil {
		return nil, c.fail("read", fmt.Errorf("read reply to 0x%02X: %w", cmd[0], err))
	}
	c.logFrame(log.DirectionIn, buf[:got])

	if got < n {
		return nil, c.fail("read", fmt.Errorf("%w: reply to 0x%02X has %d bytes, want %d",
			protocol.ErrProtocol, cmd[0], got, n))
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

func (c *Channel) sendLocked(cmd []byte) error {
	if c.closed || c.dev == nil {
		return protocol.ErrClosed
	}
	frame, err := protocol.Frame(cmd)
	if err != nil {
		return err
	}

	n, err := c.dev.BulkWrite(protocol.EndpointOut, frame, c.timeout)
	if err != nil {
		return c.fail("write", fmt.Errorf("write 0x%02X: %w", frame[0], err))
	}
	if n != len(frame) {
		return c.fail("write", fmt.Errorf("%w: short write of 0x%02X: %d of %d bytes",
			protocol.ErrProtocol, frame[0], n, len(frame)))
	}
	c.logFrame(log.DirectionOut, frame)
	return nil
}

// Close releases the claimed interface. It is safe to call more than once
// and on a nil channel.
func (c *Channel) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.dev == nil {
		return nil
	}

	err := c.dev.Release()
	c.dev = nil
	if err != nil {
		return c.fail("release", fmt.Errorf("release device: %w", err))
	}
	c.logState("OPEN", "CLOSED", "")
	return nil
}

func (c *Channel) logFrame(dir log.Direction, data []byte) {
	ev := &log.FrameEvent{Size: len(data)}
	if dir == log.DirectionOut && len(data) > 0 {
		ev.Opcode = data[0]
		ev.Data = trimPadding(data)
	} else {
		// Replies are not padded with 0xFF; keep them whole.
		ev.Data = append([]byte(nil), data...)
	}
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.session,
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Device:    c.label,
		Frame:     ev,
	})
}

func (c *Channel) logState(oldState, newState, reason string) {
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.session,
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryState,
		Device:    c.label,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityChannel,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// fail records err as a transport error event and returns it unchanged.
func (c *Channel) fail(op string, err error) error {
	if errors.Is(err, protocol.ErrIOTimeout) {
		op += " (timeout)"
	}
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.session,
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Device:    c.label,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: op,
		},
	})
	return err
}

// trimPadding drops the trailing PadByte fill of an outgoing frame.
func trimPadding(frame []byte) []byte {
	end := len(frame)
	for end > 1 && frame[end-1] == protocol.PadByte {
		end--
	}
	return append([]byte(nil), frame[:end]...)
}
