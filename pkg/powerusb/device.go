package powerusb

import (
	"time"

	"github.com/pwrusb/pwrusb-go/pkg/log"
	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// Conn is the frame-level channel a Device talks through.
type Conn interface {
	// Send writes one command.
	Send(cmd []byte) error

	// Query writes one command and returns the first n reply bytes.
	Query(cmd []byte, n int) ([]byte, error)

	// Close releases the device. It must be idempotent.
	Close() error
}

// Config configures a Device.
type Config struct {
	// ProtocolLogger receives command-level capture events (optional).
	ProtocolLogger log.Logger

	// SessionID tags capture events; usually the channel's session id.
	SessionID string

	// Device describes the device in capture events.
	Device string
}

// Device is a PowerUSB strip reached through a Conn.
type Device struct {
	conn    Conn
	logger  log.Logger
	session string
	label   string
}

// New wraps conn.
func New(conn Conn, config Config) *Device {
	return &Device{
		conn:    conn,
		logger:  log.OrNoop(config.ProtocolLogger),
		session: config.SessionID,
		label:   config.Device,
	}
}

// Close releases the underlying channel.
func (d *Device) Close() error {
	return d.conn.Close()
}

// exec sends a command without reply.
func (d *Device) exec(cmd protocol.Command, params ...byte) error {
	return d.send(cmd, cmd.Encode(params...))
}

// send writes pre-encoded bytes for cmd.
func (d *Device) send(cmd protocol.Command, raw []byte) error {
	start := time.Now()
	err := d.conn.Send(raw)
	ev := &log.CommandEvent{
		Name:     cmd.Name,
		Opcode:   uint8(cmd.Opcode),
		Params:   raw[1:],
		Duration: time.Since(start),
	}
	d.logCommand(ev, err)
	return err
}

// ask runs a query command and decodes the reply.
func (d *Device) ask(cmd protocol.Command) (protocol.Value, error) {
	start := time.Now()
	reply, err := d.conn.Query(cmd.Encode(), cmd.Response.Length)
	ev := &log.CommandEvent{
		Name:     cmd.Name,
		Opcode:   uint8(cmd.Opcode),
		Reply:    reply,
		Duration: time.Since(start),
	}
	if err != nil {
		d.logCommand(ev, err)
		return protocol.Value{}, err
	}

	v, err := cmd.Decode(reply)
	if err == nil {
		ev.Value = formatValue(v)
	}
	d.logCommand(ev, err)
	return v, err
}

// askRaw runs a query command and returns the reply bytes undecoded.
func (d *Device) askRaw(cmd protocol.Command) ([]byte, error) {
	start := time.Now()
	reply, err := d.conn.Query(cmd.Encode(), cmd.Response.Length)
	d.logCommand(&log.CommandEvent{
		Name:     cmd.Name,
		Opcode:   uint8(cmd.Opcode),
		Reply:    reply,
		Duration: time.Since(start),
	}, err)
	return reply, err
}

func formatValue(v protocol.Value) string {
	if v.Kind == protocol.KindBool {
		return protocol.PortStateFromBool(v.Bool).String()
	}
	return formatUint(v.Uint)
}

func (d *Device) logCommand(ev *log.CommandEvent, err error) {
	now := time.Now()
	d.logger.Log(log.Event{
		Timestamp: now,
		SessionID: d.session,
		Direction: log.DirectionOut,
		Layer:     log.LayerProtocol,
		Category:  log.CategoryMessage,
		Device:    d.label,
		Command:   ev,
	})
	if err != nil {
		d.logger.Log(log.Event{
			Timestamp: now,
			SessionID: d.session,
			Direction: log.DirectionOut,
			Layer:     log.LayerProtocol,
			Category:  log.CategoryError,
			Device:    d.label,
			Error: &log.ErrorEventData{
				Layer:   log.LayerProtocol,
				Message: err.Error(),
				Context: ev.Name,
			},
		})
	}
}

func (d *Device) logWatchdog(oldState, newState, reason string) {
	d.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: d.session,
		Direction: log.DirectionOut,
		Layer:     log.LayerProtocol,
		Category:  log.CategoryState,
		Device:    d.label,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityWatchdog,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
