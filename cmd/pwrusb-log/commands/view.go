// Package commands implements the pwrusb-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pwrusb/pwrusb-go/pkg/log"
	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	session := shortenSessionID(event.SessionID)

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Command != nil:
		typeLabel = event.Command.Name
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [%s] %-3s %s %s\n", ts, session, event.Direction.String(), event.Layer.String(), typeLabel)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenSessionID returns the first 8 characters of the session id.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if frame.Opcode != 0 {
		fmt.Fprintf(w, "  Opcode: %s\n", opcodeName(frame.Opcode))
	}
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s\n", hex.EncodeToString(frame.Data))
	}
}

func formatCommandDetails(w io.Writer, cmd *log.CommandEvent) {
	fmt.Fprintf(w, "  Opcode: 0x%02X\n", cmd.Opcode)
	if len(cmd.Params) > 0 {
		fmt.Fprintf(w, "  Params: %s\n", hex.EncodeToString(cmd.Params))
	}
	if len(cmd.Reply) > 0 {
		fmt.Fprintf(w, "  Reply: %s\n", hex.EncodeToString(cmd.Reply))
	}
	if cmd.Value != "" {
		fmt.Fprintf(w, "  Value: %s\n", cmd.Value)
	}
	if cmd.Duration > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(cmd.Duration))
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// opcodeName renders an opcode with its command name when known.
func opcodeName(op uint8) string {
	if cmd, ok := protocol.ByOpcode(protocol.Opcode(op)); ok {
		return fmt.Sprintf("0x%02X (%s)", op, cmd.Name)
	}
	return fmt.Sprintf("0x%02X", op)
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer name (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "protocol":
		return log.LayerProtocol, nil
	case "host":
		return log.LayerHost, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, protocol, or host)", s)
	}
}

// ParseDirectionFlag parses a direction name (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// ParseOpcodeFlag accepts a command name ("Heartbeat"), a hex byte ("0x94")
// or a decimal byte ("148").
func ParseOpcodeFlag(s string) (uint8, error) {
	if cmd, err := protocol.Lookup(s); err == nil {
		return uint8(cmd.Opcode), nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid opcode: %s (must be a command name or a byte value)", s)
	}
	return uint8(v), nil
}

// ParseTimeFlag parses an RFC3339 timestamp.
func ParseTimeFlag(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time: %s (must be RFC3339)", s)
	}
	return t, nil
}

// FilterFlags are the textual filter options shared by view, export and
// filter.
type FilterFlags struct {
	Session   string
	Layer     string
	Direction string
	Category  string
	Opcode    string
	TimeStart string
	TimeEnd   string
}

// Build converts the textual options to a log.Filter.
func (f FilterFlags) Build() (log.Filter, error) {
	filter := log.Filter{SessionID: f.Session}

	if f.Layer != "" {
		l, err := ParseLayerFlag(f.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if f.Direction != "" {
		d, err := ParseDirectionFlag(f.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if f.Category != "" {
		c, err := ParseCategoryFlag(f.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if f.Opcode != "" {
		op, err := ParseOpcodeFlag(f.Opcode)
		if err != nil {
			return filter, err
		}
		filter.Opcode = &op
	}
	if f.TimeStart != "" {
		t, err := ParseTimeFlag(f.TimeStart)
		if err != nil {
			return filter, err
		}
		filter.TimeStart = &t
	}
	if f.TimeEnd != "" {
		t, err := ParseTimeFlag(f.TimeEnd)
		if err != nil {
			return filter, err
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// RunView prints every matching event.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
