package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pwrusb/pwrusb-go/pkg/log"
)

// RunExport writes matching events as JSON lines or CSV to output (stdout
// when empty).
func RunExport(path, format, output string, filter log.Filter) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session_id", "direction", "layer", "category", "device", "type", "opcode", "data", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRecord(event)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return cw.Error()
}

func csvRecord(event log.Event) []string {
	var eventType, opcode, data, detail string
	switch {
	case event.Frame != nil:
		eventType = "frame"
		data = hex.EncodeToString(event.Frame.Data)
	case event.Command != nil:
		eventType = "command"
		data = hex.EncodeToString(append(append([]byte(nil), event.Command.Params...), event.Command.Reply...))
		detail = event.Command.Name
		if event.Command.Value != "" {
			detail += "=" + event.Command.Value
		}
	case event.StateChange != nil:
		eventType = "state"
		detail = event.StateChange.Entity.String() + ":" + event.StateChange.NewState
	case event.Error != nil:
		eventType = "error"
		detail = event.Error.Message
	default:
		eventType = "unknown"
	}
	if op, ok := log.EventOpcode(event); ok {
		opcode = "0x" + strconv.FormatUint(uint64(op), 16)
	}

	return []string{
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.SessionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		event.Device,
		eventType,
		opcode,
		data,
		detail,
	}
}
