package commands

import (
	"fmt"
	"io"

	"github.com/pwrusb/pwrusb-go/pkg/log"
)

// RunFilter copies matching events into a new capture file and returns how
// many were written.
func RunFilter(path, output string, filter log.Filter) (int, error) {
	if output == "" {
		return 0, fmt.Errorf("output file required")
	}
	if output == path {
		return 0, fmt.Errorf("output file must differ from input")
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close()
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		out.Log(event)
		count++
	}

	if err := out.Close(); err != nil {
		return count, fmt.Errorf("failed to close output file: %w", err)
	}
	if n := out.Dropped(); n > 0 {
		return count - n, fmt.Errorf("%d events could not be written", n)
	}
	return count, nil
}
