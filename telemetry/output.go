package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// Output appends one LoopStats row per round to rounds.csv in the output
// directory. A nil Output is disabled.
type Output struct {
	file          *os.File
	headerWritten bool
}

// NewOutput opens the round stats file inside dir, creating the directory if
// needed. Returns nil (disabled) when dir is empty.
func NewOutput(dir string) (*Output, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "rounds.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating rounds.csv: %w", err)
	}
	return &Output{file: f}, nil
}

// WriteRound appends one round's aggregate, writing the CSV header on the
// first call.
func (o *Output) WriteRound(stats LoopStats) error {
	if o == nil {
		return nil
	}

	records := []LoopStats{stats}
	if !o.headerWritten {
		if err := gocsv.Marshal(records, o.file); err != nil {
			return fmt.Errorf("writing round stats: %w", err)
		}
		o.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, o.file); err != nil {
		return fmt.Errorf("writing round stats: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (o *Output) Close() error {
	if o == nil {
		return nil
	}
	return o.file.Close()
}
