package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Output formats.
const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// ErrUsage reports flags that do not fit together.
var ErrUsage = errors.New("invalid usage")

func checkFormat(format string) error {
	switch format {
	case formatCSV, formatJSON:
		return nil
	default:
		return fmt.Errorf("%w: --format must be csv or json, got %q", ErrUsage, format)
	}
}

// openOutput returns stdout for "" or "-", otherwise a created file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

// openInput returns stdin for "-", otherwise the opened file.
func openInput(cmd *cobra.Command, path string) (io.Reader, func() error, error) {
	if path == "-" {
		return cmd.InOrStdin(), func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, f.Close, nil
}

// writeOutput runs write against the output named by path.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	w, closeFn, err := openOutput(cmd, path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
