package output

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dshills/sieve/internal/scan"
)

// ErrUnsupportedFormat is returned by GetWriter for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, rep *scan.Report) error
}

// Options tune the writers that support them.
type Options struct {
	// Version is the tool version recorded in SARIF output.
	Version string
	// Verbose adds per-file summaries to text output.
	Verbose bool
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string, opts Options) (Writer, error) {
	switch format {
	case "", "text":
		return &TextWriter{Verbose: opts.Verbose}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{Version: opts.Version}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WriteReport writes the report to outPath, or to stdout when outPath is
// empty.
func WriteReport(rep *scan.Report, format, outPath string, opts Options) error {
	writer, err := GetWriter(format, opts)
	if err != nil {
		return err
	}
	if outPath == "" {
		return writer.Write(os.Stdout, rep)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := writer.Write(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
