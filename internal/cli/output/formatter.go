package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/yndnr/trayctl/internal/core/domain"
)

// Format represents the output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --output value. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("output %q (want table, json or yaml)", s))
	}
}

// Formatter formats data for output.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// Style controls terminal decoration of the table format.
type Style struct {
	Color bool
}

// DetectStyle enables color when f is a terminal and NO_COLOR is unset.
func DetectStyle(f *os.File) Style {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return Style{}
	}
	fd := f.Fd()
	return Style{Color: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format, style Style) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{Style: style}
	}
}
