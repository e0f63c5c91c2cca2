package formatter

import (
	"fmt"

	"github.com/yildizm/recsvd/internal/pipeline"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(outcome *pipeline.Outcome) ([]byte, error)
}

// New returns the formatter for an output format name
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "text", "":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown":
		return NewMarkdown(), nil
	case "csv":
		return NewCSV(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
