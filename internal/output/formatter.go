package output

import (
	"fmt"
	"io"

	"github.com/mrzor/buildlens/internal/config"
)

// Write renders report in the named format.
func Write(w io.Writer, format string, report *Report) error {
	switch format {
	case config.FormatTable, "":
		return WriteTable(w, report)
	case config.FormatJSON:
		return WriteJSON(w, report)
	case config.FormatYAML:
		return WriteYAML(w, report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
