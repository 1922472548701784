package report

import (
	"encoding/json"
	"fmt"
	"io"

	mq "github.com/gofhir/miiquality"
)

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	return writeJSON(w, s)
}

// WriteReportJSON writes a single quality report as indented JSON.
// The output depends only on the report, so equal reports give equal bytes.
func WriteReportJSON(w io.Writer, r *mq.QualityReport) error {
	return writeJSON(w, r)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}
