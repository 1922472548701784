package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// FilePrefix is the base name of exported report files.
const FilePrefix = "fhir_quality_report_"

// Paths holds the files written by Export.
type Paths struct {
	JSON string `json:"json"`
	HTML string `json:"html"`
}

// Export writes the summary as JSON and HTML into dir, creating it if
// needed. File names carry the generation timestamp.
func Export(dir string, s *Summary) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}

	base := filepath.Join(dir, FilePrefix+s.GeneratedAt.Format("20060102_150405"))
	paths := Paths{
		JSON: base + ".json",
		HTML: base + ".html",
	}

	if err := writeFile(paths.JSON, func(f *os.File) error { return WriteJSON(f, s) }); err != nil {
		return Paths{}, err
	}
	if err := writeFile(paths.HTML, func(f *os.File) error { return WriteHTML(f, s) }); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
