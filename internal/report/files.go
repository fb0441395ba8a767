package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFiles writes <prefix>.csv, <prefix>.md and <prefix>.xlsx into dir and
// returns their paths.
func WriteFiles(dir, prefix string, rep *Report) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("empty output prefix")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	base := filepath.Join(dir, prefix)
	csvPath := base + ".csv"
	mdPath := base + ".md"
	xlsxPath := base + ".xlsx"

	if err := writeFile(csvPath, func(f *os.File) error { return WriteCSV(f, rep) }); err != nil {
		return nil, err
	}
	if err := writeFile(mdPath, func(f *os.File) error { return WriteMarkdown(f, rep) }); err != nil {
		return nil, err
	}
	if err := WriteXLSX(xlsxPath, rep); err != nil {
		return nil, err
	}
	return []string{csvPath, mdPath, xlsxPath}, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
