package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes the pipeline's CSV artifacts. Fresh files accumulate in a
// temporary sibling that is renamed onto the target when complete, so a
// crashed run never leaves a half-written snapshot behind. Appends go
// straight to the target. Paths are expected to be resolved already
// (config.Paths hands out absolute locations).
type CSVWriter struct {
	logger   *slog.Logger
	writeBOM bool
}

// NewCSVWriter creates a writer. writeBOM prefixes fresh files with a UTF-8
// BOM so spreadsheet tools detect the encoding.
func NewCSVWriter(logger *slog.Logger, writeBOM bool) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		logger:   logger.With(slog.String("component", "exporter")),
		writeBOM: writeBOM,
	}
}

// WriteSimpleCSV writes a header row plus records to path, replacing any
// previous file.
func (w *CSVWriter) WriteSimpleCSV(path string, headers []string, records [][]string) error {
	stream, err := w.CreateStreamWriter(path, headers)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := stream.WriteRecord(record); err != nil {
			stream.Discard()
			return fmt.Errorf("write row to %s: %w", filepath.Base(path), err)
		}
	}

	w.logger.Debug("csv written",
		slog.String("path", path),
		slog.Int("rows", len(records)))
	return stream.Close()
}

// AppendToCSV adds records to the end of an existing file. No header row is
// written and the BOM setting does not apply.
func (w *CSVWriter) AppendToCSV(path string, records [][]string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", filepath.Base(path), err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("append row to %s: %w", filepath.Base(path), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// StreamWriter emits rows one at a time for tables too large to assemble as
// [][]string. Rows go to a temporary file; Close publishes it, Discard
// abandons it.
type StreamWriter struct {
	target string
	tmp    *os.File
	csv    *csv.Writer
}

// CreateStreamWriter opens a stream toward path, creating parent directories
// and emitting the BOM and header row up front.
func (w *CSVWriter) CreateStreamWriter(path string, headers []string) (*StreamWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", filepath.Base(path), err)
	}
	stream := &StreamWriter{target: path, tmp: tmp, csv: csv.NewWriter(tmp)}

	if w.writeBOM {
		if _, err := tmp.Write(utf8BOM); err != nil {
			stream.Discard()
			return nil, fmt.Errorf("write BOM: %w", err)
		}
	}
	if len(headers) > 0 {
		if err := stream.WriteRecord(headers); err != nil {
			stream.Discard()
			return nil, fmt.Errorf("write header row: %w", err)
		}
	}

	w.logger.Debug("csv stream opened", slog.String("path", path))
	return stream, nil
}

// WriteRecord appends one row to the stream.
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.csv.Write(record)
}

// Close flushes the stream and renames the temporary file onto the target
// path.
func (s *StreamWriter) Close() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		s.Discard()
		return err
	}
	if err := s.tmp.Close(); err != nil {
		os.Remove(s.tmp.Name())
		return err
	}
	if err := os.Rename(s.tmp.Name(), s.target); err != nil {
		os.Remove(s.tmp.Name())
		return fmt.Errorf("replace %s: %w", filepath.Base(s.target), err)
	}
	return nil
}

// Discard abandons the stream and removes the temporary file. Safe to call
// after a failed Close.
func (s *StreamWriter) Discard() {
	s.tmp.Close()
	os.Remove(s.tmp.Name())
}
