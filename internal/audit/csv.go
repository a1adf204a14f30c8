// Package audit records every delivered posting in an append-only log.
package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// Header is the first row of a new CSV audit log.
var Header = []string{"Date", "Company", "Job Role", "Location", "Apply Link"}

// MissingDate is written when a posting has no date.
const MissingDate = "Not specified"

// CSVLog appends one row per delivery to a CSV file.
type CSVLog struct {
	mu   sync.Mutex
	path string
}

// NewCSVLog returns a log writing to path. The file is created on first append.
func NewCSVLog(path string) (*CSVLog, error) {
	if path == "" {
		return nil, fmt.Errorf("audit path is required")
	}
	return &CSVLog{path: path}, nil
}

// Append writes entry as a CSV row, adding the header when the file is new.
func (l *CSVLog) Append(_ context.Context, entry crawler.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat audit log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			_ = f.Close()
			return fmt.Errorf("write audit header: %w", err)
		}
	}
	p := entry.Posting
	date := p.PostedDate
	if date == "" {
		date = MissingDate
	}
	if err := w.Write([]string{date, p.Company, p.Title, p.Location, p.ApplyLink}); err != nil {
		_ = f.Close()
		return fmt.Errorf("write audit row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush audit log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close audit log: %w", err)
	}
	return nil
}
