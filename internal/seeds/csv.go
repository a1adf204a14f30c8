// Package seeds loads the company roster crawled on each pass.
package seeds

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// Required CSV columns.
const (
	ColumnCompany = "Company Name"
	ColumnWebsite = "Website"
)

// CSVSource reads seed companies from a CSV file with a header row.
// Column order is free and extra columns are ignored.
type CSVSource struct {
	path string
}

// NewCSVSource returns a source reading path on every Load.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Load reads the file. Rows are returned as written; URL validation
// happens per company so one bad row never fails the pass.
func (s *CSVSource) Load(ctx context.Context) ([]crawler.SeedCompany, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open seeds: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f)
}

// Parse reads seed rows from r.
func Parse(ctx context.Context, r io.Reader) ([]crawler.SeedCompany, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("seeds: empty file")
		}
		return nil, fmt.Errorf("read seeds header: %w", err)
	}
	nameIdx, siteIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")) {
		case ColumnCompany:
			nameIdx = i
		case ColumnWebsite:
			siteIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("seeds: missing required column %q", ColumnCompany)
	}
	if siteIdx < 0 {
		return nil, fmt.Errorf("seeds: missing required column %q", ColumnWebsite)
	}

	var out []crawler.SeedCompany
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read seeds row %d: %w", row, err)
		}
		seed := crawler.SeedCompany{
			Name:        field(record, nameIdx),
			HomepageURL: field(record, siteIdx),
			Row:         row,
		}
		if seed.Name == "" && seed.HomepageURL == "" {
			continue
		}
		if seed.Name == "" {
			seed.Name = crawler.Hostname(seed.HomepageURL)
		}
		out = append(out, seed)
	}
	return out, nil
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
