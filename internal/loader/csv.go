package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"ruraldata/internal/core"
)

// FindLatestExtract returns the most recently modified .csv file in dir.
func FindLatestExtract(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read data directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, e.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no .csv extract found in %s", dir)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].modTime > candidates[j].modTime })
	return candidates[0].path, nil
}

// ParseExtract reads a tab-separated USDA extract into records. The source
// agency publishes extracts as UTF-16 with a BOM; plain UTF-8 works too.
func ParseExtract(r io.Reader) ([]core.InvestmentRecord, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read extract header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = normalizeHeader(h)
	}

	var records []core.InvestmentRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read extract row %d: %w", line, err)
		}
		line++

		var rec core.InvestmentRecord
		for i, value := range row {
			if i >= len(columns) {
				break
			}
			setField(&rec, columns[i], strings.TrimSpace(value))
		}
		records = append(records, rec)
	}
	return records, nil
}

// normalizeHeader turns a raw column header into snake_case, dropping
// parenthesized qualifiers like "(Numeric)".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	var b strings.Builder
	for _, r := range h {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	return strings.Trim(strings.ReplaceAll(b.String(), "__", "_"), "_")
}

func setField(rec *core.InvestmentRecord, column, value string) {
	switch column {
	case "fiscal_year":
		rec.FiscalYear = parseIntField(value)
	case "state_name":
		rec.StateName = value
	case "county", "county_name":
		rec.County = value
	case "program_area":
		rec.ProgramArea = value
	case "program":
		rec.Program = value
	case "investment_type":
		rec.InvestmentType = value
	case "investment_dollars", "investment_dollars_numeric":
		rec.InvestmentDollars = parseDollars(value)
	case "number_of_investments":
		rec.NumberOfInvestments = parseIntField(value)
	case "borrower_name":
		rec.BorrowerName = value
	case "city":
		rec.City = value
	case "lender_name":
		rec.LenderName = value
	case "project_name":
		rec.ProjectName = value
	case "zip_code":
		rec.ZipCode = value
	}
}

// parseDollars cleans a currency cell. Suppressed cells ("Not Available",
// "Withheld") and unparseable values load as zero rather than failing the
// whole extract.
func parseDollars(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch strings.ToLower(s) {
	case "not available", "withheld", "n/a":
		return 0
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseIntField(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	// Some extracts render counts as "3.0"
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}
