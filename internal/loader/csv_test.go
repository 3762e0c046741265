package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/unicode"
)

const sampleExtract = "Fiscal Year\tState Name\tCounty\tProgram Area\tProgram\tInvestment Type\tInvestment Dollars (Numeric)\tNumber of Investments\tBorrower Name\tCity\tLender Name\tProject Name\tZip Code\n" +
	"2023\tWashington\tKing\tElectric Programs\tElectric Infrastructure Loans\tLoan\t$1,234,567\t1\tPacific Rural Electric Cooperative\tSeattle\t\tGrid Upgrade\t98101\n" +
	"2024\tOregon\tLane\tWater and Environmental\tWater and Waste Disposal\tGrant\tNot Available\t2\tCity of Eugene\tEugene\t\t\t97401\n"

func TestParseExtract(t *testing.T) {
	records, err := ParseExtract(strings.NewReader(sampleExtract))
	if err != nil {
		t.Fatalf("ParseExtract: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	first := records[0]
	if first.FiscalYear != 2023 {
		t.Errorf("FiscalYear = %d, want 2023", first.FiscalYear)
	}
	if first.StateName != "Washington" {
		t.Errorf("StateName = %q", first.StateName)
	}
	if first.InvestmentDollars != 1234567 {
		t.Errorf("InvestmentDollars = %v, want 1234567", first.InvestmentDollars)
	}
	if first.BorrowerName != "Pacific Rural Electric Cooperative" {
		t.Errorf("BorrowerName = %q", first.BorrowerName)
	}
	if first.ZipCode != "98101" {
		t.Errorf("ZipCode = %q", first.ZipCode)
	}

	// Suppressed dollar cells load as zero.
	if records[1].InvestmentDollars != 0 {
		t.Errorf("suppressed dollars = %v, want 0", records[1].InvestmentDollars)
	}
	if records[1].NumberOfInvestments != 2 {
		t.Errorf("NumberOfInvestments = %d, want 2", records[1].NumberOfInvestments)
	}
}

func TestParseExtractUTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	encoded, err := enc.String(sampleExtract)
	if err != nil {
		t.Fatalf("encode sample: %v", err)
	}

	records, err := ParseExtract(strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("ParseExtract(utf16): %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].StateName != "Washington" {
		t.Errorf("StateName = %q", records[0].StateName)
	}
}

func TestParseExtractUTF8BOM(t *testing.T) {
	records, err := ParseExtract(strings.NewReader("\ufeff" + sampleExtract))
	if err != nil {
		t.Fatalf("ParseExtract(utf8 bom): %v", err)
	}
	if records[0].FiscalYear != 2023 {
		t.Errorf("FiscalYear = %d, want 2023 (BOM must not corrupt the first header)", records[0].FiscalYear)
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fiscal Year", "fiscal_year"},
		{"Investment Dollars (Numeric)", "investment_dollars_numeric"},
		{"  State Name  ", "state_name"},
		{"ZIP-Code", "zip_code"},
		{"number_of_investments", "number_of_investments"},
	}
	for _, tc := range tests {
		if got := normalizeHeader(tc.in); got != tc.want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDollars(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$1,234,567", 1234567},
		{"634000", 634000},
		{"634000.50", 634000.50},
		{"Not Available", 0},
		{"Withheld", 0},
		{"", 0},
		{"garbage", 0},
	}
	for _, tc := range tests {
		if got := parseDollars(tc.in); got != tc.want {
			t.Errorf("parseDollars(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFindLatestExtract(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "extract_old.csv")
	newer := filepath.Join(dir, "extract_new.csv")
	if err := os.WriteFile(older, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	// Make the modification order unambiguous.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}
	// Non-CSV files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := FindLatestExtract(dir)
	if err != nil {
		t.Fatalf("FindLatestExtract: %v", err)
	}
	if got != newer {
		t.Errorf("FindLatestExtract = %q, want %q", got, newer)
	}

	if _, err := FindLatestExtract(t.TempDir()); err == nil {
		t.Error("empty directory should fail")
	}
}
