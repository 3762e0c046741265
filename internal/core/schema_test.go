package core

import "testing"

func TestLookupField(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     string
		wantKind FieldKind
		ok       bool
	}{
		{"canonical", "state_name", FieldStateName, KindCategorical, true},
		{"alias", "state", FieldStateName, KindCategorical, true},
		{"alias dollars", "dollars", FieldInvestmentDollars, KindNumeric, true},
		{"case insensitive", "Fiscal_Year", FieldFiscalYear, KindNumeric, true},
		{"surrounding space", "  county ", FieldCounty, KindCategorical, true},
		{"canonical beats alias", "program", FieldProgram, KindCategorical, true},
		{"unknown", "shoe_size", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, ok := LookupField(tc.in)
			if ok != tc.ok {
				t.Fatalf("LookupField(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			}
			if !ok {
				return
			}
			if f.Name != tc.want || f.Kind != tc.wantKind {
				t.Fatalf("LookupField(%q) = %v, want {%s %s}", tc.in, f, tc.want, tc.wantKind)
			}
		})
	}
}

func TestLookupDimension(t *testing.T) {
	if _, ok := LookupDimension("state"); !ok {
		t.Fatal("state alias should resolve to a dimension")
	}
	if _, ok := LookupDimension("program_area"); !ok {
		t.Fatal("program_area should be a dimension")
	}
	if _, ok := LookupDimension("borrower_name"); ok {
		t.Fatal("borrower_name must not be a dimension")
	}
	if _, ok := LookupDimension("nope"); ok {
		t.Fatal("unknown field must not be a dimension")
	}
}

func TestFieldAccessors(t *testing.T) {
	r := InvestmentRecord{
		FiscalYear:        2024,
		StateName:         "Oregon",
		InvestmentDollars: 634000,
		ZipCode:           "97201",
	}
	if v, ok := r.NumericField(FieldFiscalYear); !ok || v != 2024 {
		t.Fatalf("NumericField(fiscal_year) = %v, %v", v, ok)
	}
	if v, ok := r.StringField(FieldStateName); !ok || v != "Oregon" {
		t.Fatalf("StringField(state_name) = %q, %v", v, ok)
	}
	if _, ok := r.NumericField(FieldStateName); ok {
		t.Fatal("NumericField must not resolve a string column")
	}
	if _, ok := r.StringField(FieldInvestmentDollars); ok {
		t.Fatal("StringField must not resolve a numeric column")
	}
}
