package mcp

import "testing"

func TestResolveState(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"WA", "Washington"},
		{"wa", "Washington"},
		{" tx ", "Texas"},
		{"PR", "Puerto Rico"},
		{"Washington", "Washington"},
		{"Atlantis", "Atlantis"},
	}
	for _, tc := range tests {
		if got := ResolveState(tc.in); got != tc.want {
			t.Errorf("ResolveState(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveProgramArea(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"broadband", "Telecommunications Programs"},
		{"Broadband", "Telecommunications Programs"},
		{"water", "Water and Environmental"},
		{"electric", "Electric Programs"},
		{"housing", "Single Family Housing"},
		{"Water and Environmental", "Water and Environmental"},
		{"underwater basket weaving", "underwater basket weaving"},
	}
	for _, tc := range tests {
		if got := ResolveProgramArea(tc.in); got != tc.want {
			t.Errorf("ResolveProgramArea(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildFilter(t *testing.T) {
	spec := buildFilter(map[string]any{
		"state":        "or",
		"program_area": "broadband",
		"fiscal_year":  float64(2023),
		"borrower":     "cooperative",
		"min_dollars":  float64(50000),
	})

	if spec["state_name"] != "Oregon" {
		t.Errorf("state_name = %v", spec["state_name"])
	}
	if spec["program_area"] != "Telecommunications Programs" {
		t.Errorf("program_area = %v", spec["program_area"])
	}
	if spec["fiscal_year"] != float64(2023) {
		t.Errorf("fiscal_year = %v", spec["fiscal_year"])
	}
	text, _ := spec["borrower_name"].(map[string]any)
	if text["contains"] != "cooperative" {
		t.Errorf("borrower_name = %v", spec["borrower_name"])
	}
	rng, _ := spec["investment_dollars"].(map[string]any)
	if rng["min"] != float64(50000) {
		t.Errorf("investment_dollars = %v", spec["investment_dollars"])
	}
	if _, ok := rng["max"]; ok {
		t.Error("unexpected max bound")
	}
}

func TestBuildFilterEmpty(t *testing.T) {
	if spec := buildFilter(map[string]any{}); len(spec) != 0 {
		t.Errorf("spec = %v, want empty", spec)
	}
}
