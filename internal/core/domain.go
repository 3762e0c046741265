package core

import "strings"

// InvestmentRecord is one funded investment from the USDA Rural Data Gateway
// extract. Records are immutable once loaded; ID is the synthetic row id
// assigned by the loader and is unique within a generation.
type InvestmentRecord struct {
	ID                  int64   `json:"id"`
	FiscalYear          int     `json:"fiscal_year"`
	StateName           string  `json:"state_name"`
	County              string  `json:"county"`
	ProgramArea         string  `json:"program_area"`
	Program             string  `json:"program"`
	InvestmentType      string  `json:"investment_type"`
	InvestmentDollars   float64 `json:"investment_dollars"`
	NumberOfInvestments int     `json:"number_of_investments"`
	BorrowerName        string  `json:"borrower_name"`
	City                string  `json:"city"`
	LenderName          string  `json:"lender_name"`
	ProjectName         string  `json:"project_name"`
	// Zip codes stay strings to preserve leading zeros.
	ZipCode string `json:"zip_code"`
}

// StringField returns the raw string value of a categorical or text field.
// The second return is false for numeric or unknown fields.
func (r *InvestmentRecord) StringField(field string) (string, bool) {
	switch field {
	case FieldStateName:
		return r.StateName, true
	case FieldCounty:
		return r.County, true
	case FieldProgramArea:
		return r.ProgramArea, true
	case FieldProgram:
		return r.Program, true
	case FieldInvestmentType:
		return r.InvestmentType, true
	case FieldBorrowerName:
		return r.BorrowerName, true
	case FieldCity:
		return r.City, true
	case FieldLenderName:
		return r.LenderName, true
	case FieldProjectName:
		return r.ProjectName, true
	case FieldZipCode:
		return r.ZipCode, true
	}
	return "", false
}

// NumericField returns the value of a numeric field.
// The second return is false for non-numeric or unknown fields.
func (r *InvestmentRecord) NumericField(field string) (float64, bool) {
	switch field {
	case FieldFiscalYear:
		return float64(r.FiscalYear), true
	case FieldInvestmentDollars:
		return r.InvestmentDollars, true
	case FieldNumberOfInvestments:
		return float64(r.NumberOfInvestments), true
	}
	return 0, false
}

// Page is a bounded slice of matching records plus the total match count.
// Total is computed over the full filtered set, independent of Limit/Offset.
type Page struct {
	Records []InvestmentRecord `json:"data"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// Returned is the number of records in this page.
func (p Page) Returned() int { return len(p.Records) }

// Group is one row of an aggregation result: all matching records sharing a
// dimension value, with their count and dollar sum.
type Group struct {
	Key       string  `json:"group_key"`
	Count     int     `json:"count"`
	DollarSum float64 `json:"dollar_sum"`
}

// Normalize is the comparison form used for equality and membership on
// categorical and text fields: whitespace-trimmed and case-folded. It must be
// applied identically to stored values and filter operands.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
