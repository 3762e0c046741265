package core

// FieldKind classifies a queryable field and determines which predicate
// operators are valid against it.
type FieldKind string

const (
	// KindNumeric fields accept equality, membership and range predicates.
	KindNumeric FieldKind = "numeric"
	// KindCategorical fields accept equality and membership predicates;
	// operands are revalidated against the store's distinct-value catalog.
	KindCategorical FieldKind = "categorical"
	// KindText fields accept equality, membership and text predicates
	// (contains, startswith, regex).
	KindText FieldKind = "text"
)

// Canonical field names. These match the column names of the source extract.
const (
	FieldFiscalYear          = "fiscal_year"
	FieldStateName           = "state_name"
	FieldCounty              = "county"
	FieldProgramArea         = "program_area"
	FieldProgram             = "program"
	FieldInvestmentType      = "investment_type"
	FieldInvestmentDollars   = "investment_dollars"
	FieldNumberOfInvestments = "number_of_investments"
	FieldBorrowerName        = "borrower_name"
	FieldCity                = "city"
	FieldLenderName          = "lender_name"
	FieldProjectName         = "project_name"
	FieldZipCode             = "zip_code"
)

// Field describes one queryable field of the record schema.
type Field struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
}

// schemaFields is the fixed schema, in declaration order.
var schemaFields = []Field{
	{FieldFiscalYear, KindNumeric},
	{FieldStateName, KindCategorical},
	{FieldCounty, KindCategorical},
	{FieldProgramArea, KindCategorical},
	{FieldProgram, KindCategorical},
	{FieldInvestmentType, KindCategorical},
	{FieldInvestmentDollars, KindNumeric},
	{FieldNumberOfInvestments, KindNumeric},
	{FieldBorrowerName, KindText},
	{FieldCity, KindText},
	{FieldLenderName, KindText},
	{FieldProjectName, KindText},
	{FieldZipCode, KindText},
}

var schemaByName = func() map[string]Field {
	m := make(map[string]Field, len(schemaFields))
	for _, f := range schemaFields {
		m[f.Name] = f
	}
	return m
}()

// fieldAliases maps the short names the original gateway accepted onto the
// canonical column names, so clients of either vintage keep working.
// Canonical names always win; an alias can never shadow a real column.
var fieldAliases = map[string]string{
	"state":    FieldStateName,
	"area":     FieldProgramArea,
	"borrower": FieldBorrowerName,
	"dollars":  FieldInvestmentDollars,
	"year":     FieldFiscalYear,
}

// SchemaFields returns the queryable fields in declaration order.
func SchemaFields() []Field {
	out := make([]Field, len(schemaFields))
	copy(out, schemaFields)
	return out
}

// LookupField resolves a client-supplied field name (canonical or alias,
// any casing) to its schema entry.
func LookupField(name string) (Field, bool) {
	key := Normalize(name)
	if f, ok := schemaByName[key]; ok {
		return f, true
	}
	if canonical, ok := fieldAliases[key]; ok {
		f, ok := schemaByName[canonical]
		return f, ok
	}
	return Field{}, false
}

// Aggregation dimensions supported by the summary endpoint.
var aggregationDimensions = map[string]bool{
	FieldStateName:   true,
	FieldProgramArea: true,
	FieldFiscalYear:  true,
}

// AggregationDimensions returns the dimension names in declaration order.
func AggregationDimensions() []string {
	return []string{FieldStateName, FieldProgramArea, FieldFiscalYear}
}

// LookupDimension resolves a grouping dimension name (canonical or alias).
// The second return is false when the field exists but is not a dimension,
// or does not exist at all.
func LookupDimension(name string) (Field, bool) {
	f, ok := LookupField(name)
	if !ok || !aggregationDimensions[f.Name] {
		return Field{}, false
	}
	return f, true
}
