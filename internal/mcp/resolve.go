package mcp

import "strings"

// stateNames maps postal abbreviations to the spellings used in the extract.
var stateNames = map[string]string{
	"al": "Alabama", "ak": "Alaska", "az": "Arizona", "ar": "Arkansas",
	"ca": "California", "co": "Colorado", "ct": "Connecticut", "de": "Delaware",
	"fl": "Florida", "ga": "Georgia", "hi": "Hawaii", "id": "Idaho",
	"il": "Illinois", "in": "Indiana", "ia": "Iowa", "ks": "Kansas",
	"ky": "Kentucky", "la": "Louisiana", "me": "Maine", "md": "Maryland",
	"ma": "Massachusetts", "mi": "Michigan", "mn": "Minnesota",
	"ms": "Mississippi", "mo": "Missouri", "mt": "Montana", "ne": "Nebraska",
	"nv": "Nevada", "nh": "New Hampshire", "nj": "New Jersey",
	"nm": "New Mexico", "ny": "New York", "nc": "North Carolina",
	"nd": "North Dakota", "oh": "Ohio", "ok": "Oklahoma", "or": "Oregon",
	"pa": "Pennsylvania", "ri": "Rhode Island", "sc": "South Carolina",
	"sd": "South Dakota", "tn": "Tennessee", "tx": "Texas", "ut": "Utah",
	"vt": "Vermont", "va": "Virginia", "wa": "Washington",
	"wv": "West Virginia", "wi": "Wisconsin", "wy": "Wyoming",
	"dc": "District of Columbia", "pr": "Puerto Rico", "vi": "Virgin Islands",
	"gu": "Guam", "as": "American Samoa",
}

// programAreaNames maps the colloquial program names people actually type
// onto the extract's program-area values.
var programAreaNames = map[string]string{
	"broadband":          "Telecommunications Programs",
	"telecom":            "Telecommunications Programs",
	"internet":           "Telecommunications Programs",
	"water":              "Water and Environmental",
	"wastewater":         "Water and Environmental",
	"electric":           "Electric Programs",
	"energy":             "Electric Programs",
	"power":              "Electric Programs",
	"housing":            "Single Family Housing",
	"homes":              "Single Family Housing",
	"business":           "Business Programs",
	"community":          "Community Facilities",
	"community facility": "Community Facilities",
}

// ResolveState turns a postal abbreviation into the canonical state name.
// Anything that is not an abbreviation is returned untouched; the API
// validates it against the loaded catalog.
func ResolveState(name string) string {
	if full, ok := stateNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return full
	}
	return name
}

// ResolveProgramArea turns a colloquial program name into the canonical
// program-area value, passing unrecognized input through unchanged.
func ResolveProgramArea(name string) string {
	if full, ok := programAreaNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return full
	}
	return name
}
