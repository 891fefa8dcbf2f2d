package snapshot

import (
	"regexp"
	"strconv"
	"strings"
)

// Canonical spellings for data types that the catalog and declarative
// models render differently. Matching happens on the lower-cased,
// whitespace-collapsed base type with any parameter list stripped.
var typeAliases = map[string]string{
	"character varying":           "varchar",
	"char varying":                "varchar",
	"character":                   "char",
	"bpchar":                      "char",
	"integer":                     "int4",
	"int":                         "int4",
	"bigint":                      "int8",
	"smallint":                    "int2",
	"boolean":                     "bool",
	"double precision":            "double",
	"float8":                      "double",
	"float4":                      "real",
	"decimal":                     "numeric",
	"timestamp with time zone":    "timestamptz",
	"timestamp without time zone": "timestamp",
	"time with time zone":         "timetz",
	"time without time zone":      "time",
}

// Implied numeric precision and scale for types whose textual rendering
// carries no parameters. Mirrors what information_schema reports, so an
// introspected int4 and a declared "integer" extract the same details.
var impliedDetails = map[string]struct {
	precision int
	scale     *int
}{
	"int2":   {16, intPtr(0)},
	"int4":   {32, intPtr(0)},
	"int8":   {64, intPtr(0)},
	"real":   {24, nil},
	"double": {53, nil},
}

// Default fractional-second precision reported by the catalog for
// unparameterized datetime types.
var impliedDatetimePrecision = map[string]int{
	"timestamp":   6,
	"timestamptz": 6,
	"time":        6,
	"timetz":      6,
	"interval":    6,
	"date":        0,
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	parenGroupRe = regexp.MustCompile(`\([^)]*\)`)
	typeParamsRe = regexp.MustCompile(`\(([\d\s,]*)\)`)
	castRe       = regexp.MustCompile(`::[a-zA-Z_][a-zA-Z_ ]*(\(\s*\d+(\s*,\s*\d+)?\s*\))?`)
)

// NormalizeIdentifier lower-cases and trims an identifier so that the
// two snapshot producers agree on table and column keys.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeDataType maps a type spelling to its canonical token.
// Unrecognized types pass through (lower-cased, collapsed) unchanged:
// an unknown type still compares equal to itself as long as both
// producers run it through this function.
func NormalizeDataType(s string) string {
	base := collapseWhitespace(strings.ToLower(strings.TrimSpace(s)))
	base = collapseWhitespace(strings.TrimSpace(parenGroupRe.ReplaceAllString(base, "")))
	if canonical, ok := typeAliases[base]; ok {
		return canonical
	}
	return base
}

// TypeDetails is the parameter portion of a data type, extracted so
// that differing textual renderings of the same type do not register
// as a type change.
type TypeDetails struct {
	Length            *int
	Precision         *int
	Scale             *int
	DatetimePrecision *int
}

// ExtractDataTypeDetails parses length, precision and scale out of a
// type string, filling in catalog-implied values for parameterless
// numeric and datetime types.
func ExtractDataTypeDetails(sqlType string) TypeDetails {
	var d TypeDetails
	base := NormalizeDataType(sqlType)

	var args []int
	if m := typeParamsRe.FindStringSubmatch(sqlType); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return d
			}
			args = append(args, n)
		}
	}

	switch base {
	case "varchar", "char", "bit", "varbit":
		if len(args) >= 1 {
			d.Length = intPtr(args[0])
		}
	case "numeric":
		if len(args) >= 1 {
			d.Precision = intPtr(args[0])
		}
		if len(args) >= 2 {
			d.Scale = intPtr(args[1])
		} else if len(args) == 1 {
			d.Scale = intPtr(0)
		}
	case "timestamp", "timestamptz", "time", "timetz", "interval", "date":
		p := impliedDatetimePrecision[base]
		if len(args) >= 1 {
			p = args[0]
		}
		d.DatetimePrecision = intPtr(p)
	default:
		if implied, ok := impliedDetails[base]; ok {
			d.Precision = intPtr(implied.precision)
			d.Scale = implied.scale
		}
	}
	return d
}

// Volatile-function spellings that mean the same thing as the standard
// current_timestamp token.
var defaultAliases = map[string]string{
	"now()":                     "current_timestamp",
	"current_timestamp()":       "current_timestamp",
	"transaction_timestamp()":   "current_timestamp",
	"statement_timestamp()":     "current_timestamp",
	"current_date()":            "current_date",
	"gen_random_uuid ()":        "gen_random_uuid()",
}

// NormalizeDefault canonicalizes a default-value expression: redundant
// parentheses and explicit casts are stripped, whitespace collapsed and
// function calls lower-cased. Blank input means "no default" and maps
// to nil, never to the empty string.
func NormalizeDefault(defaultExpr string) *string {
	s := collapseWhitespace(strings.TrimSpace(defaultExpr))
	if s == "" {
		return nil
	}

	s = strings.TrimSpace(castRe.ReplaceAllString(s, ""))
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && balanced(s[1:len(s)-1]) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return nil
	}

	// String literals keep their case; everything else (function calls,
	// keywords, numbers) is folded.
	if !strings.HasPrefix(s, "'") {
		s = strings.ToLower(s)
	}
	if canonical, ok := defaultAliases[s]; ok {
		s = canonical
	}
	return &s
}

func collapseWhitespace(s string) string {
	return whitespaceRe.ReplaceAllString(s, " ")
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }
