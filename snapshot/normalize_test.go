package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Users", "users"},
		{"  ORDER_ITEMS  ", "order_items"},
		{"already_lower", "already_lower"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeIdentifier(tt.in))
	}
}

func TestNormalizeDataType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"character varying(255)", "varchar"},
		{"varchar(255)", "varchar"},
		{"VARCHAR", "varchar"},
		{"character(10)", "char"},
		{"integer", "int4"},
		{"int", "int4"},
		{"int4", "int4"},
		{"bigint", "int8"},
		{"smallint", "int2"},
		{"boolean", "bool"},
		{"double   precision", "double"},
		{"float8", "double"},
		{"decimal(10,2)", "numeric"},
		{"timestamp with time zone", "timestamptz"},
		{"timestamp  without  time zone", "timestamp"},
		{"time with time zone", "timetz"},
		// Unknown types pass through so they still compare equal to
		// themselves across both producers.
		{"hstore", "hstore"},
		{"  Geometry(Point)  ", "geometry"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDataType(tt.in))
		})
	}
}

func TestExtractDataTypeDetails(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want TypeDetails
	}{
		{"varchar with length", "varchar(50)", TypeDetails{Length: intPtr(50)}},
		{"character varying with length", "character varying(50)", TypeDetails{Length: intPtr(50)}},
		{"integer implies 32", "integer", TypeDetails{Precision: intPtr(32), Scale: intPtr(0)}},
		{"int4 implies 32", "int4", TypeDetails{Precision: intPtr(32), Scale: intPtr(0)}},
		{"bigint implies 64", "bigint", TypeDetails{Precision: intPtr(64), Scale: intPtr(0)}},
		{"double implies 53", "double precision", TypeDetails{Precision: intPtr(53)}},
		{"numeric", "numeric(10,2)", TypeDetails{Precision: intPtr(10), Scale: intPtr(2)}},
		{"numeric precision only", "numeric(10)", TypeDetails{Precision: intPtr(10), Scale: intPtr(0)}},
		{"bare numeric", "numeric", TypeDetails{}},
		{"timestamp default precision", "timestamp", TypeDetails{DatetimePrecision: intPtr(6)}},
		{"timestamp explicit precision", "timestamp(3)", TypeDetails{DatetimePrecision: intPtr(3)}},
		{"date", "date", TypeDetails{DatetimePrecision: intPtr(0)}},
		{"text has no details", "text", TypeDetails{}},
		{"unknown has no details", "hstore", TypeDetails{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDataTypeDetails(tt.in))
		})
	}
}

func TestExtractDataTypeDetailsMatchesAcrossSpellings(t *testing.T) {
	// Differing renderings of the same type must never register as a
	// type change.
	assert.Equal(t, ExtractDataTypeDetails("integer"), ExtractDataTypeDetails("int4"))
	assert.Equal(t, ExtractDataTypeDetails("varchar(50)"), ExtractDataTypeDetails("character varying(50)"))
	assert.Equal(t, ExtractDataTypeDetails("float8"), ExtractDataTypeDetails("double precision"))
}

func TestNormalizeDefault(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{"blank means no default", "", nil},
		{"whitespace means no default", "   ", nil},
		{"literal", "'n/a'", strPtr("'n/a'")},
		{"cast stripped", "'n/a'::text", strPtr("'n/a'")},
		{"cast with params stripped", "'1'::character varying(10)", strPtr("'1'")},
		{"redundant parens stripped", "('1')", strPtr("'1'")},
		{"nested parens stripped", "((0))", strPtr("0")},
		{"now maps to current_timestamp", "now()", strPtr("current_timestamp")},
		{"NOW uppercase", "NOW()", strPtr("current_timestamp")},
		{"current_timestamp kept", "CURRENT_TIMESTAMP", strPtr("current_timestamp")},
		{"numeric literal", "0", strPtr("0")},
		{"function passthrough", "gen_random_uuid()", strPtr("gen_random_uuid()")},
		{"string literal keeps case", "'N/A'", strPtr("'N/A'")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDefault(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestNormalizeDefaultNeverEmptyString(t *testing.T) {
	for _, in := range []string{"", " ", "()", "(( ))"} {
		got := NormalizeDefault(in)
		if got != nil {
			assert.NotEmpty(t, *got, "input %q", in)
		}
	}
}
