package snapshot

import "fmt"

// TableDescriptor is the engine-facing output of a metadata source: a
// declared table with its ordered column list. How descriptors are
// produced (YAML, struct tags, config) is the provider's business.
type TableDescriptor struct {
	Schema  string
	Name    string
	Columns []ColumnDescriptor
}

// ColumnDescriptor is one declared column, pre-normalization.
type ColumnDescriptor struct {
	Name    string
	Type    string
	NotNull bool
	Default string

	PrimaryKey         bool
	Identity           bool
	IdentityGeneration string

	Unique bool

	References *ReferenceDescriptor
}

// ReferenceDescriptor declares a foreign key target.
type ReferenceDescriptor struct {
	Schema   string
	Table    string
	Column   string
	OnUpdate string
	OnDelete string
}

// DefaultSchema is assumed for descriptors that do not name one.
const DefaultSchema = "public"

// Build converts declared entity metadata into a normalized snapshot.
// Duplicate tables by (schema, name) are rejected: a snapshot is a set.
func Build(descriptors []TableDescriptor) (Snapshot, error) {
	var snap Snapshot
	seen := make(map[string]bool, len(descriptors))

	for _, d := range descriptors {
		t := Table{
			Schema: NormalizeIdentifier(d.Schema),
			Name:   NormalizeIdentifier(d.Name),
		}
		if t.Schema == "" {
			t.Schema = DefaultSchema
		}
		if seen[t.Key()] {
			return Snapshot{}, fmt.Errorf("duplicate table %s in declared model", t.Key())
		}
		seen[t.Key()] = true

		for _, cd := range d.Columns {
			t.Columns = append(t.Columns, buildColumn(t, cd))
		}
		snap.Tables = append(snap.Tables, t)
	}
	return snap, nil
}

func buildColumn(t Table, cd ColumnDescriptor) Column {
	details := ExtractDataTypeDetails(cd.Type)
	c := Column{
		Name:              NormalizeIdentifier(cd.Name),
		DataType:          NormalizeDataType(cd.Type),
		Length:            details.Length,
		Precision:         details.Precision,
		Scale:             details.Scale,
		DatetimePrecision: details.DatetimePrecision,
		Nullable:          !cd.NotNull && !cd.PrimaryKey && !cd.Identity,
		Default:           NormalizeDefault(cd.Default),
		IsPrimaryKey:      cd.PrimaryKey,
		IsIdentity:        cd.Identity,
		IsUnique:          cd.Unique,
	}
	if c.IsIdentity {
		c.IdentityGeneration = NormalizeIdentifier(cd.IdentityGeneration)
		if c.IdentityGeneration == "" {
			c.IdentityGeneration = "by default"
		}
	}
	if c.IsPrimaryKey {
		c.PrimaryKeyName = fmt.Sprintf("pk_%s", t.Name)
	}
	if c.IsUnique {
		c.UniqueName = fmt.Sprintf("uq_%s_%s", t.Name, c.Name)
	}
	if cd.References != nil {
		refSchema := NormalizeIdentifier(cd.References.Schema)
		if refSchema == "" {
			refSchema = t.Schema
		}
		c.ForeignKey = &ForeignKey{
			Name:      fmt.Sprintf("fk_%s_%s", t.Name, c.Name),
			RefSchema: refSchema,
			RefTable:  NormalizeIdentifier(cd.References.Table),
			RefColumn: NormalizeIdentifier(cd.References.Column),
			OnUpdate:  normalizeRule(cd.References.OnUpdate),
			OnDelete:  normalizeRule(cd.References.OnDelete),
		}
	}
	return c
}

// Referential action names compare case-insensitively; NO ACTION is the
// catalog's spelling of "no rule declared".
func normalizeRule(rule string) string {
	r := NormalizeIdentifier(rule)
	if r == "no action" {
		return ""
	}
	return r
}
