package snapshot

// Snapshot is a normalized, comparable description of a database schema.
// Snapshots are value objects: producers build them once and nothing
// mutates them afterwards. Equality is set-based, so two snapshots
// enumerated in different orders still compare equal.
type Snapshot struct {
	Tables []Table
}

// Table is one table's normalized shape. Column order is preserved for
// deterministic iteration but is irrelevant for equality.
type Table struct {
	Schema  string
	Name    string
	Columns []Column
}

// Column carries the full normalized shape of one column. All string
// fields are normalized (case, whitespace) so that structural equality
// implies semantic equality.
type Column struct {
	Name     string
	DataType string

	Length            *int
	Precision         *int
	Scale             *int
	DatetimePrecision *int

	Nullable bool
	Default  *string

	IsIdentity         bool
	IdentityGeneration string // "always" or "by default"

	IsGenerated    bool
	GenerationExpr string

	IsPrimaryKey   bool
	PrimaryKeyName string

	IsUnique   bool
	UniqueName string

	ForeignKey *ForeignKey
}

// ForeignKey describes a single-column reference to another table.
type ForeignKey struct {
	Name      string
	RefSchema string
	RefTable  string
	RefColumn string
	OnUpdate  string
	OnDelete  string
}

// Table returns the table with the given normalized key, if present.
func (s Snapshot) Table(schema, name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Schema == schema && t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Column returns the column with the given name, if present.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Key identifies a table within a snapshot.
func (t Table) Key() string {
	return t.Schema + "." + t.Name
}

// Equal reports set equality over tables: order of enumeration does not
// matter, duplicates by (schema, name) are not permitted by producers.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.Tables) != len(other.Tables) {
		return false
	}
	byKey := make(map[string]Table, len(other.Tables))
	for _, t := range other.Tables {
		byKey[t.Key()] = t
	}
	for _, t := range s.Tables {
		o, ok := byKey[t.Key()]
		if !ok || !t.Equal(o) {
			return false
		}
	}
	return true
}

// Equal reports whether two tables describe the same schema object with
// the same column set, regardless of column order.
func (t Table) Equal(other Table) bool {
	if t.Schema != other.Schema || t.Name != other.Name {
		return false
	}
	if len(t.Columns) != len(other.Columns) {
		return false
	}
	byName := make(map[string]Column, len(other.Columns))
	for _, c := range other.Columns {
		byName[c.Name] = c
	}
	for _, c := range t.Columns {
		o, ok := byName[c.Name]
		if !ok || !c.Equal(o) {
			return false
		}
	}
	return true
}

// Equal compares the semantic shape of two columns. Constraint names
// are carried metadata, not semantics: a live schema's auto-generated
// constraint names must not make it unequal to the declared model.
func (c Column) Equal(other Column) bool {
	return c.Name == other.Name &&
		c.DataType == other.DataType &&
		intPtrEqual(c.Length, other.Length) &&
		intPtrEqual(c.Precision, other.Precision) &&
		intPtrEqual(c.Scale, other.Scale) &&
		intPtrEqual(c.DatetimePrecision, other.DatetimePrecision) &&
		c.Nullable == other.Nullable &&
		strPtrEqual(c.Default, other.Default) &&
		c.IsIdentity == other.IsIdentity &&
		c.IdentityGeneration == other.IdentityGeneration &&
		c.IsGenerated == other.IsGenerated &&
		c.GenerationExpr == other.GenerationExpr &&
		c.IsPrimaryKey == other.IsPrimaryKey &&
		c.IsUnique == other.IsUnique &&
		c.ForeignKey.sameTarget(other.ForeignKey)
}

// sameTarget compares where a foreign key points and how it behaves,
// ignoring the constraint name.
func (fk *ForeignKey) sameTarget(other *ForeignKey) bool {
	if fk == nil || other == nil {
		return fk == nil && other == nil
	}
	return fk.RefSchema == other.RefSchema &&
		fk.RefTable == other.RefTable &&
		fk.RefColumn == other.RefColumn &&
		fk.OnUpdate == other.OnUpdate &&
		fk.OnDelete == other.OnDelete
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
