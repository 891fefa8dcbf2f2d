package diff

import (
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/schemaflow/schemaflow/snapshot"
)

// Diff compares the declared (expected) snapshot against the current
// (actual) one and returns the operations required to reconcile them.
// committed holds operations already captured by generated-but-unapplied
// migrations; structurally identical operations are filtered out so a
// new migration is never generated twice for the same change.
//
// The result is deterministic for a given pair of snapshots: tables are
// walked alphabetically and columns in declaration order. Global
// cross-table ordering is the planner's job.
func Diff(expected, actual snapshot.Snapshot, committed []Operation) []Operation {
	var ops []Operation
	schemasCreated := map[string]bool{}

	for _, want := range sortedTables(expected) {
		have, ok := actual.Table(want.Schema, want.Name)
		if !ok {
			ops = append(ops, createTableOps(want, schemasCreated)...)
			continue
		}
		ops = append(ops, diffTable(want, have)...)
	}

	for _, have := range sortedTables(actual) {
		if _, ok := expected.Table(have.Schema, have.Name); !ok {
			ops = append(ops, Operation{
				Type:   DropTable,
				Schema: have.Schema,
				Table:  have.Name,
			})
		}
	}

	return filterCommitted(ops, committed)
}

// createTableOps emits the full creation sequence for a table absent
// from the actual snapshot: schema, table, columns, then constraints.
func createTableOps(t snapshot.Table, schemasCreated map[string]bool) []Operation {
	var ops []Operation
	if !schemasCreated[t.Schema] {
		schemasCreated[t.Schema] = true
		ops = append(ops, Operation{Type: CreateSchema, Schema: t.Schema})
	}
	ops = append(ops, Operation{Type: CreateTable, Schema: t.Schema, Table: t.Name})
	for _, c := range t.Columns {
		ops = append(ops, addColumnOp(t, c))
	}
	for _, c := range t.Columns {
		if c.IsUnique {
			ops = append(ops, addUniqueOp(t, c))
		}
	}
	for _, c := range t.Columns {
		if c.ForeignKey != nil {
			ops = append(ops, addForeignKeyOp(t, c))
		}
	}
	return ops
}

// diffTable compares a table present in both snapshots column by column.
func diffTable(want, have snapshot.Table) []Operation {
	var ops []Operation

	for _, wc := range want.Columns {
		hc, ok := have.Column(wc.Name)
		if !ok {
			ops = append(ops, addColumnOp(want, wc))
			if wc.IsUnique {
				ops = append(ops, addUniqueOp(want, wc))
			}
			if wc.ForeignKey != nil {
				ops = append(ops, addForeignKeyOp(want, wc))
			}
			continue
		}
		ops = append(ops, diffColumn(want, wc, hc)...)
	}

	for _, hc := range have.Columns {
		if _, ok := want.Column(hc.Name); !ok {
			ops = append(ops, Operation{
				Type:   DropColumn,
				Schema: want.Schema,
				Table:  want.Name,
				Column: hc.Name,
			})
		}
	}

	return ops
}

// diffColumn checks type, nullability, default and foreign key
// independently; a column can contribute zero to several operations.
func diffColumn(t snapshot.Table, want, have snapshot.Column) []Operation {
	var ops []Operation

	if typeChanged(want, have) {
		ops = append(ops, Operation{
			Type:              AlterColumnType,
			Schema:            t.Schema,
			Table:             t.Name,
			Column:            want.Name,
			SQLType:           want.DataType,
			Length:            want.Length,
			Precision:         want.Precision,
			Scale:             want.Scale,
			DatetimePrecision: want.DatetimePrecision,
		})
	}

	if want.Nullable != have.Nullable {
		ops = append(ops, Operation{
			Type:     AlterNullability,
			Schema:   t.Schema,
			Table:    t.Name,
			Column:   want.Name,
			Nullable: want.Nullable,
		})
	}

	switch {
	case want.Default == nil && have.Default != nil:
		ops = append(ops, Operation{
			Type:   DropDefault,
			Schema: t.Schema,
			Table:  t.Name,
			Column: want.Name,
		})
	case want.Default != nil && (have.Default == nil || *want.Default != *have.Default):
		ops = append(ops, Operation{
			Type:    SetDefault,
			Schema:  t.Schema,
			Table:   t.Name,
			Column:  want.Name,
			Default: want.Default,
		})
	}

	ops = append(ops, diffForeignKey(t, want, have)...)
	return ops
}

// diffForeignKey handles removed or redefined references. Changing a
// foreign key is always drop-then-add; there is no alter. An actual
// foreign key without a recorded constraint name cannot be dropped
// safely and is skipped silently.
func diffForeignKey(t snapshot.Table, want, have snapshot.Column) []Operation {
	wantFK, haveFK := want.ForeignKey, have.ForeignKey
	if sameForeignKey(wantFK, haveFK) {
		return nil
	}

	var ops []Operation
	if haveFK != nil && haveFK.Name != "" {
		ops = append(ops, Operation{
			Type:       DropConstraint,
			Schema:     t.Schema,
			Table:      t.Name,
			Column:     want.Name,
			Constraint: haveFK.Name,
		})
	}
	if wantFK != nil {
		ops = append(ops, addForeignKeyOp(t, want))
	}
	return ops
}

func sameForeignKey(a, b *snapshot.ForeignKey) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.RefSchema == b.RefSchema &&
		a.RefTable == b.RefTable &&
		a.RefColumn == b.RefColumn &&
		a.OnUpdate == b.OnUpdate &&
		a.OnDelete == b.OnDelete
}

// typeChanged compares the canonical type token plus its extracted
// parameters, so differing textual renderings of the same type never
// register as a change.
func typeChanged(want, have snapshot.Column) bool {
	return want.DataType != have.DataType ||
		!intPtrEqual(want.Length, have.Length) ||
		!intPtrEqual(want.Precision, have.Precision) ||
		!intPtrEqual(want.Scale, have.Scale) ||
		!intPtrEqual(want.DatetimePrecision, have.DatetimePrecision)
}

func addColumnOp(t snapshot.Table, c snapshot.Column) Operation {
	return Operation{
		Type:               AddColumn,
		Schema:             t.Schema,
		Table:              t.Name,
		Column:             c.Name,
		SQLType:            c.DataType,
		Length:             c.Length,
		Precision:          c.Precision,
		Scale:              c.Scale,
		DatetimePrecision:  c.DatetimePrecision,
		Nullable:           c.Nullable,
		Default:            c.Default,
		PrimaryKey:         c.IsPrimaryKey,
		Identity:           c.IsIdentity,
		IdentityGeneration: c.IdentityGeneration,
	}
}

func addUniqueOp(t snapshot.Table, c snapshot.Column) Operation {
	return Operation{
		Type:       AddUnique,
		Schema:     t.Schema,
		Table:      t.Name,
		Column:     c.Name,
		Constraint: c.UniqueName,
	}
}

func addForeignKeyOp(t snapshot.Table, c snapshot.Column) Operation {
	fk := c.ForeignKey
	return Operation{
		Type:       AddForeignKey,
		Schema:     t.Schema,
		Table:      t.Name,
		Column:     c.Name,
		Constraint: fk.Name,
		RefSchema:  fk.RefSchema,
		RefTable:   fk.RefTable,
		RefColumn:  fk.RefColumn,
		OnUpdate:   fk.OnUpdate,
		OnDelete:   fk.OnDelete,
	}
}

// filterCommitted drops operations structurally identical to ones that
// already live in generated migrations. Identity is the operation's
// full content: a committed operation for the same column with a
// different type, default or constraint target does not suppress the
// new one.
func filterCommitted(ops, committed []Operation) []Operation {
	if len(committed) == 0 {
		return ops
	}
	seen := make(map[string]bool, len(committed))
	for _, op := range committed {
		seen[opKey(op)] = true
	}
	filtered := ops[:0:0]
	for _, op := range ops {
		if !seen[opKey(op)] {
			filtered = append(filtered, op)
		}
	}
	return filtered
}

// opKey is the operation's serialized form; two operations share a key
// iff every field matches.
func opKey(op Operation) string {
	b, _ := yaml.Marshal(op)
	return string(b)
}

func sortedTables(s snapshot.Snapshot) []snapshot.Table {
	tables := append([]snapshot.Table(nil), s.Tables...)
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Key() < tables[j].Key()
	})
	return tables
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
