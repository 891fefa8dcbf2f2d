package diff

import (
	"github.com/schemaflow/schemaflow/snapshot"
)

// Project replays a list of operations onto a base snapshot and returns
// the resulting snapshot. The base is never mutated: this is how the
// engine computes "schema as of migration N" without touching the
// database, and how generated migrations are folded into the actual
// snapshot before diffing.
//
// Unknown targets are tolerated: altering a column that is not in the
// base snapshot is a no-op rather than an error, mirroring how the
// differ treats unsafe situations.
func Project(base snapshot.Snapshot, ops []Operation) snapshot.Snapshot {
	snap := cloneSnapshot(base)
	for _, op := range ops {
		snap = applyOp(snap, op)
	}
	return snap
}

func applyOp(snap snapshot.Snapshot, op Operation) snapshot.Snapshot {
	switch op.Type {
	case CreateSchema:
		// Schemas exist in a snapshot only through their tables.
		return snap

	case CreateTable:
		if _, ok := snap.Table(op.Schema, op.Table); ok {
			return snap
		}
		snap.Tables = append(snap.Tables, snapshot.Table{
			Schema: op.Schema,
			Name:   op.Table,
		})
		return snap

	case DropTable:
		kept := snap.Tables[:0:0]
		for _, t := range snap.Tables {
			if !(t.Schema == op.Schema && t.Name == op.Table) {
				kept = append(kept, t)
			}
		}
		snap.Tables = kept
		return snap

	case AddColumn:
		return updateTable(snap, op, func(t snapshot.Table) snapshot.Table {
			if _, ok := t.Column(op.Column); ok {
				return t
			}
			c := snapshot.Column{
				Name:               op.Column,
				DataType:           snapshot.NormalizeDataType(op.SQLType),
				Length:             op.Length,
				Precision:          op.Precision,
				Scale:              op.Scale,
				DatetimePrecision:  op.DatetimePrecision,
				Nullable:           op.Nullable,
				Default:            op.Default,
				IsPrimaryKey:       op.PrimaryKey,
				IsIdentity:         op.Identity,
				IdentityGeneration: op.IdentityGeneration,
			}
			fillImpliedDetails(&c, op.SQLType)
			t.Columns = append(t.Columns, c)
			return t
		})

	case DropColumn:
		return updateTable(snap, op, func(t snapshot.Table) snapshot.Table {
			kept := t.Columns[:0:0]
			for _, c := range t.Columns {
				if c.Name != op.Column {
					kept = append(kept, c)
				}
			}
			t.Columns = kept
			return t
		})

	case AlterColumnType:
		return updateColumn(snap, op, func(c snapshot.Column) snapshot.Column {
			c.DataType = snapshot.NormalizeDataType(op.SQLType)
			c.Length = op.Length
			c.Precision = op.Precision
			c.Scale = op.Scale
			c.DatetimePrecision = op.DatetimePrecision
			fillImpliedDetails(&c, op.SQLType)
			return c
		})

	case AlterNullability:
		return updateColumn(snap, op, func(c snapshot.Column) snapshot.Column {
			c.Nullable = op.Nullable
			return c
		})

	case SetDefault:
		return updateColumn(snap, op, func(c snapshot.Column) snapshot.Column {
			c.Default = op.Default
			return c
		})

	case DropDefault:
		return updateColumn(snap, op, func(c snapshot.Column) snapshot.Column {
			c.Default = nil
			return c
		})

	case AddUnique:
		return updateColumn(snap, op, func(c snapshot.Column) snapshot.Column {
			c.IsUnique = true
			c.UniqueName = op.Constraint
			return c
		})

	case AddForeignKey:
		return updateColumn(snap, op, func(c snapshot.Column) snapshot.Column {
			c.ForeignKey = &snapshot.ForeignKey{
				Name:      op.Constraint,
				RefSchema: op.RefSchema,
				RefTable:  op.RefTable,
				RefColumn: op.RefColumn,
				OnUpdate:  op.OnUpdate,
				OnDelete:  op.OnDelete,
			}
			return c
		})

	case DropConstraint:
		return updateTable(snap, op, func(t snapshot.Table) snapshot.Table {
			for i, c := range t.Columns {
				switch {
				case c.ForeignKey != nil && c.ForeignKey.Name == op.Constraint:
					c.ForeignKey = nil
				case c.IsUnique && c.UniqueName == op.Constraint:
					c.IsUnique = false
					c.UniqueName = ""
				default:
					continue
				}
				t.Columns[i] = c
			}
			return t
		})
	}
	return snap
}

// fillImpliedDetails backfills type parameters for operations loaded
// from migration files, where the type may be a bare token without the
// details the differ would have attached.
func fillImpliedDetails(c *snapshot.Column, rawType string) {
	if c.Length != nil || c.Precision != nil || c.Scale != nil || c.DatetimePrecision != nil {
		return
	}
	d := snapshot.ExtractDataTypeDetails(rawType)
	c.Length = d.Length
	c.Precision = d.Precision
	c.Scale = d.Scale
	c.DatetimePrecision = d.DatetimePrecision
}

func updateTable(snap snapshot.Snapshot, op Operation, fn func(snapshot.Table) snapshot.Table) snapshot.Snapshot {
	for i, t := range snap.Tables {
		if t.Schema == op.Schema && t.Name == op.Table {
			snap.Tables[i] = fn(t)
			return snap
		}
	}
	return snap
}

func updateColumn(snap snapshot.Snapshot, op Operation, fn func(snapshot.Column) snapshot.Column) snapshot.Snapshot {
	return updateTable(snap, op, func(t snapshot.Table) snapshot.Table {
		for i, c := range t.Columns {
			if c.Name == op.Column {
				t.Columns[i] = fn(c)
				return t
			}
		}
		return t
	})
}

// cloneSnapshot copies the table and column slices so that applying
// operations never writes through to the caller's snapshot.
func cloneSnapshot(s snapshot.Snapshot) snapshot.Snapshot {
	out := snapshot.Snapshot{Tables: make([]snapshot.Table, len(s.Tables))}
	for i, t := range s.Tables {
		t.Columns = append([]snapshot.Column(nil), t.Columns...)
		out.Tables[i] = t
	}
	return out
}
