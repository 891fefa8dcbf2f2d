package generator

import (
	"github.com/schemaflow/schemaflow/diff"
	"github.com/schemaflow/schemaflow/snapshot"
)

// Inverse derives a Down operation list for a generated migration by
// walking the Up list in reverse and undoing each operation. previous
// is the snapshot the Up list was diffed against; it supplies the old
// column shapes that the operations themselves no longer carry, so a
// dropped column or an altered type can be restored rather than
// guessed. Operations with nothing to restore (a created schema, a
// default that never existed) contribute nothing.
func Inverse(ops []diff.Operation, previous snapshot.Snapshot) []diff.Operation {
	var down []diff.Operation

	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		switch op.Type {
		case diff.CreateSchema:
			// Dropping a schema could take unrelated objects with it.

		case diff.CreateTable:
			down = append(down, diff.Operation{
				Type:   diff.DropTable,
				Schema: op.Schema,
				Table:  op.Table,
			})

		case diff.AddColumn:
			down = append(down, diff.Operation{
				Type:   diff.DropColumn,
				Schema: op.Schema,
				Table:  op.Table,
				Column: op.Column,
			})

		case diff.AddUnique:
			down = append(down, diff.Operation{
				Type:       diff.DropConstraint,
				Schema:     op.Schema,
				Table:      op.Table,
				Column:     op.Column,
				Constraint: constraintName(op, "uq"),
			})

		case diff.AddForeignKey:
			down = append(down, diff.Operation{
				Type:       diff.DropConstraint,
				Schema:     op.Schema,
				Table:      op.Table,
				Column:     op.Column,
				Constraint: constraintName(op, "fk"),
			})

		case diff.AlterColumnType:
			if old, ok := previousColumn(previous, op); ok {
				down = append(down, diff.Operation{
					Type:              diff.AlterColumnType,
					Schema:            op.Schema,
					Table:             op.Table,
					Column:            op.Column,
					SQLType:           old.DataType,
					Length:            old.Length,
					Precision:         old.Precision,
					Scale:             old.Scale,
					DatetimePrecision: old.DatetimePrecision,
				})
			}

		case diff.AlterNullability:
			down = append(down, diff.Operation{
				Type:     diff.AlterNullability,
				Schema:   op.Schema,
				Table:    op.Table,
				Column:   op.Column,
				Nullable: !op.Nullable,
			})

		case diff.SetDefault, diff.DropDefault:
			old, ok := previousColumn(previous, op)
			if ok && old.Default != nil {
				down = append(down, diff.Operation{
					Type:    diff.SetDefault,
					Schema:  op.Schema,
					Table:   op.Table,
					Column:  op.Column,
					Default: old.Default,
				})
			} else if op.Type == diff.SetDefault {
				down = append(down, diff.Operation{
					Type:   diff.DropDefault,
					Schema: op.Schema,
					Table:  op.Table,
					Column: op.Column,
				})
			}

		case diff.DropColumn:
			if old, ok := previousColumn(previous, op); ok {
				down = append(down, restoreColumnOps(op.Schema, op.Table, old)...)
			}

		case diff.DropTable:
			if t, ok := previous.Table(op.Schema, op.Table); ok {
				down = append(down, diff.Operation{
					Type:   diff.CreateTable,
					Schema: t.Schema,
					Table:  t.Name,
				})
				for _, c := range t.Columns {
					down = append(down, restoreColumnOps(t.Schema, t.Name, c)...)
				}
			}

		case diff.DropConstraint:
			down = append(down, restoreConstraint(previous, op)...)
		}
	}

	return down
}

func previousColumn(previous snapshot.Snapshot, op diff.Operation) (snapshot.Column, bool) {
	t, ok := previous.Table(op.Schema, op.Table)
	if !ok {
		return snapshot.Column{}, false
	}
	return t.Column(op.Column)
}

// restoreColumnOps recreates a column with its constraints.
func restoreColumnOps(schema, table string, c snapshot.Column) []diff.Operation {
	ops := []diff.Operation{{
		Type:               diff.AddColumn,
		Schema:             schema,
		Table:              table,
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
	}}
	if c.IsUnique {
		ops = append(ops, diff.Operation{
			Type:       diff.AddUnique,
			Schema:     schema,
			Table:      table,
			Column:     c.Name,
			Constraint: c.UniqueName,
		})
	}
	if c.ForeignKey != nil {
		ops = append(ops, diff.Operation{
			Type:       diff.AddForeignKey,
			Schema:     schema,
			Table:      table,
			Column:     c.Name,
			Constraint: c.ForeignKey.Name,
			RefSchema:  c.ForeignKey.RefSchema,
			RefTable:   c.ForeignKey.RefTable,
			RefColumn:  c.ForeignKey.RefColumn,
			OnUpdate:   c.ForeignKey.OnUpdate,
			OnDelete:   c.ForeignKey.OnDelete,
		})
	}
	return ops
}

// restoreConstraint re-adds whatever constraint the drop removed, when
// the previous snapshot still knows it.
func restoreConstraint(previous snapshot.Snapshot, op diff.Operation) []diff.Operation {
	t, ok := previous.Table(op.Schema, op.Table)
	if !ok {
		return nil
	}
	for _, c := range t.Columns {
		if c.ForeignKey != nil && c.ForeignKey.Name == op.Constraint {
			return []diff.Operation{{
				Type:       diff.AddForeignKey,
				Schema:     op.Schema,
				Table:      op.Table,
				Column:     c.Name,
				Constraint: c.ForeignKey.Name,
				RefSchema:  c.ForeignKey.RefSchema,
				RefTable:   c.ForeignKey.RefTable,
				RefColumn:  c.ForeignKey.RefColumn,
				OnUpdate:   c.ForeignKey.OnUpdate,
				OnDelete:   c.ForeignKey.OnDelete,
			}}
		}
		if c.IsUnique && c.UniqueName == op.Constraint {
			return []diff.Operation{{
				Type:       diff.AddUnique,
				Schema:     op.Schema,
				Table:      op.Table,
				Column:     c.Name,
				Constraint: c.UniqueName,
			}}
		}
	}
	return nil
}
