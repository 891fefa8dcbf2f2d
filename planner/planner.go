// Package planner reorders migration operations into a sequence that is
// safe to execute top to bottom: no statement references an object that
// does not yet exist, and nothing is dropped while something in the
// same batch still depends on it.
package planner

import (
	"sort"

	"github.com/schemaflow/schemaflow/diff"
)

// Sort permutes ops into dependency-safe execution order. The result is
// a concatenation of seven phases, each itself a stable sub-sort:
//
//	1. CREATE_SCHEMA, deduplicated by schema name
//	2. CREATE_TABLE, topologically ordered by foreign keys
//	3. ADD_COLUMN, by created-table position then column name
//	4. ALTER_COLUMN_TYPE, ALTER_NULLABILITY, SET_DEFAULT, DROP_DEFAULT
//	5. ADD_UNIQUE
//	6. ADD_FOREIGN_KEY, referenced table first
//	7. DROP_CONSTRAINT, DROP_COLUMN, DROP_TABLE
func Sort(ops []diff.Operation) []diff.Operation {
	groups := map[diff.OperationType][]diff.Operation{}
	for _, op := range ops {
		groups[op.Type] = append(groups[op.Type], op)
	}

	creates := sortCreateTables(groups[diff.CreateTable], groups[diff.AddForeignKey])
	position := map[string]int{}
	for i, op := range creates {
		position[op.TableKey()] = i
	}

	out := make([]diff.Operation, 0, len(ops))
	out = append(out, dedupSchemas(groups[diff.CreateSchema])...)
	out = append(out, creates...)
	out = append(out, sortAddColumns(groups[diff.AddColumn], position)...)
	out = append(out, groups[diff.AlterColumnType]...)
	out = append(out, groups[diff.AlterNullability]...)
	out = append(out, groups[diff.SetDefault]...)
	out = append(out, groups[diff.DropDefault]...)
	out = append(out, groups[diff.AddUnique]...)
	out = append(out, sortForeignKeys(groups[diff.AddForeignKey], position)...)
	out = append(out, groups[diff.DropConstraint]...)
	out = append(out, groups[diff.DropColumn]...)
	out = append(out, groups[diff.DropTable]...)
	return out
}

func dedupSchemas(ops []diff.Operation) []diff.Operation {
	seen := map[string]bool{}
	out := ops[:0:0]
	for _, op := range ops {
		if !seen[op.Schema] {
			seen[op.Schema] = true
			out = append(out, op)
		}
	}
	return out
}

// sortCreateTables orders table creation so that a table referenced by
// another created table's foreign key comes first. Only foreign keys
// between tables created in this batch form edges; references to
// pre-existing tables impose no ordering. Kahn's algorithm resolves the
// graph; members of a residual cycle are appended in original order,
// which is safe because their constraints are added only in phase 6,
// after every table exists.
func sortCreateTables(creates, foreignKeys []diff.Operation) []diff.Operation {
	if len(creates) < 2 {
		return creates
	}

	created := make(map[string]bool, len(creates))
	for _, op := range creates {
		created[op.TableKey()] = true
	}

	// dependents[ref] lists the tables whose foreign keys point at ref.
	dependents := map[string][]string{}
	inDegree := map[string]int{}
	edgeSeen := map[string]bool{}
	for _, fk := range foreignKeys {
		src, ref := fk.TableKey(), fk.RefTableKey()
		if src == ref || !created[src] || !created[ref] {
			continue
		}
		if edgeSeen[ref+"->"+src] {
			continue
		}
		edgeSeen[ref+"->"+src] = true
		dependents[ref] = append(dependents[ref], src)
		inDegree[src]++
	}

	byKey := make(map[string]diff.Operation, len(creates))
	var queue []string
	for _, op := range creates {
		byKey[op.TableKey()] = op
		if inDegree[op.TableKey()] == 0 {
			queue = append(queue, op.TableKey())
		}
	}

	var out []diff.Operation
	placed := map[string]bool{}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		placed[key] = true
		out = append(out, byKey[key])
		for _, dep := range dependents[key] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	// Residual cycle: mutual references fall through in original order.
	for _, op := range creates {
		if !placed[op.TableKey()] {
			out = append(out, op)
		}
	}
	return out
}

// sortAddColumns places columns of earlier-created tables first, with
// the column name as a deterministic secondary key. Columns of tables
// not created in this batch carry no ordering constraint and sort ahead.
func sortAddColumns(ops []diff.Operation, position map[string]int) []diff.Operation {
	out := append([]diff.Operation(nil), ops...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := tablePosition(out[i].TableKey(), position), tablePosition(out[j].TableKey(), position)
		if pi != pj {
			return pi < pj
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// sortForeignKeys applies constraints pointing at earlier-created
// tables first, then orders by the source table's position. Self-cycles
// fall through since both endpoints share a position.
func sortForeignKeys(ops []diff.Operation, position map[string]int) []diff.Operation {
	out := append([]diff.Operation(nil), ops...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := tablePosition(out[i].RefTableKey(), position), tablePosition(out[j].RefTableKey(), position)
		if ri != rj {
			return ri < rj
		}
		return tablePosition(out[i].TableKey(), position) < tablePosition(out[j].TableKey(), position)
	})
	return out
}

func tablePosition(key string, position map[string]int) int {
	if p, ok := position[key]; ok {
		return p
	}
	return -1
}
