package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schemaflow/schemaflow/diff"
)

// EmitDDL renders one operation into one self-contained PostgreSQL
// statement. Emission is deterministic: the same operation always
// produces the same text.
func EmitDDL(op diff.Operation) (string, error) {
	switch op.Type {
	case diff.CreateSchema:
		return fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, quote(op.Schema)), nil

	case diff.CreateTable:
		return fmt.Sprintf(`CREATE TABLE %s ();`, qualified(op)), nil

	case diff.AddColumn:
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`,
			qualified(op), quote(op.Column), renderType(op))
		if op.Identity {
			if op.IdentityGeneration == "always" {
				stmt += " GENERATED ALWAYS AS IDENTITY"
			} else {
				stmt += " GENERATED BY DEFAULT AS IDENTITY"
			}
		}
		if op.PrimaryKey {
			stmt += " PRIMARY KEY"
		} else if !op.Nullable {
			stmt += " NOT NULL"
		}
		if op.Default != nil {
			stmt += fmt.Sprintf(" DEFAULT %s", *op.Default)
		}
		return stmt + ";", nil

	case diff.DropTable:
		return fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, qualified(op)), nil

	case diff.DropColumn:
		return fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s;`,
			qualified(op), quote(op.Column)), nil

	case diff.AlterColumnType:
		return fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s TYPE %s;`,
			qualified(op), quote(op.Column), renderType(op)), nil

	case diff.AlterNullability:
		if op.Nullable {
			return fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;`,
				qualified(op), quote(op.Column)), nil
		}
		return fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;`,
			qualified(op), quote(op.Column)), nil

	case diff.SetDefault:
		if op.Default == nil {
			return "", fmt.Errorf("SET_DEFAULT for %s.%s carries no default", op.TableKey(), op.Column)
		}
		return fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;`,
			qualified(op), quote(op.Column), *op.Default), nil

	case diff.DropDefault:
		return fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;`,
			qualified(op), quote(op.Column)), nil

	case diff.AddUnique:
		return fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);`,
			qualified(op), quote(constraintName(op, "uq")), quote(op.Column)), nil

	case diff.DropConstraint:
		return fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT %s;`,
			qualified(op), quote(op.Constraint)), nil

	case diff.AddForeignKey:
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s.%s (%s)`,
			qualified(op), quote(constraintName(op, "fk")), quote(op.Column),
			quote(op.RefSchema), quote(op.RefTable), quote(op.RefColumn))
		if op.OnUpdate != "" {
			stmt += fmt.Sprintf(" ON UPDATE %s", strings.ToUpper(op.OnUpdate))
		}
		if op.OnDelete != "" {
			stmt += fmt.Sprintf(" ON DELETE %s", strings.ToUpper(op.OnDelete))
		}
		return stmt + ";", nil
	}

	return "", fmt.Errorf("unsupported operation: %s", op.Type)
}

// EmitAll renders a whole operation list, one statement per operation.
func EmitAll(ops []diff.Operation) ([]string, error) {
	stmts := make([]string, 0, len(ops))
	for _, op := range ops {
		stmt, err := EmitDDL(op)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// Fractional-second precision the catalog reports when a datetime type
// is declared without one. Rendering it would be redundant.
var defaultDatetimePrecision = map[string]int{
	"timestamp":   6,
	"timestamptz": 6,
	"time":        6,
	"timetz":      6,
	"interval":    6,
	"date":        0,
}

// renderType turns a canonical type token plus parameters back into
// valid PostgreSQL syntax. Implied parameters (integer widths, default
// datetime precision) are not rendered; anything else round-trips, so
// an applied column introspects back with the declared shape.
func renderType(op diff.Operation) string {
	name := op.SQLType
	if name == "double" {
		name = "double precision"
	}
	if op.Length != nil {
		return fmt.Sprintf("%s(%d)", name, *op.Length)
	}
	if name == "numeric" && op.Precision != nil {
		if op.Scale != nil {
			return fmt.Sprintf("numeric(%d,%d)", *op.Precision, *op.Scale)
		}
		return fmt.Sprintf("numeric(%d)", *op.Precision)
	}
	if def, ok := defaultDatetimePrecision[name]; ok && op.DatetimePrecision != nil && *op.DatetimePrecision != def {
		return fmt.Sprintf("%s(%d)", name, *op.DatetimePrecision)
	}
	return name
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func qualified(op diff.Operation) string {
	return quote(op.Schema) + "." + quote(op.Table)
}

// constraintName falls back to a generated name when an operation
// carries none.
func constraintName(op diff.Operation, prefix string) string {
	if op.Constraint != "" {
		return op.Constraint
	}
	return fmt.Sprintf("%s_%s_%s", prefix, op.Table, op.Column)
}

// migrationFile is the on-disk YAML shape of one migration: a forward
// and a reverse operation list, independently authored.
type migrationFile struct {
	Up   []diff.Operation `yaml:"up"`
	Down []diff.Operation `yaml:"down"`
}

// WriteMigrationFile saves the operation lists into a timestamped YAML
// file under dir, creating the directory if needed. The returned path
// embeds the monotonic timestamp that orders migrations.
func WriteMigrationFile(dir, label string, up, down []diff.Operation) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations folder: %v", err)
	}

	if label == "" {
		label = "migration"
	}
	timestamp := time.Now().Format("20060102150405")
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", timestamp, label))

	content, err := yaml.Marshal(migrationFile{Up: up, Down: down})
	if err != nil {
		return "", fmt.Errorf("marshalling migration: %v", err)
	}
	if err := os.WriteFile(filename, content, 0o644); err != nil {
		return "", fmt.Errorf("writing migration file: %v", err)
	}
	return filename, nil
}
