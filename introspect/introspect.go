package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schemaflow/schemaflow/snapshot"
)

// The engine's own history ledger is not part of the user schema and is
// never reported in a snapshot. Only the ledger's own location is
// excluded; a user table of the same name in another schema is ordinary
// data.
const (
	historySchema = "public"
	historyTable  = "schemaflow_migrations"
)

func isHistoryTable(schema, name string) bool {
	return schema == historySchema && name == historyTable
}

// ReadLiveSnapshot introspects the target database's catalog into a
// normalized snapshot. Only non-system schemas are read. The reads are
// not wrapped in a transaction: the snapshot is a best-effort
// point-in-time view.
func ReadLiveSnapshot(ctx context.Context, pool *pgxpool.Pool) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot

	tablesQuery := `
	SELECT table_schema, table_name
	FROM information_schema.tables
	WHERE table_type = 'BASE TABLE'
	  AND table_schema NOT IN ('pg_catalog', 'information_schema')
	  AND table_schema NOT LIKE 'pg_%'
	ORDER BY table_schema, table_name;
	`

	rows, err := pool.Query(ctx, tablesQuery)
	if err != nil {
		return snap, fmt.Errorf("querying tables: %v", err)
	}
	defer rows.Close()

	type tableKey struct{ schema, name string }
	var keys []tableKey
	for rows.Next() {
		var k tableKey
		if err := rows.Scan(&k.schema, &k.name); err != nil {
			return snap, fmt.Errorf("scanning table name: %v", err)
		}
		if isHistoryTable(snapshot.NormalizeIdentifier(k.schema), snapshot.NormalizeIdentifier(k.name)) {
			continue
		}
		keys = append(keys, k)
	}
	if rows.Err() != nil {
		return snap, fmt.Errorf("iterating table rows: %v", rows.Err())
	}
	rows.Close()

	for _, k := range keys {
		columns, err := getColumns(ctx, pool, k.schema, k.name)
		if err != nil {
			return snap, fmt.Errorf("getting columns for %s.%s: %v", k.schema, k.name, err)
		}
		if err := attachKeyConstraints(ctx, pool, k.schema, k.name, columns); err != nil {
			return snap, fmt.Errorf("getting key constraints for %s.%s: %v", k.schema, k.name, err)
		}
		if err := attachForeignKeys(ctx, pool, k.schema, k.name, columns); err != nil {
			return snap, fmt.Errorf("getting foreign keys for %s.%s: %v", k.schema, k.name, err)
		}

		t := snapshot.Table{
			Schema: snapshot.NormalizeIdentifier(k.schema),
			Name:   snapshot.NormalizeIdentifier(k.name),
		}
		for _, c := range columns {
			t.Columns = append(t.Columns, *c)
		}
		snap.Tables = append(snap.Tables, t)
	}

	return snap, nil
}

func getColumns(ctx context.Context, pool *pgxpool.Pool, schema, table string) ([]*snapshot.Column, error) {
	columnsQuery := `
	SELECT
		c.column_name,
		c.data_type,
		c.character_maximum_length,
		c.numeric_precision,
		c.numeric_scale,
		c.datetime_precision,
		(c.is_nullable = 'YES') AS is_nullable,
		c.column_default,
		(c.is_identity = 'YES') AS is_identity,
		c.identity_generation,
		(c.is_generated = 'ALWAYS') AS is_generated,
		c.generation_expression
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position;
	`

	rows, err := pool.Query(ctx, columnsQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %v", err)
	}
	defer rows.Close()

	var columns []*snapshot.Column
	for rows.Next() {
		var (
			name, dataType     string
			length, precision  *int
			scale, dtPrecision *int
			nullable           bool
			columnDefault      *string
			isIdentity         bool
			identityGeneration *string
			isGenerated        bool
			generationExpr     *string
		)
		if err := rows.Scan(
			&name, &dataType, &length, &precision, &scale, &dtPrecision,
			&nullable, &columnDefault, &isIdentity, &identityGeneration,
			&isGenerated, &generationExpr,
		); err != nil {
			return nil, fmt.Errorf("scanning column: %v", err)
		}

		col := &snapshot.Column{
			Name:        snapshot.NormalizeIdentifier(name),
			DataType:    snapshot.NormalizeDataType(dataType),
			Length:      length,
			Precision:   precision,
			Scale:       scale,
			Nullable:    nullable,
			IsIdentity:  isIdentity,
			IsGenerated: isGenerated,
		}
		// The catalog reports fractional precision for every datetime
		// column; numeric columns keep theirs separate.
		switch col.DataType {
		case "timestamp", "timestamptz", "time", "timetz", "interval", "date":
			col.DatetimePrecision = dtPrecision
		}
		if columnDefault != nil && !isIdentity && !isGenerated {
			col.Default = snapshot.NormalizeDefault(*columnDefault)
		}
		if identityGeneration != nil {
			col.IdentityGeneration = snapshot.NormalizeIdentifier(*identityGeneration)
		}
		if generationExpr != nil {
			col.GenerationExpr = snapshot.NormalizeIdentifier(*generationExpr)
		}
		columns = append(columns, col)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating column rows: %v", rows.Err())
	}
	return columns, nil
}

// attachKeyConstraints marks primary-key and unique columns with their
// constraint names.
func attachKeyConstraints(ctx context.Context, pool *pgxpool.Pool, schema, table string, columns []*snapshot.Column) error {
	constraintsQuery := `
	SELECT tc.constraint_type, tc.constraint_name, kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
		AND tc.table_name = kcu.table_name
	WHERE tc.table_schema = $1 AND tc.table_name = $2
		AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE');
	`

	rows, err := pool.Query(ctx, constraintsQuery, schema, table)
	if err != nil {
		return fmt.Errorf("querying key constraints: %v", err)
	}
	defer rows.Close()

	byName := map[string]*snapshot.Column{}
	for _, c := range columns {
		byName[c.Name] = c
	}

	for rows.Next() {
		var constraintType, constraintName, columnName string
		if err := rows.Scan(&constraintType, &constraintName, &columnName); err != nil {
			return fmt.Errorf("scanning key constraint: %v", err)
		}
		col, ok := byName[snapshot.NormalizeIdentifier(columnName)]
		if !ok {
			continue
		}
		switch constraintType {
		case "PRIMARY KEY":
			col.IsPrimaryKey = true
			col.PrimaryKeyName = snapshot.NormalizeIdentifier(constraintName)
		case "UNIQUE":
			col.IsUnique = true
			col.UniqueName = snapshot.NormalizeIdentifier(constraintName)
		}
	}
	return rows.Err()
}

func attachForeignKeys(ctx context.Context, pool *pgxpool.Pool, schema, table string, columns []*snapshot.Column) error {
	foreignKeysQuery := `
	SELECT
		tc.constraint_name,
		kcu.column_name,
		ccu.table_schema AS foreign_table_schema,
		ccu.table_name AS foreign_table_name,
		ccu.column_name AS foreign_column_name,
		rc.update_rule,
		rc.delete_rule
	FROM information_schema.table_constraints AS tc
	JOIN information_schema.key_column_usage AS kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage AS ccu
		ON ccu.constraint_name = tc.constraint_name
		AND ccu.table_schema = tc.table_schema
	LEFT JOIN information_schema.referential_constraints AS rc
		ON tc.constraint_name = rc.constraint_name
	WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = $1
		AND tc.table_name = $2;
	`

	rows, err := pool.Query(ctx, foreignKeysQuery, schema, table)
	if err != nil {
		return fmt.Errorf("querying foreign keys: %v", err)
	}
	defer rows.Close()

	byName := map[string]*snapshot.Column{}
	for _, c := range columns {
		byName[c.Name] = c
	}

	for rows.Next() {
		var constraintName, columnName, refSchema, refTable, refColumn string
		var updateRule, deleteRule *string
		if err := rows.Scan(
			&constraintName, &columnName, &refSchema, &refTable, &refColumn,
			&updateRule, &deleteRule,
		); err != nil {
			return fmt.Errorf("scanning foreign key: %v", err)
		}
		col, ok := byName[snapshot.NormalizeIdentifier(columnName)]
		if !ok {
			continue
		}
		col.ForeignKey = &snapshot.ForeignKey{
			Name:      snapshot.NormalizeIdentifier(constraintName),
			RefSchema: snapshot.NormalizeIdentifier(refSchema),
			RefTable:  snapshot.NormalizeIdentifier(refTable),
			RefColumn: snapshot.NormalizeIdentifier(refColumn),
			OnUpdate:  normalizeRule(updateRule),
			OnDelete:  normalizeRule(deleteRule),
		}
	}
	return rows.Err()
}

func normalizeRule(rule *string) string {
	if rule == nil {
		return ""
	}
	r := snapshot.NormalizeIdentifier(*rule)
	if r == "no action" {
		return ""
	}
	return r
}
