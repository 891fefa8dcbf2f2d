package runner

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schemaflow/schemaflow/generator"
	"github.com/schemaflow/schemaflow/planner"
)

// The history ledger lives inside the target database itself. Its
// location is an engine constant, not user configuration.
const (
	historySchema = "public"
	historyTable  = "schemaflow_migrations"
)

// Runner applies and reverts migrations against a live connection,
// recording progress in the history ledger. Execution is strictly
// sequential; a single writer process is assumed for the duration of a
// run.
type Runner struct {
	pool     *pgxpool.Pool
	registry *Registry
}

func New(pool *pgxpool.Pool, registry *Registry) *Runner {
	return &Runner{pool: pool, registry: registry}
}

// ensureHistoryTable bootstraps the ledger. Idempotent; runs before any
// apply or rollback.
func (r *Runner) ensureHistoryTable(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
	CREATE SCHEMA IF NOT EXISTS %q;
	`, historySchema))
	if err != nil {
		return fmt.Errorf("ensure history schema: %v", err)
	}
	_, err = r.pool.Exec(ctx, fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %q.%q (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`, historySchema, historyTable))
	if err != nil {
		return fmt.Errorf("ensure history table: %v", err)
	}
	return nil
}

// Applied returns the set of migration names recorded in the ledger.
func (r *Runner) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT name FROM %q.%q;`, historySchema, historyTable))
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %v", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan migration name: %v", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// History returns the ledger rows in application order.
func (r *Runner) History(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT name, applied_at FROM %q.%q ORDER BY applied_at, name;`, historySchema, historyTable))
	if err != nil {
		return nil, fmt.Errorf("query migration history: %v", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %v", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ApplyPending applies every pending migration in ascending order. If
// target names a known migration, the run stops after applying it;
// later migrations stay pending. A statement failure rolls back the
// failing migration entirely, ledger write included, and aborts the
// run; earlier migrations' effects are kept.
func (r *Runner) ApplyPending(ctx context.Context, target string) (int, error) {
	if err := r.ensureHistoryTable(ctx); err != nil {
		return 0, err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return 0, err
	}
	plan, err := r.registry.pendingPlan(applied, target)
	if err != nil {
		return 0, err
	}

	for i, m := range plan {
		if err := r.applyOne(ctx, m); err != nil {
			return i, fmt.Errorf("applying %s: %w", m.Name, err)
		}
	}
	return len(plan), nil
}

func (r *Runner) applyOne(ctx context.Context, m Migration) error {
	stmts, err := generator.EmitAll(planner.Sort(m.Up))
	if err != nil {
		return err
	}
	return r.inTransaction(ctx, stmts, fmt.Sprintf(
		`INSERT INTO %q.%q (name) VALUES ($1);`, historySchema, historyTable), m.Name)
}

// RollbackTo reverts every applied migration positioned after target,
// most recent first, one transaction per migration. Rolling back to the
// most recently applied migration is a no-op.
func (r *Runner) RollbackTo(ctx context.Context, target string) (int, error) {
	if err := r.ensureHistoryTable(ctx); err != nil {
		return 0, err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return 0, err
	}
	plan, err := r.registry.rollbackPlan(applied, target)
	if err != nil {
		return 0, err
	}

	for i, m := range plan {
		if err := r.rollbackOne(ctx, m); err != nil {
			return i, fmt.Errorf("rolling back %s: %w", m.Name, err)
		}
	}
	return len(plan), nil
}

func (r *Runner) rollbackOne(ctx context.Context, m Migration) error {
	stmts, err := generator.EmitAll(planner.Sort(m.Down))
	if err != nil {
		return err
	}
	return r.inTransaction(ctx, stmts, fmt.Sprintf(
		`DELETE FROM %q.%q WHERE name = $1;`, historySchema, historyTable), m.Name)
}

// inTransaction runs a migration's statements and its ledger write as
// one atomic unit: either every statement and the history row commit
// together or none do.
func (r *Runner) inTransaction(ctx context.Context, stmts []string, ledgerSQL, name string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt, err)
		}
	}
	if _, err := tx.Exec(ctx, ledgerSQL, name); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit(ctx)
}

// Status reports applied ledger records and the names of pending
// migrations, in order.
func (r *Runner) Status(ctx context.Context) ([]Record, []string, error) {
	if err := r.ensureHistoryTable(ctx); err != nil {
		return nil, nil, err
	}
	records, err := r.History(ctx)
	if err != nil {
		return nil, nil, err
	}

	applied := map[string]bool{}
	for _, rec := range records {
		applied[rec.Name] = true
	}
	pending, err := r.registry.pendingPlan(applied, "")
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(pending))
	for _, m := range pending {
		names = append(names, m.Name)
	}
	return records, names, nil
}

// Preview renders the SQL each pending migration would execute, without
// touching anything beyond the ledger bootstrap.
func (r *Runner) Preview(ctx context.Context, target string) (map[string][]string, []string, error) {
	if err := r.ensureHistoryTable(ctx); err != nil {
		return nil, nil, err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, nil, err
	}
	plan, err := r.registry.pendingPlan(applied, target)
	if err != nil {
		return nil, nil, err
	}

	preview := map[string][]string{}
	var order []string
	for _, m := range plan {
		stmts, err := generator.EmitAll(planner.Sort(m.Up))
		if err != nil {
			return nil, nil, err
		}
		preview[m.Name] = stmts
		order = append(order, m.Name)
	}
	return preview, order, nil
}
