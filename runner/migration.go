package runner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/schemaflow/schemaflow/diff"
)

// Migration is one named, ordered unit of schema change. Up and Down
// are independently authored operation lists; Down is not required to
// be the exact inverse of Up.
type Migration struct {
	Name string
	Up   []diff.Operation
	Down []diff.Operation
}

// Record is one row of the history ledger.
type Record struct {
	Name      string
	AppliedAt time.Time
}

// Registry holds the known migrations in ascending name order. Names
// embed a monotonic timestamp prefix, so lexical order is apply order.
type Registry struct {
	migrations []Migration
}

// NewRegistry builds a registry, sorting the given migrations by name.
func NewRegistry(migrations []Migration) *Registry {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return &Registry{migrations: sorted}
}

// Migrations returns the known migrations in apply order.
func (r *Registry) Migrations() []Migration {
	return r.migrations
}

var timestampPrefix = regexp.MustCompile(`^\d+_`)

// bareName strips the timestamp prefix: "20240101120000_create_users"
// resolves as "create_users" too.
func bareName(name string) string {
	return timestampPrefix.ReplaceAllString(name, "")
}

func matchesTarget(name, target string) bool {
	return strings.EqualFold(name, target) || strings.EqualFold(bareName(name), target)
}

// resolveTarget returns the position of the migration matching target,
// case-insensitively by full or bare name.
func (r *Registry) resolveTarget(target string) (int, error) {
	for i, m := range r.migrations {
		if matchesTarget(m.Name, target) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("Target migration not found: %s", target)
}

// pendingPlan selects the migrations to apply: everything past the
// current position (the most recently applied known migration) that is
// not itself applied, truncated after the target when one is given.
// A migration older than the current position is never applied out of
// order; it stays skipped.
func (r *Registry) pendingPlan(applied map[string]bool, target string) ([]Migration, error) {
	targetIdx := -1
	if target != "" {
		idx, err := r.resolveTarget(target)
		if err != nil {
			return nil, err
		}
		targetIdx = idx
	}

	position := -1
	for i, m := range r.migrations {
		if applied[m.Name] {
			position = i
		}
	}

	var plan []Migration
	for i, m := range r.migrations {
		if i <= position || applied[m.Name] {
			continue
		}
		if targetIdx >= 0 && i > targetIdx {
			break
		}
		plan = append(plan, m)
	}
	return plan, nil
}

// rollbackPlan selects the applied migrations strictly after target, in
// descending order. Migrations in that range that were never applied
// are skipped, not rolled back. An empty plan is a no-op, not an error.
func (r *Registry) rollbackPlan(applied map[string]bool, target string) ([]Migration, error) {
	targetIdx, err := r.resolveTarget(target)
	if err != nil {
		return nil, err
	}

	var plan []Migration
	for i := len(r.migrations) - 1; i > targetIdx; i-- {
		if applied[r.migrations[i].Name] {
			plan = append(plan, r.migrations[i])
		}
	}
	return plan, nil
}
