package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/schemaflow/schemaflow/diff"
	"github.com/schemaflow/schemaflow/runner"
)

type migrationFile struct {
	Up   []diff.Operation `yaml:"up"`
	Down []diff.Operation `yaml:"down"`
}

// LoadMigrations reads every migration file under dir into a registry.
// A migration's name is its filename without the extension; the
// timestamp prefix in the filename orders the run. A missing directory
// means no migrations, not an error.
func LoadMigrations(dir string) (*runner.Registry, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return runner.NewRegistry(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %v", err)
	}

	var migrations []runner.Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		m, err := loadMigration(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})
	return runner.NewRegistry(migrations), nil
}

func loadMigration(path string) (runner.Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runner.Migration{}, fmt.Errorf("read migration %s: %v", path, err)
	}

	var mf migrationFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return runner.Migration{}, fmt.Errorf("parse migration %s: %v", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return runner.Migration{Name: name, Up: mf.Up, Down: mf.Down}, nil
}
