package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/schemaflow/schemaflow/snapshot"
)

type yamlFile struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name    string       `yaml:"name"`
	Schema  string       `yaml:"schema"`
	Columns []yamlColumn `yaml:"columns"`
}

type yamlColumn struct {
	Name               string         `yaml:"name"`
	Type               string         `yaml:"type"`
	NotNull            bool           `yaml:"not_null"`
	Default            string         `yaml:"default"`
	Primary            bool           `yaml:"primary"`
	Identity           bool           `yaml:"identity"`
	IdentityGeneration string         `yaml:"identity_generation"`
	Unique             bool           `yaml:"unique"`
	References         *yamlReference `yaml:"references"`
}

type yamlReference struct {
	Schema   string `yaml:"schema"`
	Table    string `yaml:"table"`
	Column   string `yaml:"column"`
	OnUpdate string `yaml:"on_update"`
	OnDelete string `yaml:"on_delete"`
}

// LoadDescriptors reads a declarative schema file into the descriptor
// list the snapshot builder consumes. This is the bundled metadata
// source; any provider producing the same descriptors plugs in the
// same way.
func LoadDescriptors(filename string) ([]snapshot.TableDescriptor, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}

	var descriptors []snapshot.TableDescriptor
	for _, t := range yf.Tables {
		d := snapshot.TableDescriptor{
			Schema: t.Schema,
			Name:   t.Name,
		}
		for _, c := range t.Columns {
			cd := snapshot.ColumnDescriptor{
				Name:               c.Name,
				Type:               c.Type,
				NotNull:            c.NotNull,
				Default:            c.Default,
				PrimaryKey:         c.Primary,
				Identity:           c.Identity,
				IdentityGeneration: c.IdentityGeneration,
				Unique:             c.Unique,
			}
			if c.References != nil {
				cd.References = &snapshot.ReferenceDescriptor{
					Schema:   c.References.Schema,
					Table:    c.References.Table,
					Column:   c.References.Column,
					OnUpdate: c.References.OnUpdate,
					OnDelete: c.References.OnDelete,
				}
			}
			d.Columns = append(d.Columns, cd)
		}
		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

// LoadModelSnapshot is the metadata-source contract in one call:
// declarative schema file in, normalized snapshot out.
func LoadModelSnapshot(filename string) (snapshot.Snapshot, error) {
	descriptors, err := LoadDescriptors(filename)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return snapshot.Build(descriptors)
}
