package diff

type OperationType string

const (
	CreateSchema     OperationType = "CREATE_SCHEMA"
	CreateTable      OperationType = "CREATE_TABLE"
	AddColumn        OperationType = "ADD_COLUMN"
	DropTable        OperationType = "DROP_TABLE"
	DropColumn       OperationType = "DROP_COLUMN"
	AlterColumnType  OperationType = "ALTER_COLUMN_TYPE"
	AlterNullability OperationType = "ALTER_NULLABILITY"
	SetDefault       OperationType = "SET_DEFAULT"
	DropDefault      OperationType = "DROP_DEFAULT"
	AddUnique        OperationType = "ADD_UNIQUE"
	DropConstraint   OperationType = "DROP_CONSTRAINT"
	AddForeignKey    OperationType = "ADD_FOREIGN_KEY"
)

// Operation is one atomic schema-change intent prior to SQL rendering.
// Each variant carries only the fields relevant to it; the rest stay at
// their zero value. Operations are immutable once produced and
// serialize to YAML as migration file entries.
type Operation struct {
	Type   OperationType `yaml:"type"`
	Schema string        `yaml:"schema,omitempty"`
	Table  string        `yaml:"table,omitempty"`
	Column string        `yaml:"column,omitempty"`

	// ADD_COLUMN, ALTER_COLUMN_TYPE
	SQLType           string `yaml:"sql_type,omitempty"`
	Length            *int   `yaml:"length,omitempty"`
	Precision         *int   `yaml:"precision,omitempty"`
	Scale             *int   `yaml:"scale,omitempty"`
	DatetimePrecision *int   `yaml:"datetime_precision,omitempty"`

	// ADD_COLUMN, ALTER_NULLABILITY
	Nullable bool `yaml:"nullable,omitempty"`

	// ADD_COLUMN, SET_DEFAULT
	Default *string `yaml:"default,omitempty"`

	// ADD_COLUMN
	PrimaryKey         bool   `yaml:"primary_key,omitempty"`
	Identity           bool   `yaml:"identity,omitempty"`
	IdentityGeneration string `yaml:"identity_generation,omitempty"`

	// ADD_UNIQUE, DROP_CONSTRAINT, ADD_FOREIGN_KEY
	Constraint string `yaml:"constraint,omitempty"`

	// ADD_FOREIGN_KEY
	RefSchema string `yaml:"ref_schema,omitempty"`
	RefTable  string `yaml:"ref_table,omitempty"`
	RefColumn string `yaml:"ref_column,omitempty"`
	OnUpdate  string `yaml:"on_update,omitempty"`
	OnDelete  string `yaml:"on_delete,omitempty"`
}

// TableKey identifies the table an operation targets.
func (op Operation) TableKey() string {
	return op.Schema + "." + op.Table
}

// RefTableKey identifies the table an ADD_FOREIGN_KEY points at.
func (op Operation) RefTableKey() string {
	return op.RefSchema + "." + op.RefTable
}
