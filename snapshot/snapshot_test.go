package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersTable() Table {
	return Table{
		Schema: "public",
		Name:   "users",
		Columns: []Column{
			{
				Name:         "id",
				DataType:     "int4",
				Precision:    intPtr(32),
				Scale:        intPtr(0),
				IsPrimaryKey: true,
				IsIdentity:   true, IdentityGeneration: "by default",
			},
			{
				Name:     "email",
				DataType: "varchar",
				Length:   intPtr(255),
				Nullable: true,
				IsUnique: true, UniqueName: "uq_users_email",
			},
			{
				Name:     "role_id",
				DataType: "int4",
				Precision: intPtr(32), Scale: intPtr(0),
				Nullable:   true,
				ForeignKey: &ForeignKey{Name: "fk_users_role_id", RefSchema: "public", RefTable: "roles", RefColumn: "id"},
			},
		},
	}
}

func rolesTable() Table {
	return Table{
		Schema: "public",
		Name:   "roles",
		Columns: []Column{
			{Name: "id", DataType: "int4", Precision: intPtr(32), Scale: intPtr(0), IsPrimaryKey: true},
		},
	}
}

func TestSnapshotEqualityIsOrderIndependent(t *testing.T) {
	a := Snapshot{Tables: []Table{usersTable(), rolesTable()}}
	b := Snapshot{Tables: []Table{rolesTable(), usersTable()}}
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	// Permute columns within a table too.
	permuted := usersTable()
	permuted.Columns = []Column{permuted.Columns[2], permuted.Columns[0], permuted.Columns[1]}
	c := Snapshot{Tables: []Table{rolesTable(), permuted}}
	assert.True(t, a.Equal(c))
}

func TestSnapshotEqualityDetectsDifferences(t *testing.T) {
	base := Snapshot{Tables: []Table{usersTable(), rolesTable()}}

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"missing table", func(s *Snapshot) { s.Tables = s.Tables[:1] }},
		{"renamed table", func(s *Snapshot) { s.Tables[1].Name = "groups" }},
		{"different schema", func(s *Snapshot) { s.Tables[0].Schema = "audit" }},
		{"missing column", func(s *Snapshot) { s.Tables[0].Columns = s.Tables[0].Columns[:2] }},
		{"type change", func(s *Snapshot) { s.Tables[0].Columns[1].DataType = "text" }},
		{"length change", func(s *Snapshot) { s.Tables[0].Columns[1].Length = intPtr(100) }},
		{"nullability change", func(s *Snapshot) { s.Tables[0].Columns[1].Nullable = false }},
		{"default change", func(s *Snapshot) { s.Tables[0].Columns[1].Default = strPtr("'x'") }},
		{"identity change", func(s *Snapshot) { s.Tables[0].Columns[0].IsIdentity = false }},
		{"unique change", func(s *Snapshot) { s.Tables[0].Columns[1].IsUnique = false }},
		{"fk removed", func(s *Snapshot) { s.Tables[0].Columns[2].ForeignKey = nil }},
		{"fk retargeted", func(s *Snapshot) { s.Tables[0].Columns[2].ForeignKey.RefTable = "groups" }},
		{"fk rule change", func(s *Snapshot) { s.Tables[0].Columns[2].ForeignKey.OnDelete = "cascade" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := Snapshot{Tables: []Table{usersTable(), rolesTable()}}
			tt.mutate(&other)
			assert.False(t, base.Equal(other))
		})
	}
}

func TestConstraintNamesAreNotSemantic(t *testing.T) {
	// A live schema's auto-generated constraint names must not make it
	// unequal to the declared model.
	a := Snapshot{Tables: []Table{usersTable()}}
	b := Snapshot{Tables: []Table{usersTable()}}
	b.Tables[0].Columns[1].UniqueName = "users_email_key"
	b.Tables[0].Columns[2].ForeignKey.Name = "users_role_id_fkey"
	assert.True(t, a.Equal(b))
}

func TestBuild(t *testing.T) {
	descriptors := []TableDescriptor{
		{
			Name: "Users",
			Columns: []ColumnDescriptor{
				{Name: "ID", Type: "integer", PrimaryKey: true, Identity: true},
				{Name: "Email", Type: "character varying(255)", Unique: true},
				{Name: "Role_ID", Type: "int4", References: &ReferenceDescriptor{Table: "Roles", Column: "ID", OnDelete: "CASCADE"}},
				{Name: "created_at", Type: "timestamptz", NotNull: true, Default: "now()"},
			},
		},
	}

	snap, err := Build(descriptors)
	require.NoError(t, err)
	require.Len(t, snap.Tables, 1)

	users, ok := snap.Table("public", "users")
	require.True(t, ok, "schema defaults to public, identifiers normalized")
	require.Len(t, users.Columns, 4)

	id, _ := users.Column("id")
	assert.Equal(t, "int4", id.DataType)
	assert.False(t, id.Nullable, "primary key columns are not nullable")
	assert.True(t, id.IsIdentity)
	assert.Equal(t, "by default", id.IdentityGeneration)
	require.NotNil(t, id.Precision)
	assert.Equal(t, 32, *id.Precision)

	email, _ := users.Column("email")
	assert.Equal(t, "varchar", email.DataType)
	require.NotNil(t, email.Length)
	assert.Equal(t, 255, *email.Length)
	assert.True(t, email.Nullable)
	assert.True(t, email.IsUnique)

	roleID, _ := users.Column("role_id")
	require.NotNil(t, roleID.ForeignKey)
	assert.Equal(t, "public", roleID.ForeignKey.RefSchema)
	assert.Equal(t, "roles", roleID.ForeignKey.RefTable)
	assert.Equal(t, "id", roleID.ForeignKey.RefColumn)
	assert.Equal(t, "cascade", roleID.ForeignKey.OnDelete)

	createdAt, _ := users.Column("created_at")
	assert.False(t, createdAt.Nullable)
	require.NotNil(t, createdAt.Default)
	assert.Equal(t, "current_timestamp", *createdAt.Default)
}

func TestBuildRejectsDuplicateTables(t *testing.T) {
	_, err := Build([]TableDescriptor{
		{Name: "users"},
		{Name: "USERS", Schema: "public"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table")
}
