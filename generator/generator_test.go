package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/diff"
)

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func TestEmitDDL(t *testing.T) {
	cases := []struct {
		name string
		op   diff.Operation
		want string
	}{
		{
			"create schema",
			diff.Operation{Type: diff.CreateSchema, Schema: "app"},
			`CREATE SCHEMA IF NOT EXISTS "app";`,
		},
		{
			"create table",
			diff.Operation{Type: diff.CreateTable, Schema: "public", Table: "users"},
			`CREATE TABLE "public"."users" ();`,
		},
		{
			"add plain nullable column",
			diff.Operation{Type: diff.AddColumn, Schema: "public", Table: "users", Column: "bio", SQLType: "text", Nullable: true},
			`ALTER TABLE "public"."users" ADD COLUMN "bio" text;`,
		},
		{
			"add identity primary key",
			diff.Operation{Type: diff.AddColumn, Schema: "public", Table: "users", Column: "id", SQLType: "int4", Identity: true, IdentityGeneration: "by default", PrimaryKey: true},
			`ALTER TABLE "public"."users" ADD COLUMN "id" int4 GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY;`,
		},
		{
			"add always-generated identity",
			diff.Operation{Type: diff.AddColumn, Schema: "public", Table: "users", Column: "id", SQLType: "int8", Identity: true, IdentityGeneration: "always", PrimaryKey: true},
			`ALTER TABLE "public"."users" ADD COLUMN "id" int8 GENERATED ALWAYS AS IDENTITY PRIMARY KEY;`,
		},
		{
			"add not null column with default",
			diff.Operation{Type: diff.AddColumn, Schema: "public", Table: "users", Column: "created_at", SQLType: "timestamptz", Default: strp("now()")},
			`ALTER TABLE "public"."users" ADD COLUMN "created_at" timestamptz NOT NULL DEFAULT now();`,
		},
		{
			"add varchar with length",
			diff.Operation{Type: diff.AddColumn, Schema: "public", Table: "users", Column: "email", SQLType: "varchar", Length: intp(255), Nullable: true},
			`ALTER TABLE "public"."users" ADD COLUMN "email" varchar(255);`,
		},
		{
			"drop table",
			diff.Operation{Type: diff.DropTable, Schema: "public", Table: "users"},
			`DROP TABLE IF EXISTS "public"."users";`,
		},
		{
			"drop column",
			diff.Operation{Type: diff.DropColumn, Schema: "public", Table: "users", Column: "legacy"},
			`ALTER TABLE "public"."users" DROP COLUMN "legacy";`,
		},
		{
			"alter type to numeric",
			diff.Operation{Type: diff.AlterColumnType, Schema: "public", Table: "users", Column: "balance", SQLType: "numeric", Precision: intp(12), Scale: intp(2)},
			`ALTER TABLE "public"."users" ALTER COLUMN "balance" TYPE numeric(12,2);`,
		},
		{
			"alter type implied params not rendered",
			diff.Operation{Type: diff.AlterColumnType, Schema: "public", Table: "users", Column: "n", SQLType: "int4", Precision: intp(32), Scale: intp(0)},
			`ALTER TABLE "public"."users" ALTER COLUMN "n" TYPE int4;`,
		},
		{
			"alter type to explicit datetime precision",
			diff.Operation{Type: diff.AlterColumnType, Schema: "public", Table: "events", Column: "at", SQLType: "timestamp", DatetimePrecision: intp(3)},
			`ALTER TABLE "public"."events" ALTER COLUMN "at" TYPE timestamp(3);`,
		},
		{
			"alter type default datetime precision not rendered",
			diff.Operation{Type: diff.AlterColumnType, Schema: "public", Table: "events", Column: "at", SQLType: "timestamptz", DatetimePrecision: intp(6)},
			`ALTER TABLE "public"."events" ALTER COLUMN "at" TYPE timestamptz;`,
		},
		{
			"add column with explicit datetime precision",
			diff.Operation{Type: diff.AddColumn, Schema: "public", Table: "events", Column: "at", SQLType: "timestamptz", DatetimePrecision: intp(3), Nullable: true},
			`ALTER TABLE "public"."events" ADD COLUMN "at" timestamptz(3);`,
		},
		{
			"date precision zero not rendered",
			diff.Operation{Type: diff.AlterColumnType, Schema: "public", Table: "events", Column: "day", SQLType: "date", DatetimePrecision: intp(0)},
			`ALTER TABLE "public"."events" ALTER COLUMN "day" TYPE date;`,
		},
		{
			"alter type double precision",
			diff.Operation{Type: diff.AlterColumnType, Schema: "public", Table: "users", Column: "ratio", SQLType: "double", Precision: intp(53)},
			`ALTER TABLE "public"."users" ALTER COLUMN "ratio" TYPE double precision;`,
		},
		{
			"set not null",
			diff.Operation{Type: diff.AlterNullability, Schema: "public", Table: "users", Column: "email", Nullable: false},
			`ALTER TABLE "public"."users" ALTER COLUMN "email" SET NOT NULL;`,
		},
		{
			"drop not null",
			diff.Operation{Type: diff.AlterNullability, Schema: "public", Table: "users", Column: "email", Nullable: true},
			`ALTER TABLE "public"."users" ALTER COLUMN "email" DROP NOT NULL;`,
		},
		{
			"set default",
			diff.Operation{Type: diff.SetDefault, Schema: "public", Table: "users", Column: "flag", Default: strp("false")},
			`ALTER TABLE "public"."users" ALTER COLUMN "flag" SET DEFAULT false;`,
		},
		{
			"drop default",
			diff.Operation{Type: diff.DropDefault, Schema: "public", Table: "users", Column: "flag"},
			`ALTER TABLE "public"."users" ALTER COLUMN "flag" DROP DEFAULT;`,
		},
		{
			"add unique",
			diff.Operation{Type: diff.AddUnique, Schema: "public", Table: "users", Column: "email", Constraint: "uq_users_email"},
			`ALTER TABLE "public"."users" ADD CONSTRAINT "uq_users_email" UNIQUE ("email");`,
		},
		{
			"add unique without a name",
			diff.Operation{Type: diff.AddUnique, Schema: "public", Table: "users", Column: "email"},
			`ALTER TABLE "public"."users" ADD CONSTRAINT "uq_users_email" UNIQUE ("email");`,
		},
		{
			"drop constraint",
			diff.Operation{Type: diff.DropConstraint, Schema: "public", Table: "users", Constraint: "fk_users_role_id"},
			`ALTER TABLE "public"."users" DROP CONSTRAINT "fk_users_role_id";`,
		},
		{
			"add foreign key",
			diff.Operation{Type: diff.AddForeignKey, Schema: "public", Table: "users", Column: "role_id", Constraint: "fk_users_role_id", RefSchema: "public", RefTable: "roles", RefColumn: "id"},
			`ALTER TABLE "public"."users" ADD CONSTRAINT "fk_users_role_id" FOREIGN KEY ("role_id") REFERENCES "public"."roles" ("id");`,
		},
		{
			"add foreign key with rules",
			diff.Operation{Type: diff.AddForeignKey, Schema: "public", Table: "users", Column: "role_id", Constraint: "fk_users_role_id", RefSchema: "public", RefTable: "roles", RefColumn: "id", OnUpdate: "restrict", OnDelete: "cascade"},
			`ALTER TABLE "public"."users" ADD CONSTRAINT "fk_users_role_id" FOREIGN KEY ("role_id") REFERENCES "public"."roles" ("id") ON UPDATE RESTRICT ON DELETE CASCADE;`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EmitDDL(tc.op)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEmitDDLIsDeterministic(t *testing.T) {
	op := diff.Operation{Type: diff.AddColumn, Schema: "public", Table: "users", Column: "email", SQLType: "varchar", Length: intp(255), Nullable: true}
	first, err := EmitDDL(op)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		got, err := EmitDDL(op)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestEmitDDLRejectsEmptySetDefault(t *testing.T) {
	_, err := EmitDDL(diff.Operation{Type: diff.SetDefault, Schema: "public", Table: "users", Column: "flag"})
	assert.Error(t, err)
}

func TestEmitAllStopsOnFirstError(t *testing.T) {
	_, err := EmitAll([]diff.Operation{
		{Type: diff.CreateTable, Schema: "public", Table: "users"},
		{Type: diff.SetDefault, Schema: "public", Table: "users", Column: "flag"},
	})
	assert.Error(t, err)
}
