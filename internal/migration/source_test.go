package migration

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

func TestDirSourceLoadsSQLFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_index.up.sql":   {Data: []byte("-- requires: items\nCREATE INDEX idx_items_name\n  ON items(name);\n")},
		"sql/002_index.down.sql": {Data: []byte("DROP INDEX idx_items_name;")},
		"sql/001_seed.up.sql":    {Data: []byte("-- 初始数据\nINSERT INTO items(name) VALUES ('a');\nINSERT INTO items(name) VALUES ('b');\n")},
		"sql/README.md":          {Data: []byte("not a migration")},
		"sql/runner.go":          {Data: []byte("package x")},
	}

	ms, err := DirSource{FS: fsys, Dir: "sql"}.Migrations()
	if err != nil {
		t.Fatalf("Migrations error: %v", err)
	}
	if len(ms) != 2 || ms[0].Name != "001_seed" || ms[1].Name != "002_index" {
		t.Fatalf("migrations=%+v, want 001_seed, 002_index", ms)
	}
	if ms[0].Down != nil {
		t.Fatalf("001_seed has no down file, Down should be nil")
	}
	if len(ms[1].Requires) != 1 || ms[1].Requires[0] != "items" {
		t.Fatalf("requires=%v, want [items]", ms[1].Requires)
	}

	db := openItemsDB(t)
	runner := newTestRunner(db)
	ctx := context.Background()
	report, err := runner.ApplyPending(ctx, ms)
	if err != nil || report.Applied != 2 {
		t.Fatalf("report=%+v err=%v, want 2 applied", report, err)
	}
	var n int64
	db.Table("items").Count(&n)
	if n != 2 {
		t.Fatalf("items=%d, want 2 seeded rows", n)
	}
	if _, err := runner.RevertOne(ctx, ms[1]); err != nil {
		t.Fatalf("RevertOne error: %v", err)
	}
	if db.Migrator().HasIndex("items", "idx_items_name") {
		t.Fatalf("index should be dropped")
	}
}

func TestDirSourceRejectsDownWithoutUp(t *testing.T) {
	fsys := fstest.MapFS{
		"003_z.down.sql": {Data: []byte("DROP TABLE z;")},
	}
	if _, err := (DirSource{FS: fsys}).Migrations(); err == nil {
		t.Fatalf("down without up should fail")
	}
}

func TestDirSourceMissingDir(t *testing.T) {
	if _, err := NewOSDirSource(t.TempDir() + "/missing").Migrations(); err == nil {
		t.Fatalf("missing directory should fail")
	}
}

func TestParseScript(t *testing.T) {
	script := parseScript("-- Requires: users, expenses\n\nUPDATE users\nSET a = 1;\n-- comment\nUPDATE users SET b = 2\n")
	if len(script.statements) != 2 {
		t.Fatalf("statements=%q, want 2", script.statements)
	}
	if script.statements[0] != "UPDATE users\nSET a = 1;" {
		t.Fatalf("first=%q", script.statements[0])
	}
	if len(script.requires) != 2 || script.requires[1] != "expenses" {
		t.Fatalf("requires=%v", script.requires)
	}
}

func TestLoadMergesAndRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Migration{Name: "002_go", Up: failing("x")})
	reg.Register(Migration{Name: "001_go", Up: failing("x")})
	fsys := fstest.MapFS{"000_sql.up.sql": {Data: []byte("SELECT 1;")}}

	ms, err := Load(reg, DirSource{FS: fsys})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(ms) != 3 || ms[0].Name != "000_sql" || ms[2].Name != "002_go" {
		t.Fatalf("migrations=%+v, want sorted merge", ms)
	}

	dup := fstest.MapFS{"001_go.up.sql": {Data: []byte("SELECT 1;")}}
	if _, err := Load(reg, DirSource{FS: dup}); !errors.Is(err, ErrDuplicateMigration) {
		t.Fatalf("err=%v, want ErrDuplicateMigration", err)
	}
}

func TestRegistryPanicsOnInvalid(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Migration{Name: "001", Up: failing("x")})

	for _, m := range []Migration{
		{Name: "001", Up: failing("x")},
		{Name: "", Up: failing("x")},
		{Name: "002"},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("Register(%q) should panic", m.Name)
				}
			}()
			reg.Register(m)
		}()
	}
}
