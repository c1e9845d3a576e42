package internal

import (
	"path/filepath"
	"testing"

	"github.com/uma-oracle/dlogic/testutil"
)

func TestOpenDatabase_CreatesSchema(t *testing.T) {
	path := filepath.Join(testutil.CreateTempDir(t), "nested", "history.db")

	db, err := OpenDatabase(path)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer db.Close()

	for _, table := range []string{"conversations", "messages"} {
		if n := testutil.CountRows(t, db, table); n != 0 {
			t.Errorf("%s has %d rows, want 0", table, n)
		}
	}

	paths := pathsFor(filepath.Dir(path))
	if !paths.HistoryExists() {
		t.Error("database file was not created")
	}
}

func TestOpenDatabase_Memory(t *testing.T) {
	db, err := OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("OpenDatabase(:memory:) error = %v", err)
	}
	defer db.Close()

	if n := testutil.CountRows(t, db, "conversations"); n != 0 {
		t.Errorf("conversations has %d rows, want 0", n)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)

	for i := 0; i < 2; i++ {
		if err := Migrate(db); err != nil {
			t.Fatalf("Migrate() run %d error = %v", i+1, err)
		}
	}

	testutil.ExecSQL(t, db,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES ('c1', 't', 'x', 'x')`,
		`INSERT INTO messages (id, conversation_id, seq, role, content, created_at) VALUES ('m1', 'c1', 0, 'user', 'hi', 'x')`,
	)
	if _, err := db.Exec(`INSERT INTO messages (id, conversation_id, seq, role, content, created_at) VALUES ('m2', 'c1', 0, 'user', 'dup', 'x')`); err == nil {
		t.Error("duplicate (conversation_id, seq) should be rejected")
	}
}

func TestMigrate_AddsDLogicColumn(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)
	testutil.ExecSQL(t, db,
		`CREATE TABLE conversations (id TEXT PRIMARY KEY, title TEXT NOT NULL DEFAULT '', created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`CREATE TABLE messages (id TEXT PRIMARY KEY, conversation_id TEXT NOT NULL, seq INTEGER NOT NULL, role TEXT NOT NULL, content TEXT NOT NULL, created_at TEXT NOT NULL, prediction_json TEXT)`,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES ('old', 't', 'x', 'x')`,
		`INSERT INTO messages (id, conversation_id, seq, role, content, created_at) VALUES ('m1', 'old', 0, 'user', 'hi', 'x')`,
	)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	ok, err := hasColumn(db, "messages", "dlogic_json")
	if err != nil {
		t.Fatalf("hasColumn() error = %v", err)
	}
	if !ok {
		t.Fatal("messages.dlogic_json was not added")
	}
	if n := testutil.CountRows(t, db, "messages"); n != 1 {
		t.Errorf("messages has %d rows after migration, want 1", n)
	}

	if err := Migrate(db); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}
