package hash_test

import (
	"path/filepath"
	"testing"

	"hashdb/pkg/hash"
)

// setupIndex creates and opens an empty file-backed HashIndex.
func setupIndex(t *testing.T) (*hash.HashIndex, string) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	index, err := hash.OpenTable(dbFile)
	if err != nil {
		t.Fatal("Failed to create hash index:", err)
	}
	return index, dbFile
}

// closeAndReopen closes and reopens the index, forcing its data through the
// backing file.
func closeAndReopen(t *testing.T, index *hash.HashIndex, dbFile string) *hash.HashIndex {
	t.Helper()
	if err := index.Close(); err != nil {
		t.Fatal("Failed to close hash index:", err)
	}
	reopened, err := hash.OpenTable(dbFile)
	if err != nil {
		t.Fatal("Failed to reopen hash index:", err)
	}
	return reopened
}

func TestHashIndex(t *testing.T) {
	t.Run("Persistence", testIndexPersistence)
	t.Run("PersistenceAfterSplits", testIndexPersistenceAfterSplits)
	t.Run("MemTable", testMemTable)
}

func testIndexPersistence(t *testing.T) {
	t.Parallel()
	index, dbFile := setupIndex(t)
	for key := int64(0); key < 50; key++ {
		if err := index.GetTable().Insert(nil, key, key*3); err != nil {
			t.Fatal(err)
		}
	}
	index = closeAndReopen(t, index, dbFile)
	defer index.Close()
	for key := int64(0); key < 50; key++ {
		values, err := index.GetTable().GetValue(nil, key)
		if err != nil {
			t.Fatal(err)
		}
		if len(values) != 1 || values[0] != key*3 {
			t.Fatalf("expected [%d] for key %d after reopen, got %v", key*3, key, values)
		}
	}
}

func testIndexPersistenceAfterSplits(t *testing.T) {
	t.Parallel()
	index, dbFile := setupIndex(t)
	// Enough entries to force the directory past depth 0.
	const n = 2000
	for key := int64(0); key < n; key++ {
		if err := index.GetTable().Insert(nil, key, key); err != nil {
			t.Fatal(err)
		}
	}
	depthBefore, err := index.GetTable().GetGlobalDepth()
	if err != nil {
		t.Fatal(err)
	}
	if depthBefore == 0 {
		t.Fatal("expected the workload to grow the directory")
	}
	index = closeAndReopen(t, index, dbFile)
	defer index.Close()
	depthAfter, err := index.GetTable().GetGlobalDepth()
	if err != nil {
		t.Fatal(err)
	}
	if depthAfter != depthBefore {
		t.Fatalf("expected global depth %d after reopen, got %d", depthBefore, depthAfter)
	}
	if err := index.GetTable().VerifyIntegrity(); err != nil {
		t.Fatal("integrity violated after reopen:", err)
	}
	for key := int64(0); key < n; key += 97 {
		values, err := index.GetTable().GetValue(nil, key)
		if err != nil {
			t.Fatal(err)
		}
		if len(values) != 1 || values[0] != key {
			t.Fatalf("expected [%d] for key %d after reopen, got %v", key, key, values)
		}
	}
}

func testMemTable(t *testing.T) {
	t.Parallel()
	index, err := hash.OpenMemTable()
	if err != nil {
		t.Fatal(err)
	}
	defer index.Close()
	if err := index.GetTable().Insert(nil, 1, 2); err != nil {
		t.Fatal(err)
	}
	values, err := index.GetTable().GetValue(nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 1 || values[0] != 2 {
		t.Fatalf("expected [2], got %v", values)
	}
}
