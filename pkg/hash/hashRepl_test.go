package hash_test

import (
	"strings"
	"testing"

	"hashdb/pkg/concurrency"
	"hashdb/pkg/hash"
)

func setupRepl(t *testing.T) (*hash.HashIndex, *concurrency.Transaction) {
	t.Helper()
	index, err := hash.OpenMemTable()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { index.Close() })
	return index, concurrency.NewTransactionManager().Begin()
}

func TestHashRepl(t *testing.T) {
	t.Run("InsertFindRemove", testReplInsertFindRemove)
	t.Run("BadUsage", testReplBadUsage)
}

func testReplInsertFindRemove(t *testing.T) {
	t.Parallel()
	index, tx := setupRepl(t)
	if err := hash.HandleInsert(index, tx, "insert 7 100"); err != nil {
		t.Fatal(err)
	}
	output, err := hash.HandleFind(index, tx, "find 7")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output, "(7, 100)") {
		t.Fatalf("expected find output to contain (7, 100), got %q", output)
	}
	if err := hash.HandleRemove(index, tx, "remove 7 100"); err != nil {
		t.Fatal(err)
	}
	if _, err := hash.HandleFind(index, tx, "find 7"); err != hash.ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound after remove, got %v", err)
	}
	output, err = hash.HandleVerify(index, "verify")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output, "ok") {
		t.Fatalf("expected verify to report ok, got %q", output)
	}
	if output, err = hash.HandleDepth(index, "depth"); err != nil || !strings.Contains(output, "global depth") {
		t.Fatalf("expected depth output, got %q (err %v)", output, err)
	}
}

func testReplBadUsage(t *testing.T) {
	t.Parallel()
	index, tx := setupRepl(t)
	if err := hash.HandleInsert(index, tx, "insert 7"); err == nil {
		t.Fatal("expected usage error for malformed insert")
	}
	if err := hash.HandleInsert(index, tx, "insert seven 100"); err == nil {
		t.Fatal("expected parse error for non-numeric key")
	}
	if _, err := hash.HandleFind(index, tx, "find"); err == nil {
		t.Fatal("expected usage error for malformed find")
	}
	if err := hash.HandleRemove(index, tx, "remove 7"); err == nil {
		t.Fatal("expected usage error for malformed remove")
	}
}
