package hash_test

import (
	"sync"
	"testing"

	"hashdb/pkg/buffer"
	"hashdb/pkg/disk"
	"hashdb/pkg/hash"
)

func TestHashTableConcurrency(t *testing.T) {
	t.Run("ParallelInserts", testParallelInserts)
	t.Run("MixedReadersWriters", testMixedReadersWriters)
	t.Run("ParallelRemoves", testParallelRemoves)
}

// Disjoint key ranges inserted from many goroutines must all survive, and the
// directory must stay structurally sound through the concurrent splits.
func testParallelInserts(t *testing.T) {
	t.Parallel()
	pool := buffer.New(32, disk.NewMemManager())
	table, err := hash.NewHashTable(pool)
	if err != nil {
		t.Fatal(err)
	}
	const workers = 8
	const perWorker = 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < perWorker; i++ {
				key := base*perWorker + i
				if err := table.Insert(nil, key, key*10); err != nil {
					t.Errorf("insert of key %d failed: %v", key, err)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()
	if t.Failed() {
		return
	}
	for key := int64(0); key < workers*perWorker; key++ {
		values, err := table.GetValue(nil, key)
		if err != nil {
			t.Fatal(err)
		}
		if len(values) != 1 || values[0] != key*10 {
			t.Fatalf("expected [%d] for key %d, got %v", key*10, key, values)
		}
	}
	if err := table.VerifyIntegrity(); err != nil {
		t.Fatal("integrity violated after concurrent inserts:", err)
	}
}

// Readers run against a live write stream; every lookup must observe either
// absence or the exact inserted value, never a torn entry.
func testMixedReadersWriters(t *testing.T) {
	t.Parallel()
	pool := buffer.New(32, disk.NewMemManager())
	table, err := hash.NewHashTable(pool)
	if err != nil {
		t.Fatal(err)
	}
	const n = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for key := int64(0); key < n; key++ {
			if err := table.Insert(nil, key, key+1000); err != nil {
				t.Errorf("insert of key %d failed: %v", key, err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for pass := 0; pass < 4; pass++ {
			for key := int64(0); key < n; key++ {
				values, err := table.GetValue(nil, key)
				if err != nil {
					t.Errorf("get of key %d failed: %v", key, err)
					return
				}
				if len(values) > 0 && values[0] != key+1000 {
					t.Errorf("key %d: observed torn value %d", key, values[0])
					return
				}
			}
		}
	}()
	wg.Wait()
}

// Concurrent removes empty buckets from many goroutines at once; the merge
// cascades must leave a fully collapsed, consistent directory.
func testParallelRemoves(t *testing.T) {
	t.Parallel()
	pool := buffer.New(32, disk.NewMemManager())
	table, err := hash.NewHashTable(pool)
	if err != nil {
		t.Fatal(err)
	}
	const workers = 8
	const perWorker = 100
	for key := int64(0); key < workers*perWorker; key++ {
		if err := table.Insert(nil, key, key); err != nil {
			t.Fatal(err)
		}
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < perWorker; i++ {
				key := base*perWorker + i
				if err := table.Remove(nil, key, key); err != nil {
					t.Errorf("remove of key %d failed: %v", key, err)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()
	if t.Failed() {
		return
	}
	for key := int64(0); key < workers*perWorker; key++ {
		values, err := table.GetValue(nil, key)
		if err != nil {
			t.Fatal(err)
		}
		if len(values) != 0 {
			t.Fatalf("expected key %d to be gone, got %v", key, values)
		}
	}
	if err := table.VerifyIntegrity(); err != nil {
		t.Fatal("integrity violated after concurrent removes:", err)
	}
}
