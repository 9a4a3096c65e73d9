package disk_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"hashdb/pkg/disk"
)

func TestMemManager(t *testing.T) {
	t.Run("ReadUnwrittenIsZero", testMemReadUnwrittenIsZero)
	t.Run("WriteReadRoundTrip", testMemWriteReadRoundTrip)
	t.Run("AllocateSequence", testMemAllocateSequence)
}

func testMemReadUnwrittenIsZero(t *testing.T) {
	t.Parallel()
	dm := disk.NewMemManager()
	data := make([]byte, disk.PageSize)
	data[0] = 0xFF
	if err := dm.ReadPage(7, data); err != nil {
		t.Fatal(err)
	}
	if data[0] != 0 {
		t.Fatal("reading a never-written page should yield zeroes")
	}
	if dm.NumPages() != 0 {
		t.Fatalf("expected 0 pages, got %d", dm.NumPages())
	}
}

func testMemWriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	dm := disk.NewMemManager()
	want := make([]byte, disk.PageSize)
	for i := range want {
		want[i] = byte(i)
	}
	if err := dm.WritePage(3, want); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, disk.PageSize)
	if err := dm.ReadPage(3, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("read data does not match written data")
	}
	// Writing page 3 extends the file through page 3.
	if dm.NumPages() != 4 {
		t.Fatalf("expected 4 pages, got %d", dm.NumPages())
	}
}

func testMemAllocateSequence(t *testing.T) {
	t.Parallel()
	dm := disk.NewMemManager()
	for want := int64(0); want < 3; want++ {
		if got := dm.AllocatePage(); got != want {
			t.Fatalf("expected page id %d, got %d", want, got)
		}
	}
	// Deallocation is bookkeeping only; ids are never reused.
	dm.DeallocatePage(1)
	if got := dm.AllocatePage(); got != 3 {
		t.Fatalf("expected page id 3, got %d", got)
	}
}

func TestFileManager(t *testing.T) {
	t.Run("WriteReadRoundTrip", testFileWriteReadRoundTrip)
	t.Run("ReopenKeepsPages", testFileReopenKeepsPages)
}

func testFileWriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	dm, err := disk.NewFileManager(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer dm.Close()
	want := make([]byte, disk.PageSize)
	copy(want, []byte("on disk"))
	if err := dm.WritePage(0, want); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, disk.PageSize)
	if err := dm.ReadPage(0, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("read data does not match written data")
	}
}

func testFileReopenKeepsPages(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.db")
	dm, err := disk.NewFileManager(path)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]byte, disk.PageSize)
	copy(want, []byte("durable"))
	if err := dm.WritePage(1, want); err != nil {
		t.Fatal(err)
	}
	if err := dm.Close(); err != nil {
		t.Fatal(err)
	}
	reopened, err := disk.NewFileManager(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if reopened.NumPages() != 2 {
		t.Fatalf("expected 2 pages after reopen, got %d", reopened.NumPages())
	}
	// Allocation resumes past the pages already in the file.
	if got := reopened.AllocatePage(); got != 2 {
		t.Fatalf("expected page id 2, got %d", got)
	}
	got := make([]byte, disk.PageSize)
	if err := reopened.ReadPage(1, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("page contents lost across reopen")
	}
}
