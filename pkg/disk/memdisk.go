package disk

import (
	"sync"

	"github.com/dsnet/golib/memfile"
)

// MemManager is a Manager backed by an in-memory file. It keeps tests and
// ephemeral indexes off the filesystem while preserving file semantics.
type MemManager struct {
	db         *memfile.File
	nextPageId int64
	size       int64
	mtx        sync.Mutex
}

// NewMemManager constructs an empty memory-backed Manager.
func NewMemManager() *MemManager {
	return &MemManager{db: memfile.New(make([]byte, 0))}
}

// ReadPage fills data with the stored contents of the given page.
// A page that was never written back reads as zeroes.
func (d *MemManager) ReadPage(pageId int64, data []byte) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	offset := pageId * PageSize
	if offset >= d.size {
		zero(data)
		return nil
	}
	if _, err := d.db.ReadAt(data, offset); err != nil {
		zero(data)
	}
	return nil
}

// WritePage writes data to the given page's position in the memory file.
func (d *MemManager) WritePage(pageId int64, data []byte) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	offset := pageId * PageSize
	if _, err := d.db.WriteAt(data, offset); err != nil {
		return err
	}
	if offset+PageSize > d.size {
		d.size = offset + PageSize
	}
	return nil
}

// AllocatePage hands out the next unused page id.
func (d *MemManager) AllocatePage() int64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	pageId := d.nextPageId
	d.nextPageId++
	return pageId
}

// DeallocatePage releases a page id. Identifiers are not reused, so this is
// bookkeeping only.
func (d *MemManager) DeallocatePage(pageId int64) {}

// NumPages returns the number of pages up to and including the highest page
// written so far.
func (d *MemManager) NumPages() int64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.size / PageSize
}

// Close releases nothing; the backing memory is garbage collected.
func (d *MemManager) Close() error {
	return nil
}
