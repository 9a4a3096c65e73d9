// Package disk implements the page I/O primitive backing the buffer pool:
// blocking reads and writes of fixed-size blocks addressed by page id.
package disk

import (
	"errors"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/ncw/directio"
)

// PageSize is the size of an individual page (ie the maximum number of bytes that the page can hold) - defaults to 4kb.
const PageSize int64 = directio.BlockSize

// Manager is the narrow contract the buffer pool holds on its backing store.
// Reads and writes are blocking and best-effort durable; allocation calls are
// identifier bookkeeping only.
type Manager interface {
	ReadPage(pageId int64, data []byte) error
	WritePage(pageId int64, data []byte) error
	AllocatePage() int64
	DeallocatePage(pageId int64)
	NumPages() int64
	Close() error
}

// FileManager is a Manager backed by a single database file on disk.
type FileManager struct {
	file       *os.File
	nextPageId int64
	size       int64
	mtx        sync.Mutex
}

// NewFileManager opens (or creates) the database file at the specified filePath.
// Returns an error if the file cannot be opened or its length is not
// page-aligned.
func NewFileManager(filePath string) (*FileManager, error) {
	// Create the necessary prerequisite directories.
	if idx := strings.LastIndex(filePath, "/"); idx != -1 {
		if err := os.MkdirAll(filePath[:idx], 0775); err != nil {
			return nil, err
		}
	}
	file, err := directio.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	size := info.Size()
	if size%PageSize != 0 {
		file.Close()
		return nil, errors.New("DB file has been corrupted")
	}
	return &FileManager{file: file, nextPageId: size / PageSize, size: size}, nil
}

// GetFileName returns the file name/path of the manager's backing file.
func (d *FileManager) GetFileName() string {
	return d.file.Name()
}

// ReadPage fills data with the on-disk contents of the given page.
// A page that was never written back reads as zeroes.
func (d *FileManager) ReadPage(pageId int64, data []byte) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	offset := pageId * PageSize
	if offset >= d.size {
		zero(data)
		return nil
	}
	block := directio.AlignedBlock(int(PageSize))
	if _, err := d.file.ReadAt(block, offset); err != nil {
		log.Fatalf("disk: read of page %d failed: %v", pageId, err)
	}
	copy(data, block)
	return nil
}

// WritePage writes data to the given page's position in the backing file.
func (d *FileManager) WritePage(pageId int64, data []byte) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	offset := pageId * PageSize
	block := directio.AlignedBlock(int(PageSize))
	copy(block, data)
	n, err := d.file.WriteAt(block, offset)
	if err != nil {
		log.Fatalf("disk: write of page %d failed: %v", pageId, err)
	}
	if offset+int64(n) > d.size {
		d.size = offset + int64(n)
	}
	return nil
}

// AllocatePage hands out the next unused page id.
func (d *FileManager) AllocatePage() int64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	pageId := d.nextPageId
	d.nextPageId++
	return pageId
}

// DeallocatePage releases a page id. Identifiers are not reused, so this is
// bookkeeping only.
func (d *FileManager) DeallocatePage(pageId int64) {}

// NumPages returns the number of pages currently backed by the file.
func (d *FileManager) NumPages() int64 {
	return d.size / PageSize
}

// Close closes the backing file.
func (d *FileManager) Close() error {
	return d.file.Close()
}

func zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
