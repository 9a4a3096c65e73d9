// Package buffer implements the buffer pool: a fixed set of in-memory frames
// that cache disk pages, an LRU policy for choosing eviction victims, and the
// pin/unpin protocol callers use to hold pages safely.
package buffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ncw/directio"

	"hashdb/pkg/disk"
	"hashdb/pkg/list"
)

// PageSize mirrors the disk block size; every frame holds exactly this many bytes.
const PageSize int64 = disk.PageSize

var (
	// ErrRanOutOfPages is returned when every frame is pinned and no page can
	// be brought into memory.
	ErrRanOutOfPages = errors.New("no available frames; the buffer pool is full")
	// ErrPageNotFound is returned when the requested page is not resident.
	ErrPageNotFound = errors.New("page not found in the buffer pool")
	// ErrNotPinned is returned when unpinning a page whose pin count is already zero.
	ErrNotPinned = errors.New("page is not pinned")
	// ErrPagePinned is returned when deleting a page that still has active references.
	ErrPagePinned = errors.New("page is pinned and cannot be deleted")
)

// BufferPool manages the frames that cache disk pages. It may be one of
// several parallel instances striping a shared page id space; a standalone
// pool is simply an instance with numInstances == 1.
type BufferPool struct {
	poolSize      int64
	numInstances  int64
	instanceIndex int64
	nextPageId    int64
	frames        []*Page
	freeList      *list.List[int64]
	pageTable     map[int64]int64
	replacer      *LRUReplacer
	diskManager   disk.Manager
	mtx           sync.Mutex
}

// New constructs a standalone BufferPool with the given number of frames over
// the given disk manager.
func New(poolSize int64, diskManager disk.Manager) *BufferPool {
	return NewInstance(poolSize, 1, 0, diskManager)
}

// NewInstance constructs one instance of a parallel buffer pool. The instance
// only ever allocates page ids congruent to instanceIndex modulo numInstances.
func NewInstance(poolSize int64, numInstances int64, instanceIndex int64, diskManager disk.Manager) *BufferPool {
	pool := &BufferPool{
		poolSize:      poolSize,
		numInstances:  numInstances,
		instanceIndex: instanceIndex,
		nextPageId:    instanceIndex,
		frames:        make([]*Page, poolSize),
		freeList:      list.NewList[int64](),
		pageTable:     make(map[int64]int64, poolSize),
		replacer:      NewLRUReplacer(poolSize),
		diskManager:   diskManager,
	}
	// One aligned arena sliced into frames keeps every page usable for
	// direct I/O.
	arena := directio.AlignedBlock(int(poolSize * PageSize))
	for i := int64(0); i < poolSize; i++ {
		pool.frames[i] = &Page{
			pool: pool,
			id:   NoPage,
			data: arena[i*PageSize : (i+1)*PageSize],
		}
		pool.freeList.PushTail(i)
	}
	// Resume allocation past any pages already on disk, staying on this
	// instance's stride.
	if n := diskManager.NumPages(); n > instanceIndex {
		pool.nextPageId = n + (numInstances-(n-instanceIndex)%numInstances)%numInstances
	}
	return pool
}

// GetDiskManager returns the disk manager backing this pool.
func (pool *BufferPool) GetDiskManager() disk.Manager {
	return pool.diskManager
}

// getVictimFrame finds a frame to hold a new page, preferring the free list
// over evicting a cached page. A dirty victim is written back first. Returns
// an error when every frame is pinned. Caller must hold pool.mtx.
func (pool *BufferPool) getVictimFrame() (int64, error) {
	if link := pool.freeList.PeekHead(); link != nil {
		link.PopSelf()
		return link.GetValue(), nil
	}
	frameId, found := pool.replacer.Victim()
	if !found {
		return 0, ErrRanOutOfPages
	}
	page := pool.frames[frameId]
	if page.dirty {
		if err := pool.diskManager.WritePage(page.id, page.data); err != nil {
			return 0, err
		}
		page.dirty = false
	}
	delete(pool.pageTable, page.id)
	return frameId, nil
}

// FetchPage returns the requested page pinned, reading it from disk if it is
// not already resident. Returns an error when every frame is pinned by other
// callers.
func (pool *BufferPool) FetchPage(pageId int64) (*Page, error) {
	pool.mtx.Lock()
	defer pool.mtx.Unlock()
	if frameId, found := pool.pageTable[pageId]; found {
		page := pool.frames[frameId]
		page.pinCount.Add(1)
		pool.replacer.Pin(frameId)
		return page, nil
	}
	frameId, err := pool.getVictimFrame()
	if err != nil {
		return nil, err
	}
	page := pool.frames[frameId]
	page.zeroData()
	if err := pool.diskManager.ReadPage(pageId, page.data); err != nil {
		page.id = NoPage
		pool.freeList.PushTail(frameId)
		return nil, err
	}
	page.id = pageId
	page.dirty = false
	page.pinCount.Store(1)
	pool.pageTable[pageId] = frameId
	pool.replacer.Pin(frameId)
	return page, nil
}

// NewPage allocates a fresh page id, places an empty page for it in a frame,
// and returns the page pinned. The page is not written to disk until it is
// flushed or evicted dirty.
func (pool *BufferPool) NewPage() (*Page, error) {
	pool.mtx.Lock()
	defer pool.mtx.Unlock()
	frameId, err := pool.getVictimFrame()
	if err != nil {
		return nil, err
	}
	pageId := pool.allocatePageId()
	page := pool.frames[frameId]
	page.zeroData()
	page.id = pageId
	page.dirty = false
	page.pinCount.Store(1)
	pool.pageTable[pageId] = frameId
	pool.replacer.Pin(frameId)
	return page, nil
}

// allocatePageId hands out the next page id on this instance's stride, so
// that an id always routes back to its allocating instance modulo the
// instance count. Caller must hold pool.mtx.
func (pool *BufferPool) allocatePageId() int64 {
	pageId := pool.nextPageId
	pool.nextPageId += pool.numInstances
	return pageId
}

// UnpinPage drops one reference to a page, marking it dirty if the caller
// modified it. When the pin count reaches zero the page becomes evictable.
func (pool *BufferPool) UnpinPage(pageId int64, dirty bool) error {
	pool.mtx.Lock()
	defer pool.mtx.Unlock()
	frameId, found := pool.pageTable[pageId]
	if !found {
		return ErrPageNotFound
	}
	page := pool.frames[frameId]
	if page.pinCount.Load() <= 0 {
		return ErrNotPinned
	}
	page.dirty = page.dirty || dirty
	if page.pinCount.Add(-1) == 0 {
		pool.replacer.Unpin(frameId)
	}
	return nil
}

// FlushPage writes a resident page back to disk and clears its dirty flag.
// The page may still be pinned.
func (pool *BufferPool) FlushPage(pageId int64) error {
	pool.mtx.Lock()
	defer pool.mtx.Unlock()
	frameId, found := pool.pageTable[pageId]
	if !found {
		return ErrPageNotFound
	}
	page := pool.frames[frameId]
	if err := pool.diskManager.WritePage(pageId, page.data); err != nil {
		return err
	}
	page.dirty = false
	return nil
}

// FlushAllPages writes every dirty resident page back to disk.
func (pool *BufferPool) FlushAllPages() error {
	pool.mtx.Lock()
	defer pool.mtx.Unlock()
	for pageId, frameId := range pool.pageTable {
		page := pool.frames[frameId]
		if !page.dirty {
			continue
		}
		if err := pool.diskManager.WritePage(pageId, page.data); err != nil {
			return err
		}
		page.dirty = false
	}
	return nil
}

// DeletePage evicts a page from the pool and releases its id. Deleting a page
// that is not resident succeeds vacuously; deleting a pinned page fails.
func (pool *BufferPool) DeletePage(pageId int64) error {
	pool.mtx.Lock()
	defer pool.mtx.Unlock()
	frameId, found := pool.pageTable[pageId]
	if !found {
		return nil
	}
	page := pool.frames[frameId]
	if page.pinCount.Load() > 0 {
		return ErrPagePinned
	}
	if page.dirty {
		if err := pool.diskManager.WritePage(pageId, page.data); err != nil {
			return err
		}
	}
	delete(pool.pageTable, pageId)
	page.id = NoPage
	page.dirty = false
	pool.replacer.Pin(frameId)
	pool.freeList.PushTail(frameId)
	pool.diskManager.DeallocatePage(pageId)
	return nil
}

// Close flushes every resident page and closes the disk manager. It fails if
// any page is still pinned.
func (pool *BufferPool) Close() error {
	pool.mtx.Lock()
	for _, frameId := range pool.pageTable {
		if pool.frames[frameId].pinCount.Load() > 0 {
			pool.mtx.Unlock()
			return fmt.Errorf("cannot close buffer pool: page %d is still pinned", pool.frames[frameId].id)
		}
	}
	pool.mtx.Unlock()
	if err := pool.FlushAllPages(); err != nil {
		return err
	}
	return pool.diskManager.Close()
}
