package buffer

import (
	"sync"
	"sync/atomic"
)

// NoPage is the page id held by a frame that is not caching any page.
const NoPage int64 = -1

// Page is an in-memory frame that may cache one page of data, plus the
// metadata the buffer pool needs to manage it.
type Page struct {
	pool     *BufferPool  // Pointer to the buffer pool that owns this frame
	id       int64        // Id of the cached page, or NoPage if the frame is empty
	pinCount atomic.Int64 // The number of active references to this page
	dirty    bool         // Whether the data differs from the backing store and must be written back
	rwlock   sync.RWMutex // Reader-writer latch on the page contents
	data     []byte       // The actual PageSize bytes of the page
}

// GetPool returns the buffer pool this frame belongs to.
func (page *Page) GetPool() *BufferPool {
	return page.pool
}

// GetPageId returns the id of the page currently cached in this frame.
func (page *Page) GetPageId() int64 {
	return page.id
}

// IsDirty reports whether the page's data has changed and needs to be written back.
func (page *Page) IsDirty() bool {
	return page.dirty
}

// GetPinCount returns the number of active references to this page.
func (page *Page) GetPinCount() int64 {
	return page.pinCount.Load()
}

// GetData returns the byte data held by the page.
func (page *Page) GetData() []byte {
	return page.data
}

// Update overwrites `size` bytes of the page with the given data slice at the
// specified offset. The caller still reports the mutation through
// UnpinPage(id, true); dirty state is tracked only by the buffer pool.
func (page *Page) Update(data []byte, offset int64, size int64) {
	copy(page.data[offset:offset+size], data)
}

// zeroData clears the frame's buffer before it takes on a new page.
func (page *Page) zeroData() {
	for i := range page.data {
		page.data[i] = 0
	}
}

// [CONCURRENCY] Grab a writers latch on the page.
func (page *Page) WLock() {
	page.rwlock.Lock()
}

// [CONCURRENCY] Release a writers latch.
func (page *Page) WUnlock() {
	page.rwlock.Unlock()
}

// [CONCURRENCY] Grab a readers latch on the page.
func (page *Page) RLock() {
	page.rwlock.RLock()
}

// [CONCURRENCY] Release a readers latch.
func (page *Page) RUnlock() {
	page.rwlock.RUnlock()
}
