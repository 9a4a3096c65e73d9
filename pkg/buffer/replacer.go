package buffer

import (
	"sync"

	"hashdb/pkg/list"
)

// LRUReplacer tracks the frames that are eligible for eviction and picks
// victims in least-recently-unpinned order. The head of the internal list is
// the frame that was unpinned most recently; victims come off the tail.
type LRUReplacer struct {
	capacity int64
	order    *list.List[int64]
	links    map[int64]*list.Link[int64]
	mtx      sync.Mutex
}

// NewLRUReplacer constructs an empty replacer that will track at most
// capacity frames.
func NewLRUReplacer(capacity int64) *LRUReplacer {
	return &LRUReplacer{
		capacity: capacity,
		order:    list.NewList[int64](),
		links:    make(map[int64]*list.Link[int64], capacity),
	}
}

// Victim removes and returns the least recently unpinned frame. The second
// return value is false when no frame is currently evictable.
func (replacer *LRUReplacer) Victim() (int64, bool) {
	replacer.mtx.Lock()
	defer replacer.mtx.Unlock()
	tail := replacer.order.PeekTail()
	if tail == nil {
		return 0, false
	}
	frameId := tail.GetValue()
	tail.PopSelf()
	delete(replacer.links, frameId)
	return frameId, true
}

// Pin removes a frame from the replacer; a pinned frame must not be evicted.
// Pinning a frame that is not tracked is a no-op.
func (replacer *LRUReplacer) Pin(frameId int64) {
	replacer.mtx.Lock()
	defer replacer.mtx.Unlock()
	link, found := replacer.links[frameId]
	if !found {
		return
	}
	link.PopSelf()
	delete(replacer.links, frameId)
}

// Unpin makes a frame eligible for eviction. A frame that is already tracked
// stays in place, so repeated unpins do not refresh its recency.
func (replacer *LRUReplacer) Unpin(frameId int64) {
	replacer.mtx.Lock()
	defer replacer.mtx.Unlock()
	if _, found := replacer.links[frameId]; found {
		return
	}
	if int64(len(replacer.links)) >= replacer.capacity {
		return
	}
	replacer.links[frameId] = replacer.order.PushHead(frameId)
}

// Size returns the number of frames currently eligible for eviction.
func (replacer *LRUReplacer) Size() int64 {
	replacer.mtx.Lock()
	defer replacer.mtx.Unlock()
	return int64(len(replacer.links))
}
