package hash

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"

	"hashdb/pkg/buffer"
	"hashdb/pkg/entry"
)

// HashBucket overlays one bucket page: two bitmaps followed by a fixed array
// of entry slots. A slot's occupied bit is set the first time the slot is
// written and never cleared; the readable bit tracks whether the slot
// currently holds a live entry.
type HashBucket struct {
	page     *buffer.Page
	capacity int64 // number of usable slots, at most BUCKET_ARRAY_SIZE
}

// [CONCURRENCY] Enumerates 3 different locking operations: no lock, write lock, or read lock.
type BucketLockType int

const (
	NO_LOCK    BucketLockType = 0
	WRITE_LOCK BucketLockType = 1
	READ_LOCK  BucketLockType = 2
)

// newHashBucket overlays a bucket onto the given pinned page.
func newHashBucket(page *buffer.Page, capacity int64) *HashBucket {
	return &HashBucket{page: page, capacity: capacity}
}

// GetPage returns the bucket's underlying page.
func (bucket *HashBucket) GetPage() *buffer.Page {
	return bucket.page
}

// getBit reads bit slot of the bitmap starting at the given byte offset.
func (bucket *HashBucket) getBit(offset int64, slot int64) bool {
	b := bucket.page.GetData()[offset+slot/8]
	return b&(1<<(slot%8)) != 0
}

// setBit sets or clears bit slot of the bitmap starting at the given byte offset.
func (bucket *HashBucket) setBit(offset int64, slot int64, on bool) {
	data := bucket.page.GetData()
	if on {
		data[offset+slot/8] |= 1 << (slot % 8)
	} else {
		data[offset+slot/8] &^= 1 << (slot % 8)
	}
}

// IsOccupied reports whether the slot has ever held an entry.
func (bucket *HashBucket) IsOccupied(slot int64) bool {
	return bucket.getBit(OCCUPIED_OFFSET, slot)
}

// IsReadable reports whether the slot currently holds a live entry.
func (bucket *HashBucket) IsReadable(slot int64) bool {
	return bucket.getBit(READABLE_OFFSET, slot)
}

// getEntry reads the entry stored in the given slot.
func (bucket *HashBucket) getEntry(slot int64) entry.Entry {
	offset := BUCKET_ENTRIES_OFFSET + slot*ENTRYSIZE
	return entry.Unmarshal(bucket.page.GetData()[offset : offset+ENTRYSIZE])
}

// modifyEntry writes the given entry into the given slot.
func (bucket *HashBucket) modifyEntry(slot int64, e entry.Entry) {
	bucket.page.Update(e.Marshal(), BUCKET_ENTRIES_OFFSET+slot*ENTRYSIZE, ENTRYSIZE)
}

// KeyAt returns the key stored in the given slot.
func (bucket *HashBucket) KeyAt(slot int64) int64 {
	return bucket.getEntry(slot).Key
}

// ValueAt returns the value stored in the given slot.
func (bucket *HashBucket) ValueAt(slot int64) int64 {
	return bucket.getEntry(slot).Value
}

// GetValue returns every value stored under the given key.
func (bucket *HashBucket) GetValue(key int64) []int64 {
	var values []int64
	for slot := int64(0); slot < bucket.capacity; slot++ {
		if bucket.IsReadable(slot) && bucket.KeyAt(slot) == key {
			values = append(values, bucket.ValueAt(slot))
		}
	}
	return values
}

// Insert stores the key-value pair in the first free slot. Returns false if
// the exact pair is already present or no free slot remains.
func (bucket *HashBucket) Insert(key int64, value int64) bool {
	freeSlot := int64(-1)
	for slot := int64(0); slot < bucket.capacity; slot++ {
		if bucket.IsReadable(slot) {
			if bucket.KeyAt(slot) == key && bucket.ValueAt(slot) == value {
				return false
			}
		} else if freeSlot == -1 {
			freeSlot = slot
		}
	}
	if freeSlot == -1 {
		return false
	}
	bucket.modifyEntry(freeSlot, entry.New(key, value))
	bucket.setBit(OCCUPIED_OFFSET, freeSlot, true)
	bucket.setBit(READABLE_OFFSET, freeSlot, true)
	return true
}

// Remove deletes the exact key-value pair if present. The slot's occupied bit
// stays set; only the readable bit is cleared.
func (bucket *HashBucket) Remove(key int64, value int64) bool {
	for slot := int64(0); slot < bucket.capacity; slot++ {
		if bucket.IsReadable(slot) && bucket.KeyAt(slot) == key && bucket.ValueAt(slot) == value {
			bucket.setBit(READABLE_OFFSET, slot, false)
			return true
		}
	}
	return false
}

// RemoveAt clears the readable bit of the given slot.
func (bucket *HashBucket) RemoveAt(slot int64) {
	bucket.setBit(READABLE_OFFSET, slot, false)
}

// readableSet loads the readable bitmap into a bitset for counting.
func (bucket *HashBucket) readableSet() *bitset.BitSet {
	raw := bucket.page.GetData()[READABLE_OFFSET : READABLE_OFFSET+BITMAP_SIZE]
	padded := make([]byte, (BITMAP_SIZE+7)/8*8)
	copy(padded, raw)
	words := make([]uint64, len(padded)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(padded[i*8 : i*8+8])
	}
	return bitset.From(words)
}

// NumReadable returns the number of live entries in the bucket.
func (bucket *HashBucket) NumReadable() int64 {
	return int64(bucket.readableSet().Count())
}

// IsFull reports whether every usable slot holds a live entry.
func (bucket *HashBucket) IsFull() bool {
	return bucket.NumReadable() >= bucket.capacity
}

// IsEmpty reports whether the bucket holds no live entries.
func (bucket *HashBucket) IsEmpty() bool {
	return bucket.NumReadable() == 0
}

// Print writes out a representation of the bucket to the specified writer.
func (bucket *HashBucket) Print(w io.Writer) {
	fmt.Fprintf(w, "bucket page %d (%d entries):\n", bucket.page.GetPageId(), bucket.NumReadable())
	for slot := int64(0); slot < bucket.capacity; slot++ {
		if bucket.IsReadable(slot) {
			bucket.getEntry(slot).Print(w)
		}
	}
	fmt.Fprintln(w, "")
}
