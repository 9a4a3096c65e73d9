// Package hash implements a disk-backed extendible hash table: a directory
// page routing the low bits of each key's hash to bucket pages that hold the
// entries, growing and shrinking one split or merge at a time.
package hash

import (
	"errors"
	"io"
	"sync"

	"hashdb/pkg/buffer"
	"hashdb/pkg/concurrency"
)

var (
	// ErrDuplicateEntry is returned when inserting a key-value pair that is
	// already present.
	ErrDuplicateEntry = errors.New("entry already exists in the hash table")
	// ErrIndexFull is returned when an insert needs a split that the
	// directory can no longer accommodate.
	ErrIndexFull = errors.New("hash table is full")
	// ErrKeyNotFound is returned when removing an entry that is not present.
	ErrKeyNotFound = errors.New("entry not found in the hash table")
)

// A HashTable is a database index that uses extendible hashing for quick lookups.
type HashTable struct {
	pool           *buffer.BufferPool
	directoryPN    int64        // Page id of the directory page
	hashFn         HashFunc     // Maps keys to the hash whose low bits route them
	bucketCapacity int64        // Usable slots per bucket
	maxDepth       uint32       // Cap on the directory's global depth
	rwlock         sync.RWMutex // Lock on the Hash Table
}

// NewHashTable returns a HashTable over the given buffer pool, bootstrapping
// a fresh index file or reattaching to an existing one.
func NewHashTable(pool *buffer.BufferPool) (*HashTable, error) {
	return NewHashTableWith(pool, XxHasher, BUCKET_ARRAY_SIZE, MAX_DEPTH)
}

// NewHashTableWith is NewHashTable with the hash function, bucket capacity,
// and directory depth cap made explicit.
func NewHashTableWith(pool *buffer.BufferPool, hashFn HashFunc, bucketCapacity int64, maxDepth uint32) (*HashTable, error) {
	table := &HashTable{
		pool:           pool,
		directoryPN:    DIRECTORY_PN,
		hashFn:         hashFn,
		bucketCapacity: bucketCapacity,
		maxDepth:       maxDepth,
	}
	if pool.GetDiskManager().NumPages() > 0 {
		return table, nil
	}
	// Fresh file: lay down the first bucket and the directory at their
	// well-known page ids.
	bucketPage, err := pool.NewPage()
	if err != nil {
		return nil, err
	}
	dirPage, err := pool.NewPage()
	if err != nil {
		pool.UnpinPage(bucketPage.GetPageId(), false)
		return nil, err
	}
	dir := newHashDirectory(dirPage, maxDepth)
	dir.initDirectory()
	dir.SetBucketPageId(0, bucketPage.GetPageId())
	dir.SetLocalDepth(0, 0)
	if err := pool.UnpinPage(bucketPage.GetPageId(), true); err != nil {
		return nil, err
	}
	if err := pool.UnpinPage(dirPage.GetPageId(), true); err != nil {
		return nil, err
	}
	return table, nil
}

// GetPool returns the buffer pool backing the table.
func (table *HashTable) GetPool() *buffer.BufferPool {
	return table.pool
}

// Hash returns the routing hash of a key.
func (table *HashTable) Hash(key int64) uint32 {
	return table.hashFn(key)
}

// getDirectory fetches and overlays the directory page, pinned.
func (table *HashTable) getDirectory() (*HashDirectory, error) {
	page, err := table.pool.FetchPage(table.directoryPN)
	if err != nil {
		return nil, err
	}
	return newHashDirectory(page, table.maxDepth), nil
}

// GetAndLockBucket fetches the bucket behind the given directory slot, pinned
// and latched as requested.
func (table *HashTable) GetAndLockBucket(dir *HashDirectory, idx int64, lock BucketLockType) (*HashBucket, error) {
	page, err := table.pool.FetchPage(dir.GetBucketPageId(idx))
	if err != nil {
		return nil, err
	}
	switch lock {
	case WRITE_LOCK:
		page.WLock()
	case READ_LOCK:
		page.RLock()
	}
	return newHashBucket(page, table.bucketCapacity), nil
}

// GetGlobalDepth returns the directory's current global depth.
func (table *HashTable) GetGlobalDepth() (uint32, error) {
	table.rwlock.RLock()
	defer table.rwlock.RUnlock()
	dir, err := table.getDirectory()
	if err != nil {
		return 0, err
	}
	depth := dir.GetGlobalDepth()
	table.pool.UnpinPage(dir.GetPageId(), false)
	return depth, nil
}

// GetValue returns every value stored under the given key.
func (table *HashTable) GetValue(tx *concurrency.Transaction, key int64) ([]int64, error) {
	table.rwlock.RLock()
	defer table.rwlock.RUnlock()
	dir, err := table.getDirectory()
	if err != nil {
		return nil, err
	}
	idx := int64(table.Hash(key) & dir.GetGlobalDepthMask())
	bucket, err := table.GetAndLockBucket(dir, idx, READ_LOCK)
	if err != nil {
		table.pool.UnpinPage(dir.GetPageId(), false)
		return nil, err
	}
	values := bucket.GetValue(key)
	bucket.page.RUnlock()
	table.pool.UnpinPage(bucket.page.GetPageId(), false)
	table.pool.UnpinPage(dir.GetPageId(), false)
	return values, nil
}

// Insert stores the key-value pair in the index. The fast path inserts under
// a shared table latch; a full bucket upgrades to the exclusive latch and
// goes through splitInsert.
func (table *HashTable) Insert(tx *concurrency.Transaction, key int64, value int64) error {
	table.rwlock.RLock()
	dir, err := table.getDirectory()
	if err != nil {
		table.rwlock.RUnlock()
		return err
	}
	idx := int64(table.Hash(key) & dir.GetGlobalDepthMask())
	bucket, err := table.GetAndLockBucket(dir, idx, WRITE_LOCK)
	if err != nil {
		table.pool.UnpinPage(dir.GetPageId(), false)
		table.rwlock.RUnlock()
		return err
	}
	if !bucket.IsFull() {
		inserted := bucket.Insert(key, value)
		bucket.page.WUnlock()
		table.pool.UnpinPage(bucket.page.GetPageId(), inserted)
		table.pool.UnpinPage(dir.GetPageId(), false)
		table.rwlock.RUnlock()
		if !inserted {
			return ErrDuplicateEntry
		}
		return nil
	}
	// The bucket is full. Drop every latch and reacquire the table latch
	// exclusively; splitInsert re-reads all state, so a concurrent split
	// finishing first is harmless.
	bucket.page.WUnlock()
	table.pool.UnpinPage(bucket.page.GetPageId(), false)
	table.pool.UnpinPage(dir.GetPageId(), false)
	table.rwlock.RUnlock()

	table.rwlock.Lock()
	defer table.rwlock.Unlock()
	return table.splitInsert(key, value)
}

// splitInsert inserts under the exclusive table latch, splitting the target
// bucket (and doubling the directory when needed) until the pair fits.
func (table *HashTable) splitInsert(key int64, value int64) error {
	for {
		dir, err := table.getDirectory()
		if err != nil {
			return err
		}
		idx := int64(table.Hash(key) & dir.GetGlobalDepthMask())
		bucket, err := table.GetAndLockBucket(dir, idx, NO_LOCK)
		if err != nil {
			table.pool.UnpinPage(dir.GetPageId(), false)
			return err
		}
		for _, v := range bucket.GetValue(key) {
			if v == value {
				table.pool.UnpinPage(bucket.page.GetPageId(), false)
				table.pool.UnpinPage(dir.GetPageId(), false)
				return ErrDuplicateEntry
			}
		}
		if !bucket.IsFull() {
			inserted := bucket.Insert(key, value)
			table.pool.UnpinPage(bucket.page.GetPageId(), inserted)
			table.pool.UnpinPage(dir.GetPageId(), false)
			if !inserted {
				return ErrDuplicateEntry
			}
			return nil
		}
		localDepth := dir.GetLocalDepth(idx)
		if localDepth == dir.GetGlobalDepth() {
			if !dir.CanGrow() {
				table.pool.UnpinPage(bucket.page.GetPageId(), false)
				table.pool.UnpinPage(dir.GetPageId(), false)
				return ErrIndexFull
			}
			dir.IncrGlobalDepth()
			table.pool.UnpinPage(bucket.page.GetPageId(), false)
			table.pool.UnpinPage(dir.GetPageId(), true)
			continue
		}
		if err := table.split(dir, bucket, idx); err != nil {
			table.pool.UnpinPage(bucket.page.GetPageId(), false)
			table.pool.UnpinPage(dir.GetPageId(), false)
			return err
		}
		table.pool.UnpinPage(bucket.page.GetPageId(), true)
		table.pool.UnpinPage(dir.GetPageId(), true)
	}
}

// split divides the bucket behind directory slot idx in two on the next hash
// bit, rewiring every directory slot that pointed at it and redistributing
// its entries. Caller holds the exclusive table latch and both pins.
func (table *HashTable) split(dir *HashDirectory, bucket *HashBucket, idx int64) error {
	oldDepth := dir.GetLocalDepth(idx)
	newDepth := oldDepth + 1
	newPage, err := table.pool.NewPage()
	if err != nil {
		return err
	}
	newBucket := newHashBucket(newPage, table.bucketCapacity)
	oldPN := bucket.page.GetPageId()
	newPN := newPage.GetPageId()

	// Every slot sharing the bucket's low oldDepth bits now splits on bit
	// oldDepth of its index.
	lowBits := idx & ((1 << oldDepth) - 1)
	for i := int64(0); i < dir.Size(); i++ {
		if i&((1<<oldDepth)-1) != lowBits {
			continue
		}
		dir.SetLocalDepth(i, newDepth)
		if (i>>oldDepth)&1 == 1 {
			dir.SetBucketPageId(i, newPN)
		} else {
			dir.SetBucketPageId(i, oldPN)
		}
	}
	// Rehash the live entries on the same bit.
	for slot := int64(0); slot < table.bucketCapacity; slot++ {
		if !bucket.IsReadable(slot) {
			continue
		}
		if (table.Hash(bucket.KeyAt(slot))>>oldDepth)&1 == 1 {
			newBucket.Insert(bucket.KeyAt(slot), bucket.ValueAt(slot))
			bucket.RemoveAt(slot)
		}
	}
	return table.pool.UnpinPage(newPN, true)
}

// Remove deletes the exact key-value pair from the index. Emptying a bucket
// upgrades to the exclusive latch and attempts merges.
func (table *HashTable) Remove(tx *concurrency.Transaction, key int64, value int64) error {
	table.rwlock.RLock()
	dir, err := table.getDirectory()
	if err != nil {
		table.rwlock.RUnlock()
		return err
	}
	idx := int64(table.Hash(key) & dir.GetGlobalDepthMask())
	bucket, err := table.GetAndLockBucket(dir, idx, WRITE_LOCK)
	if err != nil {
		table.pool.UnpinPage(dir.GetPageId(), false)
		table.rwlock.RUnlock()
		return err
	}
	removed := bucket.Remove(key, value)
	emptied := removed && bucket.IsEmpty() && dir.GetLocalDepth(idx) > 0
	bucket.page.WUnlock()
	table.pool.UnpinPage(bucket.page.GetPageId(), removed)
	table.pool.UnpinPage(dir.GetPageId(), false)
	table.rwlock.RUnlock()
	if !removed {
		return ErrKeyNotFound
	}
	if emptied {
		table.rwlock.Lock()
		err = table.merge(key)
		table.rwlock.Unlock()
	}
	return err
}

// merge collapses the (now possibly empty) bucket routing the given key into
// its split image, repeating until no merge applies, and shrinks the
// directory whenever the upper half becomes redundant. Caller holds the
// exclusive table latch; the emptiness observed before the upgrade is
// re-validated here.
func (table *HashTable) merge(key int64) error {
	for {
		dir, err := table.getDirectory()
		if err != nil {
			return err
		}
		idx := int64(table.Hash(key) & dir.GetGlobalDepthMask())
		merged, err := table.mergeAt(dir, idx)
		if err != nil {
			table.pool.UnpinPage(dir.GetPageId(), false)
			return err
		}
		for dir.CanShrink() {
			dir.DecrGlobalDepth()
			merged = true
		}
		table.pool.UnpinPage(dir.GetPageId(), merged)
		if !merged {
			return nil
		}
	}
}

// mergeAt merges the bucket behind slot idx with its split image when one of
// the two is empty and both sit at the same local depth. Returns whether a
// merge happened.
func (table *HashTable) mergeAt(dir *HashDirectory, idx int64) (bool, error) {
	localDepth := dir.GetLocalDepth(idx)
	if localDepth == 0 {
		return false, nil
	}
	splitIdx := dir.GetSplitImageIndex(idx)
	if dir.GetLocalDepth(splitIdx) != localDepth {
		return false, nil
	}
	bucketPN := dir.GetBucketPageId(idx)
	splitPN := dir.GetBucketPageId(splitIdx)
	if bucketPN == splitPN {
		return false, nil
	}
	bucketEmpty, err := table.isBucketEmpty(bucketPN)
	if err != nil {
		return false, err
	}
	if bucketEmpty {
		return true, table.absorb(dir, bucketPN, splitPN, localDepth)
	}
	splitEmpty, err := table.isBucketEmpty(splitPN)
	if err != nil {
		return false, err
	}
	if splitEmpty {
		return true, table.absorb(dir, splitPN, bucketPN, localDepth)
	}
	return false, nil
}

// isBucketEmpty fetches a bucket page just long enough to check its bitmap.
func (table *HashTable) isBucketEmpty(pageId int64) (bool, error) {
	page, err := table.pool.FetchPage(pageId)
	if err != nil {
		return false, err
	}
	empty := newHashBucket(page, table.bucketCapacity).IsEmpty()
	table.pool.UnpinPage(pageId, false)
	return empty, nil
}

// absorb redirects every directory slot pointing at the empty bucket to the
// surviving one, drops the shared local depth, and deletes the empty page.
func (table *HashTable) absorb(dir *HashDirectory, emptyPN int64, survivorPN int64, localDepth uint32) error {
	for i := int64(0); i < dir.Size(); i++ {
		if dir.GetBucketPageId(i) == emptyPN {
			dir.SetBucketPageId(i, survivorPN)
		}
	}
	for i := int64(0); i < dir.Size(); i++ {
		if dir.GetBucketPageId(i) == survivorPN {
			dir.SetLocalDepth(i, localDepth-1)
		}
	}
	return table.pool.DeletePage(emptyPN)
}

// Print writes out a representation of the whole table to the specified writer.
func (table *HashTable) Print(w io.Writer) error {
	table.rwlock.RLock()
	defer table.rwlock.RUnlock()
	dir, err := table.getDirectory()
	if err != nil {
		return err
	}
	dir.Print(w)
	printed := make(map[int64]bool)
	for i := int64(0); i < dir.Size(); i++ {
		pageId := dir.GetBucketPageId(i)
		if pageId == buffer.NoPage || printed[pageId] {
			continue
		}
		printed[pageId] = true
		bucket, err := table.GetAndLockBucket(dir, i, READ_LOCK)
		if err != nil {
			table.pool.UnpinPage(dir.GetPageId(), false)
			return err
		}
		bucket.Print(w)
		bucket.page.RUnlock()
		table.pool.UnpinPage(pageId, false)
	}
	table.pool.UnpinPage(dir.GetPageId(), false)
	return nil
}
