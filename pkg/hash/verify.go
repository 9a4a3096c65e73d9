package hash

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// VerifyIntegrity checks the structural invariants of the directory and every
// reachable bucket, returning the first violation found.
//
// The checks are: every slot sharing a bucket's low local-depth bits points
// at that bucket with that depth, each bucket is referenced by exactly
// 2^(gd-ld) slots, and every live entry hashes into a bucket whose routing
// bits match its own.
func (table *HashTable) VerifyIntegrity() error {
	table.rwlock.RLock()
	defer table.rwlock.RUnlock()
	dir, err := table.getDirectory()
	if err != nil {
		return err
	}
	defer table.pool.UnpinPage(dir.GetPageId(), false)

	globalDepth := dir.GetGlobalDepth()
	refCounts := make(map[int64]int64)
	depths := make(map[int64]uint32)
	seen := mapset.NewSet[int64]()
	for i := int64(0); i < dir.Size(); i++ {
		pageId := dir.GetBucketPageId(i)
		localDepth := dir.GetLocalDepth(i)
		if localDepth > globalDepth {
			return fmt.Errorf("slot %d: local depth %d exceeds global depth %d", i, localDepth, globalDepth)
		}
		refCounts[pageId]++
		if prev, found := depths[pageId]; found && prev != localDepth {
			return fmt.Errorf("bucket page %d: inconsistent local depths %d and %d", pageId, prev, localDepth)
		}
		depths[pageId] = localDepth

		// Every slot sharing this slot's low local-depth bits must agree
		// with it.
		mask := int64(dir.GetLocalDepthMask(i))
		for j := int64(0); j < dir.Size(); j++ {
			if j&mask != i&mask {
				continue
			}
			if dir.GetBucketPageId(j) != pageId {
				return fmt.Errorf("slots %d and %d share low bits but point at pages %d and %d",
					i, j, pageId, dir.GetBucketPageId(j))
			}
			if dir.GetLocalDepth(j) != localDepth {
				return fmt.Errorf("slots %d and %d share low bits but record depths %d and %d",
					i, j, localDepth, dir.GetLocalDepth(j))
			}
		}

		if !seen.Add(pageId) {
			continue
		}
		if err := table.verifyBucket(dir, i, pageId, localDepth); err != nil {
			return err
		}
	}
	for pageId, count := range refCounts {
		want := int64(1) << (globalDepth - depths[pageId])
		if count != want {
			return fmt.Errorf("bucket page %d: referenced by %d slots, expected %d", pageId, count, want)
		}
	}
	return nil
}

// verifyBucket checks that every live entry in the bucket routes back to a
// slot pointing at it.
func (table *HashTable) verifyBucket(dir *HashDirectory, idx int64, pageId int64, localDepth uint32) error {
	bucket, err := table.GetAndLockBucket(dir, idx, READ_LOCK)
	if err != nil {
		return err
	}
	defer func() {
		bucket.page.RUnlock()
		table.pool.UnpinPage(pageId, false)
	}()
	mask := uint32(1)<<localDepth - 1
	want := uint32(idx) & mask
	for slot := int64(0); slot < table.bucketCapacity; slot++ {
		if !bucket.IsReadable(slot) {
			continue
		}
		if !bucket.IsOccupied(slot) {
			return fmt.Errorf("bucket page %d slot %d: readable but not occupied", pageId, slot)
		}
		if got := table.Hash(bucket.KeyAt(slot)) & mask; got != want {
			return fmt.Errorf("bucket page %d slot %d: key %d routes to bits %b, bucket owns bits %b",
				pageId, slot, bucket.KeyAt(slot), got, want)
		}
	}
	return nil
}
