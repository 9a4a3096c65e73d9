package hash

import (
	"encoding/binary"
	"fmt"
	"io"

	"hashdb/pkg/buffer"
)

// HashDirectory overlays the directory page: the routing table from the low
// bits of a key's hash to the page id of the bucket holding the key.
type HashDirectory struct {
	page     *buffer.Page
	maxDepth uint32 // cap on the global depth
}

// newHashDirectory overlays a directory onto the given pinned page.
func newHashDirectory(page *buffer.Page, maxDepth uint32) *HashDirectory {
	return &HashDirectory{page: page, maxDepth: maxDepth}
}

// initDirectory formats a fresh directory page: depth zero, every slot unset.
func (dir *HashDirectory) initDirectory() {
	data := dir.page.GetData()
	binary.LittleEndian.PutUint32(data[DIR_PAGE_ID_OFFSET:], uint32(dir.page.GetPageId()))
	binary.LittleEndian.PutUint32(data[DIR_GLOBAL_DEPTH_OFFSET:], 0)
	for i := int64(0); i < DIRECTORY_ARRAY_SIZE; i++ {
		data[DIR_LOCAL_DEPTHS_OFFSET+i] = 0
		binary.LittleEndian.PutUint32(data[DIR_BUCKET_IDS_OFFSET+i*4:], INVALID_PAGE_ID)
	}
}

// GetPage returns the directory's underlying page.
func (dir *HashDirectory) GetPage() *buffer.Page {
	return dir.page
}

// GetPageId returns the directory's own page id as recorded on the page.
func (dir *HashDirectory) GetPageId() int64 {
	return int64(binary.LittleEndian.Uint32(dir.page.GetData()[DIR_PAGE_ID_OFFSET:]))
}

// GetGlobalDepth returns the number of low hash bits used to route keys.
func (dir *HashDirectory) GetGlobalDepth() uint32 {
	return binary.LittleEndian.Uint32(dir.page.GetData()[DIR_GLOBAL_DEPTH_OFFSET:])
}

// GetGlobalDepthMask returns the mask selecting the routing bits of a hash.
func (dir *HashDirectory) GetGlobalDepthMask() uint32 {
	return (1 << dir.GetGlobalDepth()) - 1
}

// Size returns the number of live directory slots, 2^global_depth.
func (dir *HashDirectory) Size() int64 {
	return 1 << dir.GetGlobalDepth()
}

// CanGrow reports whether the directory may double again.
func (dir *HashDirectory) CanGrow() bool {
	return dir.GetGlobalDepth() < dir.maxDepth
}

// IncrGlobalDepth doubles the directory, mirroring the live half into the
// newly exposed upper half so every new slot routes to the same bucket as its
// lower image. At the depth cap the directory is left unchanged.
func (dir *HashDirectory) IncrGlobalDepth() {
	if !dir.CanGrow() {
		return
	}
	size := dir.Size()
	for i := int64(0); i < size; i++ {
		dir.SetBucketPageId(size+i, dir.GetBucketPageId(i))
		dir.SetLocalDepth(size+i, dir.GetLocalDepth(i))
	}
	data := dir.page.GetData()
	binary.LittleEndian.PutUint32(data[DIR_GLOBAL_DEPTH_OFFSET:], dir.GetGlobalDepth()+1)
}

// DecrGlobalDepth halves the directory.
func (dir *HashDirectory) DecrGlobalDepth() {
	data := dir.page.GetData()
	binary.LittleEndian.PutUint32(data[DIR_GLOBAL_DEPTH_OFFSET:], dir.GetGlobalDepth()-1)
}

// CanShrink reports whether every live slot's local depth is strictly below
// the global depth, in which case the upper half of the directory is
// redundant.
func (dir *HashDirectory) CanShrink() bool {
	if dir.GetGlobalDepth() == 0 {
		return false
	}
	for i := int64(0); i < dir.Size(); i++ {
		if dir.GetLocalDepth(i) >= dir.GetGlobalDepth() {
			return false
		}
	}
	return true
}

// GetBucketPageId returns the page id of the bucket behind the given slot,
// or buffer.NoPage if the slot is unset.
func (dir *HashDirectory) GetBucketPageId(idx int64) int64 {
	raw := binary.LittleEndian.Uint32(dir.page.GetData()[DIR_BUCKET_IDS_OFFSET+idx*4:])
	if raw == INVALID_PAGE_ID {
		return buffer.NoPage
	}
	return int64(raw)
}

// SetBucketPageId points the given slot at the given bucket page.
func (dir *HashDirectory) SetBucketPageId(idx int64, pageId int64) {
	raw := INVALID_PAGE_ID
	if pageId != buffer.NoPage {
		raw = uint32(pageId)
	}
	binary.LittleEndian.PutUint32(dir.page.GetData()[DIR_BUCKET_IDS_OFFSET+idx*4:], raw)
}

// GetLocalDepth returns the local depth recorded for the given slot.
func (dir *HashDirectory) GetLocalDepth(idx int64) uint32 {
	return uint32(dir.page.GetData()[DIR_LOCAL_DEPTHS_OFFSET+idx])
}

// SetLocalDepth records the local depth for the given slot.
func (dir *HashDirectory) SetLocalDepth(idx int64, depth uint32) {
	dir.page.GetData()[DIR_LOCAL_DEPTHS_OFFSET+idx] = byte(depth)
}

// IncrLocalDepth increments the local depth recorded for the given slot.
func (dir *HashDirectory) IncrLocalDepth(idx int64) {
	dir.SetLocalDepth(idx, dir.GetLocalDepth(idx)+1)
}

// DecrLocalDepth decrements the local depth recorded for the given slot.
func (dir *HashDirectory) DecrLocalDepth(idx int64) {
	dir.SetLocalDepth(idx, dir.GetLocalDepth(idx)-1)
}

// GetLocalDepthMask returns the mask selecting the hash bits shared by every
// key in the bucket behind the given slot.
func (dir *HashDirectory) GetLocalDepthMask(idx int64) uint32 {
	return (1 << dir.GetLocalDepth(idx)) - 1
}

// GetSplitImageIndex returns the sibling slot that the given slot's bucket
// merges with when local depths decrease.
func (dir *HashDirectory) GetSplitImageIndex(idx int64) int64 {
	return idx ^ (1 << (dir.GetLocalDepth(idx) - 1))
}

// Print writes out a representation of the directory to the specified writer.
func (dir *HashDirectory) Print(w io.Writer) {
	fmt.Fprintf(w, "directory page %d, global depth %d:\n", dir.GetPageId(), dir.GetGlobalDepth())
	for i := int64(0); i < dir.Size(); i++ {
		fmt.Fprintf(w, "  slot %d -> bucket page %d (local depth %d)\n",
			i, dir.GetBucketPageId(i), dir.GetLocalDepth(i))
	}
}
