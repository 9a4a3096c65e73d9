package hash

import (
	"hashdb/pkg/disk"
	"hashdb/pkg/entry"
)

/////////////////////////////////////////////////////////////////////////////
////////////////////////// Low-level Constants //////////////////////////////
/////////////////////////////////////////////////////////////////////////////

const PAGESIZE int64 = disk.PageSize

// ENTRYSIZE is the fixed on-page width of one key-value pair.
const ENTRYSIZE int64 = entry.Size

// BUCKET_ARRAY_SIZE is the number of slots in a bucket page. Each slot costs
// ENTRYSIZE bytes plus one occupied bit and one readable bit, so the page
// holds 4*PAGESIZE/(4*ENTRYSIZE+1) slots.
const BUCKET_ARRAY_SIZE int64 = 4 * PAGESIZE / (4*ENTRYSIZE + 1)

// BITMAP_SIZE is the byte width of each of the two bucket bitmaps.
const BITMAP_SIZE int64 = (BUCKET_ARRAY_SIZE + 7) / 8

const OCCUPIED_OFFSET int64 = 0
const READABLE_OFFSET int64 = OCCUPIED_OFFSET + BITMAP_SIZE
const BUCKET_ENTRIES_OFFSET int64 = READABLE_OFFSET + BITMAP_SIZE

// DIRECTORY_ARRAY_SIZE is the number of bucket slots in the directory page.
const DIRECTORY_ARRAY_SIZE int64 = 512

// MAX_DEPTH is the deepest global depth the directory page can represent.
const MAX_DEPTH uint32 = 9

// Directory page layout: the directory's own page id, the global depth,
// one local depth byte per slot, then one bucket page id per slot.
const DIR_PAGE_ID_OFFSET int64 = 0
const DIR_GLOBAL_DEPTH_OFFSET int64 = 4
const DIR_LOCAL_DEPTHS_OFFSET int64 = 8
const DIR_BUCKET_IDS_OFFSET int64 = DIR_LOCAL_DEPTHS_OFFSET + DIRECTORY_ARRAY_SIZE

// INVALID_PAGE_ID marks an unset bucket slot in the on-page directory array.
const INVALID_PAGE_ID uint32 = 0xFFFFFFFF

// Bootstrap page ids: the initial bucket occupies the first page of a fresh
// index file and the directory the second, so reopening a file never needs a
// separate catalog.
const FIRST_BUCKET_PN int64 = 0
const DIRECTORY_PN int64 = 1
