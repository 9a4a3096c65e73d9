package hash

import (
	"hashdb/pkg/buffer"
	"hashdb/pkg/config"
	"hashdb/pkg/disk"
)

// HashIndex couples a HashTable with the buffer pool and disk manager that
// back it, owning their lifecycle.
type HashIndex struct {
	table *HashTable
	pool  *buffer.BufferPool
}

// OpenTable opens (or creates) the index stored in the file at the given
// path.
func OpenTable(filePath string) (*HashIndex, error) {
	diskManager, err := disk.NewFileManager(filePath)
	if err != nil {
		return nil, err
	}
	pool := buffer.New(config.DefaultPoolSize, diskManager)
	table, err := NewHashTable(pool)
	if err != nil {
		diskManager.Close()
		return nil, err
	}
	return &HashIndex{table: table, pool: pool}, nil
}

// OpenMemTable opens an ephemeral index backed by memory instead of a file.
func OpenMemTable() (*HashIndex, error) {
	pool := buffer.New(config.DefaultPoolSize, disk.NewMemManager())
	table, err := NewHashTable(pool)
	if err != nil {
		return nil, err
	}
	return &HashIndex{table: table, pool: pool}, nil
}

// GetTable returns the underlying hash table.
func (index *HashIndex) GetTable() *HashTable {
	return index.table
}

// Close flushes every cached page and closes the backing store.
func (index *HashIndex) Close() error {
	return index.pool.Close()
}
