package entry

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Size is the fixed on-page width of a marshalled entry.
// The bucket page layout depends on every entry occupying exactly this many bytes.
const Size int64 = binary.MaxVarintLen64 * 2

// Entry is a key-value pair stored in a hash bucket slot.
type Entry struct {
	Key   int64
	Value int64
}

// New constructs and returns a new Entry with the specified key and value.
func New(key int64, value int64) Entry {
	return Entry{key, value}
}

// Marshal serializes a given entry into a fixed-width byte array.
func (entry Entry) Marshal() []byte {
	newdata := make([]byte, Size)
	binary.PutVarint(newdata[:Size/2], entry.Key)
	binary.PutVarint(newdata[Size/2:], entry.Value)
	return newdata
}

// Unmarshal deserializes a byte array into an entry.
func Unmarshal(data []byte) Entry {
	k, _ := binary.Varint(data[:Size/2])
	v, _ := binary.Varint(data[Size/2:])
	return Entry{Key: k, Value: v}
}

// Print writes the entry to the specified writer in the following format: (<key>, <value>),
func (entry Entry) Print(w io.Writer) {
	fmt.Fprintf(w, "(%d, %d), ", entry.Key, entry.Value)
}
