package hash

import (
	"fmt"
	"strconv"
	"strings"

	"hashdb/pkg/concurrency"
	"hashdb/pkg/repl"
)

// HashRepl creates a REPL exposing the given index. Every session shares one
// transaction handle; the storage core treats it as opaque.
func HashRepl(index *HashIndex, tm *concurrency.TransactionManager) *repl.REPL {
	r := repl.NewRepl()
	tx := tm.Begin()

	r.AddCommand("insert", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleInsert(index, tx, payload)
	}, "Insert an element. usage: insert <key> <value>")

	r.AddCommand("find", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleFind(index, tx, payload)
	}, "Find the values stored under a key. usage: find <key>")

	r.AddCommand("remove", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleRemove(index, tx, payload)
	}, "Remove an element. usage: remove <key> <value>")

	r.AddCommand("depth", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleDepth(index, payload)
	}, "Print the directory's global depth. usage: depth")

	r.AddCommand("print", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandlePrint(index, payload)
	}, "Print out the directory and every bucket. usage: print")

	r.AddCommand("verify", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleVerify(index, payload)
	}, "Check the index's structural invariants. usage: verify")

	return r
}

// Handle insert.
func HandleInsert(index *HashIndex, tx *concurrency.Transaction, payload string) (err error) {
	fields := strings.Fields(payload)
	// Usage: insert <key> <value>
	var key, value int
	if len(fields) != 3 {
		return fmt.Errorf("usage: insert <key> <value>")
	}
	if key, err = strconv.Atoi(fields[1]); err != nil {
		return fmt.Errorf("insert error: %v", err)
	}
	if value, err = strconv.Atoi(fields[2]); err != nil {
		return fmt.Errorf("insert error: %v", err)
	}
	return index.GetTable().Insert(tx, int64(key), int64(value))
}

// Handle find.
func HandleFind(index *HashIndex, tx *concurrency.Transaction, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: find <key>
	var key int
	if len(fields) != 2 {
		return "", fmt.Errorf("usage: find <key>")
	}
	if key, err = strconv.Atoi(fields[1]); err != nil {
		return "", fmt.Errorf("find error: %v", err)
	}
	values, err := index.GetTable().GetValue(tx, int64(key))
	if err != nil {
		return "", fmt.Errorf("find error: %v", err)
	}
	if len(values) == 0 {
		return "", ErrKeyNotFound
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d entries:\n", len(values))
	for _, value := range values {
		fmt.Fprintf(&sb, "(%d, %d)\n", key, value)
	}
	return sb.String(), nil
}

// Handle remove.
func HandleRemove(index *HashIndex, tx *concurrency.Transaction, payload string) (err error) {
	fields := strings.Fields(payload)
	// Usage: remove <key> <value>
	var key, value int
	if len(fields) != 3 {
		return fmt.Errorf("usage: remove <key> <value>")
	}
	if key, err = strconv.Atoi(fields[1]); err != nil {
		return fmt.Errorf("remove error: %v", err)
	}
	if value, err = strconv.Atoi(fields[2]); err != nil {
		return fmt.Errorf("remove error: %v", err)
	}
	return index.GetTable().Remove(tx, int64(key), int64(value))
}

// Handle depth.
func HandleDepth(index *HashIndex, payload string) (output string, err error) {
	if len(strings.Fields(payload)) != 1 {
		return "", fmt.Errorf("usage: depth")
	}
	depth, err := index.GetTable().GetGlobalDepth()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("global depth: %d\n", depth), nil
}

// Handle print.
func HandlePrint(index *HashIndex, payload string) (output string, err error) {
	if len(strings.Fields(payload)) != 1 {
		return "", fmt.Errorf("usage: print")
	}
	var sb strings.Builder
	if err := index.GetTable().Print(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Handle verify.
func HandleVerify(index *HashIndex, payload string) (output string, err error) {
	if len(strings.Fields(payload)) != 1 {
		return "", fmt.Errorf("usage: verify")
	}
	if err := index.GetTable().VerifyIntegrity(); err != nil {
		return "", err
	}
	return "ok\n", nil
}
