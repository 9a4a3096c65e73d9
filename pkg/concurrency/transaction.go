// Package concurrency provides the transaction handle threaded through index
// operations. The storage core treats it as an opaque client identity.
package concurrency

import (
	"sync"

	"github.com/google/uuid"
)

// Transaction identifies one client's sequence of index operations.
type Transaction struct {
	id uuid.UUID
}

// GetId returns the transaction's unique id.
func (tx *Transaction) GetId() uuid.UUID {
	return tx.id
}

// TransactionManager hands out transactions and tracks the live ones.
type TransactionManager struct {
	transactions map[uuid.UUID]*Transaction
	mtx          sync.Mutex
}

// NewTransactionManager constructs an empty TransactionManager.
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{transactions: make(map[uuid.UUID]*Transaction)}
}

// Begin creates and registers a new transaction.
func (manager *TransactionManager) Begin() *Transaction {
	manager.mtx.Lock()
	defer manager.mtx.Unlock()
	tx := &Transaction{id: uuid.New()}
	manager.transactions[tx.id] = tx
	return tx
}

// Commit ends a transaction and forgets it.
func (manager *TransactionManager) Commit(tx *Transaction) {
	manager.mtx.Lock()
	defer manager.mtx.Unlock()
	delete(manager.transactions, tx.id)
}

// GetTransaction looks up a live transaction by id.
func (manager *TransactionManager) GetTransaction(id uuid.UUID) (*Transaction, bool) {
	manager.mtx.Lock()
	defer manager.mtx.Unlock()
	tx, found := manager.transactions[id]
	return tx, found
}
