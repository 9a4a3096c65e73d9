package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hashdb/pkg/concurrency"
	"hashdb/pkg/hash"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"
)

var MAX_DELAY int64 = 10

// Listens for SIGINT or SIGTERM and closes the index.
func setupCloseHandler(index *hash.HashIndex) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("closehandler invoked")
		index.Close()
		os.Exit(0)
	}()
}

// Get delay jitter.
func jitter() time.Duration {
	return time.Duration(rand.Int63n(MAX_DELAY)+1) * time.Millisecond
}

type pair struct {
	key   int64
	value int64
}

// runWorker issues a mixed stream of inserts, finds, and removes, recording
// every pair it successfully inserted or removed in the shared sets.
func runWorker(index *hash.HashIndex, tx *concurrency.Transaction, ops int, keySpace int64,
	inserted mapset.Set[pair], removed mapset.Set[pair]) error {
	table := index.GetTable()
	for i := 0; i < ops; i++ {
		time.Sleep(jitter())
		key := rand.Int63n(keySpace)
		value := rand.Int63n(keySpace)
		switch rand.Intn(4) {
		case 0, 1:
			err := table.Insert(tx, key, value)
			if err == nil {
				inserted.Add(pair{key, value})
			} else if err != hash.ErrDuplicateEntry && err != hash.ErrIndexFull {
				return err
			}
		case 2:
			if _, err := table.GetValue(tx, key); err != nil {
				return err
			}
		case 3:
			err := table.Remove(tx, key, value)
			if err == nil {
				removed.Add(pair{key, value})
			} else if err != hash.ErrKeyNotFound {
				return err
			}
		}
	}
	return nil
}

// Start the stress run.
func main() {
	var nFlag = flag.Int("n", 8, "number of threads to run")
	var opsFlag = flag.Int("ops", 1000, "operations per thread")
	var keysFlag = flag.Int64("keys", 10000, "size of the key space")
	var dbFlag = flag.String("db", "", "DB file (default: in-memory)")
	var verifyFlag = flag.Bool("verify", true, "verify index state at the end of the workload")
	flag.Parse()

	// Open the index.
	var index *hash.HashIndex
	var err error
	if *dbFlag == "" {
		index, err = hash.OpenMemTable()
	} else {
		index, err = hash.OpenTable(*dbFlag)
	}
	if err != nil {
		panic(err)
	}
	defer index.Close()
	setupCloseHandler(index)

	// Run the workload.
	tm := concurrency.NewTransactionManager()
	inserted := mapset.NewSet[pair]()
	removed := mapset.NewSet[pair]()
	var eg errgroup.Group
	start := time.Now()
	for i := 0; i < *nFlag; i++ {
		tx := tm.Begin()
		eg.Go(func() error {
			defer tm.Commit(tx)
			return runWorker(index, tx, *opsFlag, *keysFlag, inserted, removed)
		})
	}
	if err := eg.Wait(); err != nil {
		fmt.Println("workload error:", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)
	fmt.Printf("%d threads x %d ops in %v; %d inserts survived, %d removed\n",
		*nFlag, *opsFlag, elapsed, inserted.Difference(removed).Cardinality(), removed.Cardinality())

	// Verify the structure of the index and that surviving pairs are readable.
	if *verifyFlag {
		if err := index.GetTable().VerifyIntegrity(); err != nil {
			fmt.Println("integrity violation:", err)
			os.Exit(1)
		}
		tx := tm.Begin()
		defer tm.Commit(tx)
		for p := range inserted.Difference(removed).Iter() {
			values, err := index.GetTable().GetValue(tx, p.key)
			if err != nil {
				fmt.Println("verify error:", err)
				os.Exit(1)
			}
			found := false
			for _, value := range values {
				if value == p.value {
					found = true
					break
				}
			}
			if !found {
				fmt.Printf("verify error: inserted pair (%d, %d) missing\n", p.key, p.value)
				os.Exit(1)
			}
		}
		fmt.Println("verification passed")
	}
}
