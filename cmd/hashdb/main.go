package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hashdb/pkg/concurrency"
	"hashdb/pkg/config"
	"hashdb/pkg/hash"

	"github.com/google/uuid"
)

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

// Start the database.
func main() {
	var promptFlag = flag.Bool("c", true, "use prompt?")
	var dbFlag = flag.String("db", "data/hashdb.db", "DB file")
	var memFlag = flag.Bool("mem", false, "keep the index in memory instead of a file")
	flag.Parse()

	// Open the index.
	var index *hash.HashIndex
	var err error
	if *memFlag {
		index, err = hash.OpenMemTable()
	} else {
		index, err = hash.OpenTable(*dbFlag)
	}
	if err != nil {
		panic(err)
	}

	// Setup close conditions.
	defer index.Close()
	setupCloseHandler(index)

	// Run the REPL over stdin/stdout.
	tm := concurrency.NewTransactionManager()
	r := hash.HashRepl(index, tm)
	r.Run(uuid.New(), config.GetPrompt(*promptFlag), nil, nil)
}
