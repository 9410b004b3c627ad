// Package main is an offline maintenance CLI that compacts or rebuilds a
// memory bank store's graph log without starting the MCP server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/madeindigio/memory-bank-mcp/internal/graph"
)

func main() {
	rebuild := flag.Bool("rebuild", false, "refold the entire event log from scratch instead of compacting it")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-rebuild] <store-path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	storePath := flag.Arg(0)

	gs, err := graph.Open(storePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store %q: %v\n", storePath, err)
		os.Exit(1)
	}

	var result graph.CompactResult
	if *rebuild {
		result, err = gs.Rebuild()
	} else {
		result, err = gs.Compact()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "operation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("events: %d -> %d\n", result.EventsBefore, result.EventsAfter)
	fmt.Printf("entities: %d, observations: %d, relations: %d\n", result.Entities, result.Observations, result.Relations)
}
