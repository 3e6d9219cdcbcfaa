// Command crdb crawls ranked ladder battlelogs into a SQLite database.
//
// Usage:
//
//	crdb [flags]        crawl until interrupted
//	crdb stats [flags]  print what the database holds
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
