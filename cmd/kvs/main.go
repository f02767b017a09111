// Command kvs operates directly on a store directory with no network
// involved, for scripting and local inspection.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrshabel/kvs/internal/config"
	"github.com/mrshabel/kvs/internal/kv"
)

func main() {
	dir := flag.String("dir", config.DefaultDataDir, "directory holding the store's segments")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: kvs [-dir path] get KEY | set KEY VALUE | rm KEY")
		os.Exit(1)
	}

	engine, err := kv.Open(kv.Config{Directory: *dir})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer engine.Close()

	switch args[0] {
	case "get":
		value, found, err := engine.Get(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !found {
			fmt.Println("Key not found")
			return
		}
		fmt.Println(value)
	case "set":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: kvs set KEY VALUE")
			os.Exit(1)
		}
		if err := engine.Set(args[1], args[2]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "rm":
		if err := engine.Remove(args[1]); err != nil {
			if err == kv.ErrKeyNotFound {
				fmt.Println("Key not found")
			} else {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unrecognized command %q\n", args[0])
		os.Exit(1)
	}
}
