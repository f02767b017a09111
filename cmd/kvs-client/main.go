// Command kvs-client sends a single Get/Set/Remove request to a kvs-server
// and prints its result, following the user-visible conventions in §7:
// "Key not found" on stdout for an absent key, the same message on stdout
// with a nonzero exit for a remove of an absent key, and any other error on
// stderr with a nonzero exit.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/mrshabel/kvs/internal/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "address of the kvs-server to talk to")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: kvs-client [-addr host:port] get KEY | set KEY VALUE | rm KEY")
		os.Exit(1)
	}

	var req protocol.Request
	switch args[0] {
	case "get":
		req = protocol.GetRequest(args[1])
	case "set":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: kvs-client set KEY VALUE")
			os.Exit(1)
		}
		req = protocol.SetRequest(args[1], args[2])
	case "rm":
		req = protocol.RemoveRequest(args[1])
	default:
		fmt.Fprintf(os.Stderr, "unrecognized command %q\n", args[0])
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := protocol.NewEncoder(conn).EncodeRequest(req); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var resp protocol.Response
	if err := protocol.NewDecoder(conn).DecodeResponse(&resp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch args[0] {
	case "get":
		if !resp.OK {
			fmt.Fprintln(os.Stderr, resp.Error)
			os.Exit(1)
		}
		if resp.Value == nil {
			fmt.Println("Key not found")
			return
		}
		fmt.Println(*resp.Value)
	case "set":
		if !resp.OK {
			fmt.Fprintln(os.Stderr, resp.Error)
			os.Exit(1)
		}
	case "rm":
		if !resp.OK {
			if resp.Error == "Key not found error" {
				fmt.Println("Key not found")
			} else {
				fmt.Fprintln(os.Stderr, resp.Error)
			}
			os.Exit(1)
		}
	}
}
