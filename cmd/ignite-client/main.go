// Command ignite-client is a thin CLI wrapper around pkg/client: set KEY
// VAL, get KEY, rm KEY, each against a running ignite-server (spec.md
// §6.4). Exit code 0 on success, 1 on "Key not found" for get/rm, 2 on any
// other failure.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/iamNilotpal/ignitedb/pkg/client"
	"github.com/iamNilotpal/ignitedb/pkg/errors"
)

const dialTimeout = 2 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "set":
		runSet(args)
	case "get":
		runGet(args)
	case "rm":
		runRemove(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ignite-client [--addr host:port] {set KEY VAL | get KEY | rm KEY}")
}

func parseAddrFlag(args []string) (addr string, rest []string) {
	addr = "127.0.0.1:4000"
	for i := 0; i < len(args); i++ {
		if args[i] == "--addr" && i+1 < len(args) {
			addr = args[i+1]
			rest = append(rest, args[:i]...)
			rest = append(rest, args[i+2:]...)
			return addr, rest
		}
	}
	return addr, args
}

func runSet(args []string) {
	addr, args := parseAddrFlag(args)
	if len(args) != 2 {
		usage()
		os.Exit(2)
	}

	c, err := client.Dial(addr, dialTimeout)
	if err != nil {
		fail(err)
	}
	defer c.Close()

	if err := c.Set(args[0], args[1]); err != nil {
		fail(err)
	}
}

func runGet(args []string) {
	addr, args := parseAddrFlag(args)
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}

	c, err := client.Dial(addr, dialTimeout)
	if err != nil {
		fail(err)
	}
	defer c.Close()

	val, ok, err := c.Get(args[0])
	if err != nil {
		fail(err)
	}
	if !ok {
		fmt.Println("Key not found")
		os.Exit(1)
	}
	fmt.Println(val)
}

func runRemove(args []string) {
	addr, args := parseAddrFlag(args)
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}

	c, err := client.Dial(addr, dialTimeout)
	if err != nil {
		fail(err)
	}
	defer c.Close()

	if err := c.Remove(args[0]); err != nil {
		if isKeyNotFound(err) {
			fmt.Println("Key not found")
			os.Exit(1)
		}
		fail(err)
	}
}

func isKeyNotFound(err error) bool {
	ee, ok := errors.AsEngineError(err)
	return ok && ee.Code() == errors.ErrorCodeKeyNotFound
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "ignite-client: %v\n", err)
	os.Exit(2)
}
