package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it
// with a stub.
var printlnFn = func(args ...any) { fmt.Println(args...) }

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	Status(ctx context.Context)
	Sync(ctx context.Context)
	Pending(ctx context.Context)
	List(ctx context.Context, collection string)
	Get(ctx context.Context, collection, key string)
	Search(ctx context.Context, collection, query string)
	Referential(ctx context.Context, set string)
	Reset(ctx context.Context)
}

// runREPL reads a line, parses the first token as the command and
// dispatches to methods on 'a'. The loop exits on scanner EOF or when the
// user types "exit" or "quit". Command handlers report their own errors;
// the loop stays resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	printlnFn("claimsync client (type 'help' for commands)")
	for {
		printlnFn("claimsync > ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: status, sync, pending, list <collection>, get <collection> <key>, search <collection> <query>, referential <set>, reset, exit")

		case "status":
			a.Status(ctx)

		case "sync":
			a.Sync(ctx)

		case "pending":
			a.Pending(ctx)

		case "l", "list":
			if len(args) < 1 {
				printlnFn("Usage: list <collection>")
				continue
			}
			a.List(ctx, args[0])

		case "get":
			if len(args) < 2 {
				printlnFn("Usage: get <collection> <key>")
				continue
			}
			a.Get(ctx, args[0], args[1])

		case "search":
			if len(args) < 2 {
				printlnFn("Usage: search <collection> <query>")
				continue
			}
			a.Search(ctx, args[0], strings.Join(args[1:], " "))

		case "referential":
			if len(args) < 1 {
				printlnFn("Usage: referential <set>")
				continue
			}
			a.Referential(ctx, args[0])

		case "reset":
			a.Reset(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
