package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/moneyxfer/internal/client/guard"
)

// printlnFn and printFn are test seams for REPL output.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Status(ctx context.Context) error
	Open(ctx context.Context, r guard.Route) error
}

// runREPL starts a simple read–eval–print loop for the moneyxfer CLI.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to methods on a. The loop exits on EOF, when ctx is done, or
// when the user types "exit" or "quit".
//
// Commands:
//
//	help                 show available commands
//	login | logout       start or end the session
//	whoami | status      show the session
//	go <route>           navigate (/, /send-money, /balance, /transactions, /login)
//	home | send | balance | transactions
//	exit | quit          leave the program
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors. Cancelling ctx ends the loop even while it waits for
// input.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printFn(fmt.Sprintf("mx %s> ", statusFn()))
		line, err := readLineContext(ctx, reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: home, send, balance, transactions, go <route>, whoami, status, logout, exit")
			} else {
				printlnFn("Available commands: login, go <route>, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "status":
			_ = a.Status(ctx)

		case "home":
			_ = a.Open(ctx, guard.RouteHome)

		case "send":
			_ = a.Open(ctx, guard.RouteSendMoney)

		case "balance":
			_ = a.Open(ctx, guard.RouteBalance)

		case "transactions", "tx":
			_ = a.Open(ctx, guard.RouteTransactions)

		case "go":
			if len(args) == 0 {
				printlnFn("Usage: go <route>")
				continue
			}
			_ = a.Open(ctx, guard.Route(args[0]))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

type lineResult struct {
	line string
	err  error
}

// readLineContext reads one line, giving up when ctx is done. The read
// itself cannot be interrupted; its goroutine finishes with the next line
// or EOF. Nothing reads from reader in the background between calls, so
// command prompts may use it directly.
func readLineContext(ctx context.Context, reader *bufio.Reader) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := readLine(reader)
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
