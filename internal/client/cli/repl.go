package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	Setup(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Status(ctx context.Context) error
	AddAccount(ctx context.Context) error
	AddTransaction(ctx context.Context) error
	ListAccounts(ctx context.Context) error
	ListTransactions(ctx context.Context) error
	ListCategories(ctx context.Context) error
	ListRules(ctx context.Context) error
	RunRules(ctx context.Context) error
	Sync(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the whisper-money CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Locked:
//	  - help           — show available commands
//	  - setup          — initialize encryption on this device
//	  - unlock         — unlock with the password
//	  - status         — show sync and key state
//	  - exit | quit    — leave the program
//
//	Unlocked:
//	  - help           — show available commands
//	  - addaccount     — add a bank account
//	  - addtx          — add a transaction
//	  - accounts       — list accounts
//	  - (t)ransactions — list transactions
//	  - categories     — list categories
//	  - rules          — list automation rules
//	  - runrules       — apply automation rules to transactions
//	  - sync           — trigger a sync cycle now
//	  - lock           — lock the vault
//	  - exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("wm> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: addaccount, addtx, accounts, (t)ransactions, categories, rules, runrules, sync, status, lock, exit")
			} else {
				printlnFn("Available commands: setup, unlock, status, exit")
			}

		case "setup":
			_ = a.Setup(ctx)

		case "unlock":
			_ = a.Unlock(ctx)

		case "lock":
			_ = a.Lock(ctx)

		case "status":
			_ = a.Status(ctx)

		case "addaccount":
			_ = a.AddAccount(ctx)

		case "addtx":
			_ = a.AddTransaction(ctx)

		case "accounts":
			_ = a.ListAccounts(ctx)

		case "t", "transactions":
			_ = a.ListTransactions(ctx)

		case "categories":
			_ = a.ListCategories(ctx)

		case "rules":
			_ = a.ListRules(ctx)

		case "runrules":
			_ = a.RunRules(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
