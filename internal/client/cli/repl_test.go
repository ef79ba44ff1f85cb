package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	unlocked bool

	calls []string
}

func (f *fakeExec) isUnlocked() bool { return f.unlocked }
func (f *fakeExec) Setup(ctx context.Context) error {
	f.calls = append(f.calls, "setup")
	f.unlocked = true
	return nil
}
func (f *fakeExec) Unlock(ctx context.Context) error {
	f.calls = append(f.calls, "unlock")
	f.unlocked = true
	return nil
}
func (f *fakeExec) Lock(ctx context.Context) error {
	f.calls = append(f.calls, "lock")
	f.unlocked = false
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error {
	f.calls = append(f.calls, "status")
	return nil
}
func (f *fakeExec) AddAccount(ctx context.Context) error {
	f.calls = append(f.calls, "addaccount")
	return nil
}
func (f *fakeExec) AddTransaction(ctx context.Context) error {
	f.calls = append(f.calls, "addtx")
	return nil
}
func (f *fakeExec) ListAccounts(ctx context.Context) error {
	f.calls = append(f.calls, "accounts")
	return nil
}
func (f *fakeExec) ListTransactions(ctx context.Context) error {
	f.calls = append(f.calls, "transactions")
	return nil
}
func (f *fakeExec) ListCategories(ctx context.Context) error {
	f.calls = append(f.calls, "categories")
	return nil
}
func (f *fakeExec) ListRules(ctx context.Context) error {
	f.calls = append(f.calls, "rules")
	return nil
}
func (f *fakeExec) RunRules(ctx context.Context) error {
	f.calls = append(f.calls, "runrules")
	return nil
}
func (f *fakeExec) Sync(ctx context.Context) error { f.calls = append(f.calls, "sync"); return nil }

func TestRunREPL_UnlockFlowAndCommands(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"unlock",
		"help",
		"addtx",
		"t",
		"runrules",
		"sync",
		"foobar",
		"lock",
		"exit",
	}, "\n"))

	exec := &fakeExec{unlocked: false}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	wantOrder := []string{"unlock", "addtx", "transactions", "runrules", "sync", "lock"}
	idx := 0
	for _, c := range exec.calls {
		if idx < len(wantOrder) && c == wantOrder[idx] {
			idx++
		}
	}
	if idx != len(wantOrder) {
		t.Fatalf("commands order mismatch: got %v, want subseq %v", exec.calls, wantOrder)
	}
}

func TestRunREPL_EOFExits(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("\n\n")
	exec := &fakeExec{unlocked: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
