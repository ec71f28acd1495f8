// Command ledgerctl is the operator CLI over the ledger's synchronous API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"bankledger/internal/backend"
	"bankledger/internal/cli"
	"bankledger/internal/core"
	"bankledger/internal/log"
)

var errUsage = errors.New("usage")

type env struct {
	ledger *backend.Ledger
	out    io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"open":       {"open [-initial AMOUNT]", cmdOpen},
	"deactivate": {"deactivate -account ID", cmdDeactivate},
	"deposit":    {"deposit -account ID -amount AMOUNT [-desc TEXT] [-key KEY]", cmdDeposit},
	"withdraw":   {"withdraw -account ID -amount AMOUNT [-desc TEXT] [-budget ID] [-key KEY]", cmdWithdraw},
	"transfer":   {"transfer -from ID -to ID -amount AMOUNT [-desc TEXT] [-budget ID] [-key KEY]", cmdTransfer},
	"balance":    {"balance -account ID", cmdBalance},
	"history":    {"history -account ID [-from DATE] [-to DATE] [-types t1,t2] [-asc] [-limit N] [-offset N]", cmdHistory},
	"search":     {"search -account ID -text TEXT [-from DATE] [-to DATE] [-limit N] [-offset N]", cmdSearch},
	"get":        {"get -account ID -tx ID", cmdGet},
	"budget":     {"budget create|update|delete|list ...", cmdBudget},
	"reconcile":  {"reconcile [-budget ID]", cmdReconcile},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		printUsage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(envOr("LOG_LEVEL", "warn"), "ledgerctl")

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, cancel := cli.GracefulShutdown(logger, 5*time.Second)
	defer cancel()
	ctx = log.WithContext(ctx, logger)

	result, err := cli.OpenLedger(ctx, logger, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer result.Cleanup()

	return runCommand(ctx, cmd, &env{ledger: result.Ledger, out: stdout}, args[1:], stderr)
}

func runCommand(ctx context.Context, cmd command, e *env, args []string, stderr io.Writer) int {
	err := cmd.run(ctx, e, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "%v\nusage: ledgerctl %s\n", err, cmd.usage)
		return 2
	default:
		fmt.Fprintf(stderr, "error [%s]: %v\n", core.Kind(err), err)
		if core.Retryable(err) {
			fmt.Fprintln(stderr, "the request may be retried with the same -key")
		}
		return 1
	}
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: ledgerctl <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "AMOUNT accepts 12.34 or 12,34. DATE is YYYY-MM-DD.")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
