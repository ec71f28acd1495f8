package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"bankledger/internal/core"
	"bankledger/internal/services"
)

const dateLayout = time.DateOnly

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

func requireID(name string, v int64) error {
	if v <= 0 {
		return fmt.Errorf("%w: -%s is required", errUsage, name)
	}
	return nil
}

// optionalID maps an unset id flag to nil.
func optionalID(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func parseAmount(s string) (core.Money, error) {
	if s == "" {
		return core.Money{}, fmt.Errorf("%w: -amount is required", errUsage)
	}
	return core.ParseMoney(s)
}

// parseDateRange reads inclusive calendar dates in local time; to covers the
// whole day.
func parseDateRange(from, to string) (core.DateRange, error) {
	var r core.DateRange
	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, time.Local)
		if err != nil {
			return r, fmt.Errorf("%w: invalid -from date %q", errUsage, from)
		}
		r.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, time.Local)
		if err != nil {
			return r, fmt.Errorf("%w: invalid -to date %q", errUsage, to)
		}
		r.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return r, r.Validate()
}

func parseTypes(s string) ([]core.TransactionType, error) {
	if s == "" {
		return nil, nil
	}
	var types []core.TransactionType
	for _, part := range strings.Split(s, ",") {
		t := core.TransactionType(strings.TrimSpace(part))
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidTransactionType, part)
		}
		types = append(types, t)
	}
	return types, nil
}

func cmdOpen(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("open")
	initial := fs.String("initial", "", "opening balance")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var amount core.Money
	if *initial != "" {
		var err error
		if amount, err = core.ParseMoney(*initial); err != nil {
			return err
		}
	}
	account, err := e.ledger.Accounts.OpenAccount(ctx, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "account %d opened, balance %s\n", account.ID, account.Balance)
	return nil
}

func cmdDeactivate(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("deactivate")
	account := fs.Int64("account", 0, "account id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("account", *account); err != nil {
		return err
	}
	if err := e.ledger.Accounts.DeactivateAccount(ctx, *account); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "account %d deactivated\n", *account)
	return nil
}

func cmdDeposit(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("deposit")
	account := fs.Int64("account", 0, "account id")
	amount := fs.String("amount", "", "amount")
	desc := fs.String("desc", "", "description")
	key := fs.String("key", "", "idempotency key, reuse it to retry safely")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("account", *account); err != nil {
		return err
	}
	money, err := parseAmount(*amount)
	if err != nil {
		return err
	}

	res, err := e.ledger.Engine.Deposit(ctx, services.DepositRequest{
		AccountID:      *account,
		Amount:         money,
		Description:    *desc,
		IdempotencyKey: *key,
	})
	if err != nil {
		return err
	}
	printResult(e.out, res)
	return nil
}

func cmdWithdraw(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("withdraw")
	account := fs.Int64("account", 0, "account id")
	amount := fs.String("amount", "", "amount")
	desc := fs.String("desc", "", "description")
	budget := fs.Int64("budget", 0, "budget id")
	key := fs.String("key", "", "idempotency key, reuse it to retry safely")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("account", *account); err != nil {
		return err
	}
	money, err := parseAmount(*amount)
	if err != nil {
		return err
	}

	res, err := e.ledger.Engine.Withdraw(ctx, services.WithdrawRequest{
		AccountID:      *account,
		Amount:         money,
		Description:    *desc,
		IdempotencyKey: *key,
		BudgetRef:      optionalID(*budget),
	})
	if err != nil {
		return err
	}
	printResult(e.out, res)
	return nil
}

func cmdTransfer(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("transfer")
	from := fs.Int64("from", 0, "source account id")
	to := fs.Int64("to", 0, "destination account id")
	amount := fs.String("amount", "", "amount")
	desc := fs.String("desc", "", "description")
	budget := fs.Int64("budget", 0, "budget id")
	key := fs.String("key", "", "idempotency key, reuse it to retry safely")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("from", *from); err != nil {
		return err
	}
	if err := requireID("to", *to); err != nil {
		return err
	}
	money, err := parseAmount(*amount)
	if err != nil {
		return err
	}

	res, err := e.ledger.Engine.Transfer(ctx, services.TransferRequest{
		FromAccountID:  *from,
		ToAccountID:    *to,
		Amount:         money,
		Description:    *desc,
		IdempotencyKey: *key,
		BudgetRef:      optionalID(*budget),
	})
	if err != nil {
		return err
	}
	printResult(e.out, res)
	return nil
}

func cmdBalance(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("balance")
	account := fs.Int64("account", 0, "account id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("account", *account); err != nil {
		return err
	}
	bal, err := e.ledger.Query.GetBalance(ctx, *account)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, bal)
	return nil
}

func cmdHistory(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("history")
	account := fs.Int64("account", 0, "account id")
	from := fs.String("from", "", "first day")
	to := fs.String("to", "", "last day")
	types := fs.String("types", "", "comma separated transaction types")
	asc := fs.Bool("asc", false, "oldest first")
	limit := fs.Int("limit", core.DefaultPageSize, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("account", *account); err != nil {
		return err
	}
	dates, err := parseDateRange(*from, *to)
	if err != nil {
		return err
	}
	typeList, err := parseTypes(*types)
	if err != nil {
		return err
	}

	list, err := e.ledger.Query.ListTransactions(ctx, *account, core.TransactionFilter{
		DateRange: dates,
		Types:     typeList,
		Ascending: *asc,
	}, core.Page{Limit: *limit, Offset: *offset})
	if err != nil {
		return err
	}
	printTransactions(e.out, list)
	return nil
}

func cmdSearch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("search")
	account := fs.Int64("account", 0, "account id")
	text := fs.String("text", "", "description substring")
	from := fs.String("from", "", "first day")
	to := fs.String("to", "", "last day")
	limit := fs.Int("limit", core.DefaultPageSize, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("account", *account); err != nil {
		return err
	}
	if *text == "" {
		return fmt.Errorf("%w: -text is required", errUsage)
	}
	dates, err := parseDateRange(*from, *to)
	if err != nil {
		return err
	}

	list, err := e.ledger.Query.SearchTransactions(ctx, *account, *text, dates, core.Page{Limit: *limit, Offset: *offset})
	if err != nil {
		return err
	}
	printTransactions(e.out, list)
	return nil
}

func cmdGet(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("get")
	account := fs.Int64("account", 0, "account id the transaction belongs to")
	txID := fs.Int64("tx", 0, "transaction id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("account", *account); err != nil {
		return err
	}
	if err := requireID("tx", *txID); err != nil {
		return err
	}
	t, err := e.ledger.Query.GetTransaction(ctx, *account, *txID)
	if err != nil {
		return err
	}
	printTransactions(e.out, []core.Transaction{t})
	return nil
}

func cmdBudget(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing budget subcommand", errUsage)
	}
	switch args[0] {
	case "create":
		return budgetCreate(ctx, e, args[1:])
	case "update":
		return budgetUpdate(ctx, e, args[1:])
	case "delete":
		return budgetDelete(ctx, e, args[1:])
	case "list":
		return budgetList(ctx, e, args[1:])
	}
	return fmt.Errorf("%w: unknown budget subcommand %q", errUsage, args[0])
}

func budgetCreate(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("budget create")
	owner := fs.Int64("owner", 0, "owner account id")
	category := fs.String("category", "", "category")
	label := fs.String("label", "", "label")
	allocated := fs.String("allocated", "", "allocated amount")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("owner", *owner); err != nil {
		return err
	}
	if *allocated == "" {
		return fmt.Errorf("%w: -allocated is required", errUsage)
	}
	money, err := core.ParseMoney(*allocated)
	if err != nil {
		return err
	}

	b, err := e.ledger.Budgets.CreateBudget(ctx, *owner, *category, *label, money)
	if err != nil {
		return err
	}
	printBudgets(e.out, []core.Budget{b})
	return nil
}

func budgetUpdate(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("budget update")
	owner := fs.Int64("owner", 0, "owner account id")
	budget := fs.Int64("budget", 0, "budget id")
	category := fs.String("category", "", "category")
	label := fs.String("label", "", "label")
	allocated := fs.String("allocated", "", "allocated amount")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("owner", *owner); err != nil {
		return err
	}
	if err := requireID("budget", *budget); err != nil {
		return err
	}

	var changes core.BudgetChanges
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "category":
			changes.Category = category
		case "label":
			changes.Label = label
		case "allocated":
			money, err := core.ParseMoney(*allocated)
			if err != nil {
				parseErr = err
				return
			}
			changes.AllocatedAmount = &money
		}
	})
	if parseErr != nil {
		return parseErr
	}

	b, err := e.ledger.Budgets.UpdateBudget(ctx, *owner, *budget, changes)
	if err != nil {
		return err
	}
	printBudgets(e.out, []core.Budget{b})
	return nil
}

func budgetDelete(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("budget delete")
	owner := fs.Int64("owner", 0, "owner account id")
	budget := fs.Int64("budget", 0, "budget id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("owner", *owner); err != nil {
		return err
	}
	if err := requireID("budget", *budget); err != nil {
		return err
	}
	if err := e.ledger.Budgets.DeleteBudget(ctx, *owner, *budget); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "budget %d deleted\n", *budget)
	return nil
}

func budgetList(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("budget list")
	owner := fs.Int64("owner", 0, "owner account id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireID("owner", *owner); err != nil {
		return err
	}
	list, err := e.ledger.Budgets.ListBudgets(ctx, *owner)
	if err != nil {
		return err
	}
	printBudgets(e.out, list)
	return nil
}

func cmdReconcile(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("reconcile")
	budget := fs.Int64("budget", 0, "budget id, all budgets when omitted")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *budget > 0 {
		spent, err := e.ledger.Budgets.Reconcile(ctx, *budget)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "budget %d spent %s\n", *budget, spent)
		return nil
	}
	n, err := e.ledger.Budgets.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d budgets reconciled\n", n)
	return nil
}

func printResult(w io.Writer, res services.Result) {
	if res.Replayed {
		fmt.Fprintf(w, "transaction %d (replayed)\n", res.Transaction.ID)
		return
	}
	fmt.Fprintf(w, "transaction %d committed\n", res.Transaction.ID)
}

func printTransactions(w io.Writer, list []core.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tFROM\tTO\tAMOUNT\tBUDGET\tDESCRIPTION")
	for _, t := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.CreatedAt.Local().Format(time.DateTime),
			t.Type,
			formatRef(t.FromAccountID),
			formatRef(t.ToAccountID),
			t.Amount,
			formatRef(t.BudgetRef),
			t.Description)
	}
	tw.Flush()
}

func printBudgets(w io.Writer, list []core.Budget) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tLABEL\tALLOCATED\tSPENT\tREMAINING\tSTATUS")
	for _, b := range list {
		status := "ok"
		if b.OverBudget() {
			status = "over"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Category, b.Label, b.AllocatedAmount, b.SpentAmount, b.Remaining(), status)
	}
	tw.Flush()
}

func formatRef(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprint(*id)
}
