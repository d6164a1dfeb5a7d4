package commands

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"struk/internal/aggregate"
	"struk/internal/core"
)

// itemFlag matches "2x Burger @20000", "Burger @ 20.000" or "1.5x Rice @12000".
var itemFlag = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)x\s+)?(.+?)\s*@\s*(\S+)$`)

func parseItemFlag(s string) (core.TransactionItem, error) {
	m := itemFlag.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return core.TransactionItem{}, fmt.Errorf("item %q: want \"[QTYx ]NAME @PRICE\"", s)
	}
	qty := 1.0
	if m[1] != "" {
		q, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return core.TransactionItem{}, fmt.Errorf("item %q: %w", s, err)
		}
		qty = q
	}
	price, err := core.ParseAmount(m[3])
	if err != nil {
		return core.TransactionItem{}, fmt.Errorf("item %q: %w", s, err)
	}
	return core.TransactionItem{Name: m[2], Qty: qty, Price: price}, nil
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, ok := core.ParseDateIn(s, time.Local)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unrecognized date %q, use YYYY-MM-DD", core.ErrValidation, s)
	}
	return t, nil
}

func newAddCommand(rt *runtime) *cobra.Command {
	var (
		store, category, date, total string
		items                        []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Example: `  struk add --store "Warung Sari" --item "2x Nasi Goreng @20000" --item "Es Teh @5000"
  struk add --store Parking --total 5000 --category Transport`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			when, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			parsed := make([]core.TransactionItem, 0, len(items))
			for _, s := range items {
				it, err := parseItemFlag(s)
				if err != nil {
					return err
				}
				parsed = append(parsed, it)
			}
			if len(parsed) == 0 && total == "" {
				return fmt.Errorf("give at least one --item or a --total")
			}

			tx := core.NewExpense(store, parsed, when, category)
			if total != "" {
				amt, err := core.ParseAmount(total)
				if err != nil {
					return err
				}
				tx.TotalAmount = amt
			}
			if err := rt.app.Ledger.Add(cmd.Context(), tx); err != nil {
				return err
			}
			rt.out.Success("Saved expense %s at %s: %s", shortID(tx.ID), tx.StoreName, rt.out.Amount(aggregate.EffectiveAmount(tx)))
			return nil
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "store name (required)")
	_ = cmd.MarkFlagRequired("store")
	cmd.Flags().StringArrayVar(&items, "item", nil, `purchased line, "[QTYx ]NAME @PRICE" (repeatable)`)
	cmd.Flags().StringVar(&total, "total", "", "total amount, overrides the item sum")
	cmd.Flags().StringVar(&category, "category", "Other", "category name")
	cmd.Flags().StringVar(&date, "date", "", "date, YYYY-MM-DD (default today)")
	return cmd
}

func newIncomeCommand(rt *runtime) *cobra.Command {
	var source, amount, category, date string

	cmd := &cobra.Command{
		Use:   "income",
		Short: "Record an income",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			when, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			amt, err := core.ParseAmount(amount)
			if err != nil {
				return err
			}
			tx := core.NewIncome(source, amt, when, category)
			if err := rt.app.Ledger.Add(cmd.Context(), tx); err != nil {
				return err
			}
			rt.out.Success("Saved income %s from %s: %s", shortID(tx.ID), tx.StoreName, rt.out.Amount(amt))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "where the money came from (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount (required)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&category, "category", "Salary", "category name")
	cmd.Flags().StringVar(&date, "date", "", "date, YYYY-MM-DD (default today)")
	return cmd
}

func newListCommand(rt *runtime) *cobra.Command {
	var (
		limit  int
		search string
		txType string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs := rt.app.Ledger.Transactions()
			if txType != "" {
				t, err := core.ParseTxType(txType)
				if err != nil {
					return err
				}
				txs = aggregate.FilterByType(txs, t)
			}
			txs = aggregate.RecentN(aggregate.Search(txs, search), limit)
			if len(txs) == 0 {
				rt.out.Faint("No transactions.")
				return nil
			}
			for _, tx := range txs {
				rt.out.Transaction(tx)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows")
	cmd.Flags().StringVarP(&search, "search", "s", "", "match store, category or item name")
	cmd.Flags().StringVarP(&txType, "type", "t", "", "expense or income")
	return cmd
}

// resolveID accepts a full id or a unique prefix of one.
func (rt *runtime) resolveID(prefix string) (string, error) {
	if _, ok := rt.app.Ledger.Get(prefix); ok {
		return prefix, nil
	}
	var match string
	for _, tx := range rt.app.Ledger.Transactions() {
		if strings.HasPrefix(tx.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", prefix)
			}
			match = tx.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no transaction with id %q", prefix)
	}
	return match, nil
}

func newDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction by id or id prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := rt.resolveID(args[0])
			if err != nil {
				return err
			}
			if err := rt.app.Ledger.Delete(cmd.Context(), id); err != nil {
				return err
			}
			rt.out.Success("Deleted %s", shortID(id))
			return nil
		},
	}
}

func newStatsCommand(rt *runtime) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show balance, monthly totals, a time series and the category breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := core.ParsePeriod(period)
			if err != nil {
				return err
			}
			now := time.Now()
			txs := rt.app.Ledger.Transactions()
			sum := aggregate.Summarize(txs, now)

			o := rt.out
			o.Header("Balance")
			o.Info("Balance        %s", o.Amount(sum.Balance))
			o.Info("Income         %s", o.Amount(sum.Income))
			o.Info("Expense        %s", o.Amount(sum.Expense))
			o.Info("This month     +%s / -%s", o.Amount(sum.MonthIncome), o.Amount(sum.MonthExpense))
			o.Info("")

			buckets, err := aggregate.TimeSeries(txs, p, now)
			if err != nil {
				return err
			}
			unit := "day"
			if p == core.PeriodYear {
				unit = "month"
			}
			o.Header("Expenses by " + unit)
			for _, b := range buckets {
				o.Info("%-8s %14s", b.Label, o.Amount(b.Amount))
			}
			o.Info("")

			o.Header("Categories")
			breakdown := aggregate.CategoryBreakdown(txs)
			if len(breakdown) == 0 {
				o.Faint("No expenses yet.")
			}
			for _, c := range breakdown {
				o.Info("%-20s %14s", c.Name, o.Amount(c.Amount))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&period, "period", "p", string(core.PeriodWeek), "week, month or year")
	return cmd
}
