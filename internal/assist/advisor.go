package assist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"struk/internal/aggregate"
	"struk/internal/core"
	applog "struk/internal/log"
)

// FallbackAdvice is returned whenever the model cannot answer.
const FallbackAdvice = "Advice is unavailable right now. Keep recording your transactions and check back later."

// MaxRecentExpenses bounds the expense lines sent with an advice request.
const MaxRecentExpenses = 5

type AdviceInput struct {
	Income  float64
	Expense float64
	Balance float64
	Recent  []core.Transaction
}

// NewAdviceInput summarizes txs: all-time totals plus the newest expenses.
func NewAdviceInput(txs []core.Transaction, now time.Time) AdviceInput {
	sum := aggregate.Summarize(txs, now)
	return AdviceInput{
		Income:  sum.Income,
		Expense: sum.Expense,
		Balance: sum.Balance,
		Recent:  aggregate.RecentN(aggregate.FilterByType(txs, core.Expense), MaxRecentExpenses),
	}
}

// Prompt renders the input as the compact text the model receives.
func (in AdviceInput) Prompt() string {
	var b strings.Builder
	b.WriteString("You are a friendly personal finance coach. Give short, practical advice in at most three sentences.\n\n")
	fmt.Fprintf(&b, "Total income: %s\n", core.FormatNumber(in.Income))
	fmt.Fprintf(&b, "Total expense: %s\n", core.FormatNumber(in.Expense))
	fmt.Fprintf(&b, "Balance: %s\n", core.FormatNumber(in.Balance))
	recent := in.Recent
	if len(recent) > MaxRecentExpenses {
		recent = recent[:MaxRecentExpenses]
	}
	if len(recent) > 0 {
		b.WriteString("Recent expenses:\n")
		for _, tx := range recent {
			fmt.Fprintf(&b, "- %s (%s): %s\n", tx.StoreName, tx.Category, core.FormatNumber(aggregate.EffectiveAmount(tx)))
		}
	}
	return b.String()
}

type Advisor struct {
	model  Model
	logger *applog.Logger
}

func NewAdvisor(model Model) *Advisor {
	return &Advisor{model: model, logger: applog.Default().WithComponent(applog.ComponentAssist)}
}

// Advise never fails: model errors and empty answers yield FallbackAdvice.
func (a *Advisor) Advise(ctx context.Context, in AdviceInput) string {
	if a == nil || a.model == nil {
		return FallbackAdvice
	}
	text, err := a.model.Generate(ctx, Request{Prompt: in.Prompt()})
	if err != nil {
		a.logger.WarnContext(ctx, "Advice request failed", applog.FieldOperation, applog.OpAdvise, applog.FieldError, err)
		return FallbackAdvice
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackAdvice
	}
	return text
}
