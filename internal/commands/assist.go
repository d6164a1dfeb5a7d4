package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"struk/internal/assist"
)

func newScanCommand(rt *runtime) *cobra.Command {
	var (
		category string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Read a receipt image or PDF and optionally save it as an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scanner, err := rt.app.Scanner()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading receipt: %w", err)
			}
			receipt, err := scanner.Scan(ctx, assist.ReceiptFile{Name: filepath.Base(args[0]), Data: data})
			if err != nil {
				return err
			}

			tx := receipt.ToTransaction(category, time.Local)
			o := rt.out
			o.Header(receipt.StoreName + "  " + receipt.Date)
			for _, it := range receipt.Items {
				o.Info("%gx %-28s @%s", it.Qty, truncate(it.Name, 28), o.Amount(it.Price))
			}
			o.Info("Total %s", o.Amount(tx.TotalAmount))

			if !save {
				o.Faint("Not saved; pass --save to record it.")
				return nil
			}
			if err := rt.app.Ledger.Add(ctx, tx); err != nil {
				return err
			}
			o.Success("Saved expense %s", shortID(tx.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "Other", "category for the saved expense")
	cmd.Flags().BoolVar(&save, "save", false, "record the scanned receipt")
	return cmd
}

func newAdviceCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "advice",
		Short: "Ask for short spending advice based on your totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := assist.NewAdviceInput(rt.app.Ledger.Transactions(), time.Now())
			rt.out.Info("%s", rt.app.Advisor.Advise(cmd.Context(), in))
			return nil
		},
	}
}

func newExportCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the report input (profile, transactions, summary) as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prof, err := rt.app.Profile.Get(cmd.Context())
			if err != nil {
				return err
			}
			prof.PIN = ""
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rt.app.Ledger.ExportInput(prof, time.Now()))
		},
	}
}
