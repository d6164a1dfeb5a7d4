package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"struk/internal/cli"
	applog "struk/internal/log"
	"struk/internal/services"
)

// Version is set at build time.
var Version = "dev"

// runtime is shared by every subcommand of one invocation.
type runtime struct {
	app *cli.App
	out *printer
	opt cli.Options
}

// Execute runs the CLI. The store is closed and pending pushes are awaited
// even when the command fails.
func Execute(ctx context.Context) error {
	root, rt := newRootCommand(cli.Options{})
	err := root.ExecuteContext(ctx)
	return errors.Join(err, rt.close(ctx))
}

func newRootCommand(opt cli.Options) (*cobra.Command, *runtime) {
	rt := &runtime{opt: opt}

	rootCmd := &cobra.Command{
		Use:     "struk",
		Short:   "Local-first personal finance tracker",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.open(cmd)
		},
	}

	rootCmd.AddCommand(
		newInitCommand(rt),
		newAddCommand(rt),
		newIncomeCommand(rt),
		newListCommand(rt),
		newDeleteCommand(rt),
		newStatsCommand(rt),
		newCategoriesCommand(rt),
		newProfileCommand(rt),
		newSheetCommand(rt),
		newScanCommand(rt),
		newAdviceCommand(rt),
		newExportCommand(rt),
	)
	return rootCmd, rt
}

func (rt *runtime) open(cmd *cobra.Command) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg)

	opt := rt.opt
	if opt.OnPush == nil {
		opt.OnPush = func(res services.PushResult) {
			if res.Err != nil {
				logger.WarnContext(context.Background(), "Transaction saved locally but not mirrored to the sheet",
					applog.FieldTxID, res.TxID, applog.FieldError, res.Err)
			}
		}
	}

	cmd.SetContext(applog.NewContext(cmd.Context(), logger))
	app, err := cli.NewApp(cmd.Context(), cfg, opt)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	rt.app = app
	rt.out = newPrinter(cmd.OutOrStdout(), app.Prefs.Tag())
	return nil
}

func (rt *runtime) close(ctx context.Context) error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close(ctx)
	rt.app = nil
	return err
}
