package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"struk/internal/core"
	applog "struk/internal/log"
	"struk/internal/session"
	"struk/internal/sheets"
)

func (rt *runtime) remote() (sheets.Remote, error) {
	if rt.app.Backend.Remote == nil {
		return nil, fmt.Errorf("%w: STRUK_REMOTE is none", core.ErrRemoteUnauthenticated)
	}
	return rt.app.Backend.Remote, nil
}

func (rt *runtime) session() (*session.Session, error) {
	if rt.app.Backend.Session == nil {
		return nil, fmt.Errorf("sign-in needs STRUK_REMOTE=google")
	}
	return rt.app.Backend.Session, nil
}

// hint turns remote failures into something actionable.
func hint(err error) error {
	if errors.Is(err, core.ErrRemoteUnauthenticated) {
		return fmt.Errorf("%w\nrun 'struk sheet signin' first", err)
	}
	return err
}

func newSheetCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Back up to and restore from a spreadsheet",
	}
	cmd.AddCommand(
		newSheetCreateCommand(rt),
		newSheetLinkCommand(rt),
		newSheetUnlinkCommand(rt),
		newSheetPushCommand(rt),
		newSheetPullCommand(rt),
		newSheetSignInCommand(rt),
		newSheetSignOutCommand(rt),
	)
	return cmd
}

func newSheetCreateCommand(rt *runtime) *cobra.Command {
	var backup bool

	cmd := &cobra.Command{
		Use:   "create [title]",
		Short: "Create a spreadsheet and link it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			remote, err := rt.remote()
			if err != nil {
				return err
			}
			title := "Struk Backup"
			if len(args) > 0 {
				title = args[0]
			}
			ref, err := remote.Create(ctx, title)
			if err != nil {
				return hint(err)
			}
			if _, err := rt.app.Profile.LinkSheet(ctx, ref.ID, ref.Title); err != nil {
				return err
			}
			rt.out.Success("Created and linked %q", ref.Title)
			rt.out.Info("%s", ref.URL)
			if backup {
				n, err := rt.app.Ledger.Backup(ctx, ref.ID)
				if err != nil {
					return hint(err)
				}
				rt.out.Success("Backed up %d transactions", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&backup, "backup", false, "push every transaction to the new sheet")
	return cmd
}

func newSheetLinkCommand(rt *runtime) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "link <spreadsheet-id>",
		Short: "Link an existing spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.app.Profile.LinkSheet(cmd.Context(), args[0], name); err != nil {
				return err
			}
			rt.out.Success("Linked %s; new transactions will be mirrored there", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "label to remember the sheet by")
	return cmd
}

func newSheetUnlinkCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink",
		Short: "Stop mirroring to the linked spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := rt.app.Profile.UnlinkSheet(cmd.Context()); err != nil {
				return err
			}
			rt.out.Success("Unlinked")
			return nil
		},
	}
}

func newSheetPushCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Append every local transaction to the linked sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := rt.app.LinkedSheet(ctx)
			if err != nil {
				return err
			}
			n, err := rt.app.Ledger.Backup(ctx, id)
			if err != nil {
				return hint(err)
			}
			rt.out.Success("Backed up %d transactions", n)
			return nil
		},
	}
}

func newSheetPullCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Import transactions from the linked sheet that are missing locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := rt.app.LinkedSheet(ctx)
			if err != nil {
				return err
			}
			report, err := rt.app.Ledger.Restore(ctx, id)
			if err != nil {
				return hint(err)
			}
			rt.out.Success("Restored %d of %d rows (%d already present)", report.Added, report.Fetched, report.Duplicates)
			logger := applog.FromContext(ctx)
			for _, m := range report.Malformed {
				rt.out.Warning("%v", m)
				logger.DebugContext(ctx, "Malformed row skipped", applog.FieldSheetID, id, "row", m.Row, "reason", m.Reason)
			}
			return nil
		},
	}
}

func newSheetSignInCommand(rt *runtime) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to Google; without --code prints the consent URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := rt.session()
			if err != nil {
				return err
			}
			if err := sess.Init(ctx); err != nil {
				return err
			}
			if code == "" {
				cfg, err := sess.Config()
				if err != nil {
					return err
				}
				rt.out.Info("Open this URL, approve access, then run 'struk sheet signin --code <code>':")
				rt.out.Info("%s", cfg.AuthCodeURL("struk", oauth2.AccessTypeOffline))
				return nil
			}
			if _, err := sess.Exchange(ctx, code); err != nil {
				return err
			}
			acct, err := sess.Account(ctx)
			if err != nil {
				rt.out.Warning("Signed in, but the account lookup failed: %v", err)
				return nil
			}
			if _, err := rt.app.Profile.SetAccount(ctx, acct.Email, acct.PhotoURL); err != nil {
				return err
			}
			rt.out.Success("Signed in as %s", acct.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code from the consent page")
	return cmd
}

func newSheetSignOutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the Google token and account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := rt.session()
			if err != nil {
				return err
			}
			if err := sess.SignOut(); err != nil {
				return err
			}
			empty := ""
			if _, err := rt.app.Profile.Update(cmd.Context(), core.ProfilePatch{GoogleEmail: &empty, GooglePhotoURL: &empty}); err != nil {
				return err
			}
			rt.out.Success("Signed out")
			return nil
		},
	}
}
